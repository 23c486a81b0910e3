package model

import "time"

// Verdict is the structured outcome of verifying a solution.
type Verdict struct {
	IsCorrect   bool     `json:"is_correct"`
	Explanation string   `json:"explanation"`
	Steps       []string `json:"steps"`
	Fallback    bool     `json:"fallback,omitempty"` // true when the live capability was unavailable
}

// Solution is a submitted answer for an equation together with its verdict.
// Immutable once the verdict is recorded; re-verification creates a new
// record with a fresh ID.
type Solution struct {
	ID         string    `json:"id"`
	EquationID string    `json:"equation_id"`
	Solution   string    `json:"solution"`
	Verdict    *Verdict  `json:"verdict,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
