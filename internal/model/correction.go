package model

import "time"

// Correction is one captured (original, corrected) formula pair. Write-once;
// the log it lives in is append-only and consumed offline for retraining.
// EquationID is kept so the training signal stays attributable, but nothing
// in the pipeline reads it back.
type Correction struct {
	EquationID string    `json:"equation_id,omitempty"`
	Original   string    `json:"original"`
	Corrected  string    `json:"corrected"`
	Timestamp  time.Time `json:"timestamp"`
}
