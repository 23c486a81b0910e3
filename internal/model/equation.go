package model

import "time"

// Status represents the lifecycle state of an equation.
type Status string

const (
	StatusIngested   Status = "ingested"
	StatusRecognized Status = "recognized"
	StatusCorrected  Status = "corrected"
	StatusSolved     Status = "solved"
)

// Image is the stored metadata for an uploaded picture of a handwritten
// equation. Immutable after creation.
type Image struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Equation is a recognized formula backed by exactly one image. Its ID equals
// the originating image ID. Correction updates Formula, Rendered and
// LastModified in place; ID and CreatedAt never change.
type Equation struct {
	ID           string    `json:"id"`
	Formula      string    `json:"formula"`
	Rendered     string    `json:"rendered"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// Status derives the lifecycle state. solved reports whether at least one
// solution record references this equation.
func (e *Equation) Status(solved bool) Status {
	switch {
	case solved:
		return StatusSolved
	case e.LastModified.After(e.CreatedAt):
		return StatusCorrected
	default:
		return StatusRecognized
	}
}
