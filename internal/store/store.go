// Package store persists images, equations, and solutions as key-addressed
// records. Three backends implement the same contract: fs (JSON documents on
// disk, the default), sqlite, and postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/model"
)

// Store defines the persistence contract for the equation pipeline.
//
// Identifier semantics: CreateImage assigns a fresh UUID; CreateEquation
// reuses the image ID, so every equation is backed by exactly one image.
// CreateSolution assigns its own UUID and verifies at write time that the
// referenced equation exists.
type Store interface {
	// CreateImage durably persists an image payload plus metadata. On
	// failure no partial artifact survives (payload without metadata or
	// vice versa).
	CreateImage(ctx context.Context, data []byte) (*model.Image, error)

	// DeleteImage removes an image record. It exists solely so a failed
	// ingest can roll back; nothing else deletes records.
	DeleteImage(ctx context.Context, imageID string) error

	// CreateEquation stores a recognized equation keyed by its image ID.
	// Returns a NotFoundError if the image does not exist.
	CreateEquation(ctx context.Context, imageID, formula, rendered string) (*model.Equation, error)

	// GetEquation returns the equation or a NotFoundError.
	GetEquation(ctx context.Context, equationID string) (*model.Equation, error)

	// UpdateEquation overwrites formula and rendered form and refreshes
	// LastModified. Returns false (no error) when the equation is absent,
	// distinguishing "nothing to update" from a hard failure.
	UpdateEquation(ctx context.Context, equationID, formula, rendered string) (bool, error)

	// CreateSolution stores a submitted solution with its verdict. Returns
	// a NotFoundError if the equation is unresolvable at call time.
	CreateSolution(ctx context.Context, equationID, solution string, verdict *model.Verdict) (*model.Solution, error)

	// GetSolution returns the solution or a NotFoundError.
	GetSolution(ctx context.Context, solutionID string) (*model.Solution, error)

	// HasSolutions reports whether any solution references the equation.
	HasSolutions(ctx context.Context, equationID string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store from config.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "fs", "":
		return NewFS(cfg.DataDir)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
