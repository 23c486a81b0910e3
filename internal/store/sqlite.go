package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Image payloads are
// stored in-database as BLOBs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS images (
	id         TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	size       INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS equations (
	id            TEXT PRIMARY KEY,
	formula       TEXT NOT NULL,
	rendered      TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	last_modified DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS solutions (
	id          TEXT PRIMARY KEY,
	equation_id TEXT NOT NULL,
	solution    TEXT NOT NULL,
	verdict     TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_solutions_equation_id ON solutions(equation_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateImage(ctx context.Context, data []byte) (*model.Image, error) {
	img := &model.Image{
		ID:        uuid.New().String(),
		Location:  "sqlite:images",
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}

	// Single-row insert: payload and metadata commit together, so a failure
	// leaves nothing behind.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, payload, size, created_at) VALUES (?, ?, ?, ?)`,
		img.ID, data, img.Size, img.CreatedAt,
	)
	if err != nil {
		return nil, errs.NewStorage("sqlite: insert image", err)
	}
	return img, nil
}

func (s *SQLiteStore) DeleteImage(ctx context.Context, imageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, imageID)
	if err != nil {
		return errs.NewStorage("sqlite: delete image", err)
	}
	return nil
}

func (s *SQLiteStore) CreateEquation(ctx context.Context, imageID, formula, rendered string) (*model.Equation, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM images WHERE id = ?`, imageID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("image", imageID)
	}
	if err != nil {
		return nil, errs.NewStorage("sqlite: check image", err)
	}

	now := time.Now().UTC()
	eq := &model.Equation{
		ID:           imageID,
		Formula:      formula,
		Rendered:     rendered,
		CreatedAt:    now,
		LastModified: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO equations (id, formula, rendered, created_at, last_modified) VALUES (?, ?, ?, ?, ?)`,
		eq.ID, eq.Formula, eq.Rendered, eq.CreatedAt, eq.LastModified,
	)
	if err != nil {
		return nil, errs.NewStorage("sqlite: insert equation", err)
	}
	return eq, nil
}

func (s *SQLiteStore) GetEquation(ctx context.Context, equationID string) (*model.Equation, error) {
	var eq model.Equation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, formula, rendered, created_at, last_modified FROM equations WHERE id = ?`,
		equationID,
	).Scan(&eq.ID, &eq.Formula, &eq.Rendered, &eq.CreatedAt, &eq.LastModified)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("equation", equationID)
	}
	if err != nil {
		return nil, errs.NewStorage("sqlite: get equation", err)
	}
	return &eq, nil
}

func (s *SQLiteStore) UpdateEquation(ctx context.Context, equationID, formula, rendered string) (bool, error) {
	// max() keeps last_modified monotonic even under clock skew.
	res, err := s.db.ExecContext(ctx,
		`UPDATE equations SET formula = ?, rendered = ?, last_modified = max(last_modified, ?) WHERE id = ?`,
		formula, rendered, time.Now().UTC(), equationID,
	)
	if err != nil {
		return false, errs.NewStorage("sqlite: update equation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.NewStorage("sqlite: rows affected", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) CreateSolution(ctx context.Context, equationID, solution string, verdict *model.Verdict) (*model.Solution, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM equations WHERE id = ?`, equationID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("equation", equationID)
	}
	if err != nil {
		return nil, errs.NewStorage("sqlite: check equation", err)
	}

	sol := &model.Solution{
		ID:         uuid.New().String(),
		EquationID: equationID,
		Solution:   solution,
		Verdict:    verdict,
		CreatedAt:  time.Now().UTC(),
	}

	var verdictJSON sql.NullString
	if verdict != nil {
		b, err := json.Marshal(verdict)
		if err != nil {
			return nil, errs.NewStorage("sqlite: marshal verdict", err)
		}
		verdictJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO solutions (id, equation_id, solution, verdict, created_at) VALUES (?, ?, ?, ?, ?)`,
		sol.ID, sol.EquationID, sol.Solution, verdictJSON, sol.CreatedAt,
	)
	if err != nil {
		return nil, errs.NewStorage("sqlite: insert solution", err)
	}
	return sol, nil
}

func (s *SQLiteStore) GetSolution(ctx context.Context, solutionID string) (*model.Solution, error) {
	var sol model.Solution
	var verdictJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, equation_id, solution, verdict, created_at FROM solutions WHERE id = ?`,
		solutionID,
	).Scan(&sol.ID, &sol.EquationID, &sol.Solution, &verdictJSON, &sol.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("solution", solutionID)
	}
	if err != nil {
		return nil, errs.NewStorage("sqlite: get solution", err)
	}
	if verdictJSON.Valid {
		sol.Verdict = &model.Verdict{}
		if err := json.Unmarshal([]byte(verdictJSON.String), sol.Verdict); err != nil {
			return nil, errs.NewStorage("sqlite: unmarshal verdict", err)
		}
	}
	return &sol, nil
}

func (s *SQLiteStore) HasSolutions(ctx context.Context, equationID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM solutions WHERE equation_id = ? LIMIT 1`, equationID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errs.NewStorage("sqlite: check solutions", err)
	}
	return true, nil
}
