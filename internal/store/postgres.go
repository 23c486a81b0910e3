package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool. Image payloads are stored
// in-database as BYTEA.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS images (
	id         TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	size       BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS equations (
	id            TEXT PRIMARY KEY,
	formula       TEXT NOT NULL,
	rendered      TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS solutions (
	id          TEXT PRIMARY KEY,
	equation_id TEXT NOT NULL,
	solution    TEXT NOT NULL,
	verdict     JSONB,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_solutions_equation_id ON solutions(equation_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateImage(ctx context.Context, data []byte) (*model.Image, error) {
	img := &model.Image{
		ID:        uuid.New().String(),
		Location:  "postgres:images",
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO images (id, payload, size, created_at) VALUES ($1, $2, $3, $4)`,
		img.ID, data, img.Size, img.CreatedAt,
	)
	if err != nil {
		return nil, errs.NewStorage("postgres: insert image", err)
	}
	return img, nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, imageID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, imageID)
	if err != nil {
		return errs.NewStorage("postgres: delete image", err)
	}
	return nil
}

func (s *PostgresStore) CreateEquation(ctx context.Context, imageID, formula, rendered string) (*model.Equation, error) {
	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM images WHERE id = $1`, imageID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return nil, errs.NewNotFound("image", imageID)
	}
	if err != nil {
		return nil, errs.NewStorage("postgres: check image", err)
	}

	now := time.Now().UTC()
	eq := &model.Equation{
		ID:           imageID,
		Formula:      formula,
		Rendered:     rendered,
		CreatedAt:    now,
		LastModified: now,
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO equations (id, formula, rendered, created_at, last_modified) VALUES ($1, $2, $3, $4, $5)`,
		eq.ID, eq.Formula, eq.Rendered, eq.CreatedAt, eq.LastModified,
	)
	if err != nil {
		return nil, errs.NewStorage("postgres: insert equation", err)
	}
	return eq, nil
}

func (s *PostgresStore) GetEquation(ctx context.Context, equationID string) (*model.Equation, error) {
	var eq model.Equation
	err := s.pool.QueryRow(ctx,
		`SELECT id, formula, rendered, created_at, last_modified FROM equations WHERE id = $1`,
		equationID,
	).Scan(&eq.ID, &eq.Formula, &eq.Rendered, &eq.CreatedAt, &eq.LastModified)
	if err == pgx.ErrNoRows {
		return nil, errs.NewNotFound("equation", equationID)
	}
	if err != nil {
		return nil, errs.NewStorage("postgres: get equation", err)
	}
	return &eq, nil
}

func (s *PostgresStore) UpdateEquation(ctx context.Context, equationID, formula, rendered string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE equations SET formula = $1, rendered = $2, last_modified = GREATEST(last_modified, $3) WHERE id = $4`,
		formula, rendered, time.Now().UTC(), equationID,
	)
	if err != nil {
		return false, errs.NewStorage("postgres: update equation", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CreateSolution(ctx context.Context, equationID, solution string, verdict *model.Verdict) (*model.Solution, error) {
	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM equations WHERE id = $1`, equationID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return nil, errs.NewNotFound("equation", equationID)
	}
	if err != nil {
		return nil, errs.NewStorage("postgres: check equation", err)
	}

	sol := &model.Solution{
		ID:         uuid.New().String(),
		EquationID: equationID,
		Solution:   solution,
		Verdict:    verdict,
		CreatedAt:  time.Now().UTC(),
	}

	var verdictJSON *string
	if verdict != nil {
		b, err := json.Marshal(verdict)
		if err != nil {
			return nil, errs.NewStorage("postgres: marshal verdict", err)
		}
		str := string(b)
		verdictJSON = &str
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO solutions (id, equation_id, solution, verdict, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sol.ID, sol.EquationID, sol.Solution, verdictJSON, sol.CreatedAt,
	)
	if err != nil {
		return nil, errs.NewStorage("postgres: insert solution", err)
	}
	return sol, nil
}

func (s *PostgresStore) GetSolution(ctx context.Context, solutionID string) (*model.Solution, error) {
	var sol model.Solution
	var verdictJSON *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, equation_id, solution, verdict, created_at FROM solutions WHERE id = $1`,
		solutionID,
	).Scan(&sol.ID, &sol.EquationID, &sol.Solution, &verdictJSON, &sol.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, errs.NewNotFound("solution", solutionID)
	}
	if err != nil {
		return nil, errs.NewStorage("postgres: get solution", err)
	}
	if verdictJSON != nil {
		sol.Verdict = &model.Verdict{}
		if err := json.Unmarshal([]byte(*verdictJSON), sol.Verdict); err != nil {
			return nil, errs.NewStorage("postgres: unmarshal verdict", err)
		}
	}
	return &sol, nil
}

func (s *PostgresStore) HasSolutions(ctx context.Context, equationID string) (bool, error) {
	var exists int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM solutions WHERE equation_id = $1 LIMIT 1`, equationID,
	).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errs.NewStorage("postgres: check solutions", err)
	}
	return true, nil
}
