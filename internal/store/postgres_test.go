package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_CreateImage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO images`).
		WithArgs(pgxmock.AnyArg(), []byte("data"), int64(4), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	img, err := s.CreateImage(context.Background(), []byte("data"))
	require.NoError(t, err)
	assert.NotEmpty(t, img.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateEquation_UnknownImage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM images WHERE id = \$1`).
		WithArgs("no-such-image").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.CreateEquation(context.Background(), "no-such-image", "x=1", "<r>")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetEquation(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, formula, rendered, created_at, last_modified FROM equations`).
		WithArgs("eq-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "formula", "rendered", "created_at", "last_modified"}).
			AddRow("eq-1", "x^2+2x+1=0", "<r>", now, now))

	eq, err := s.GetEquation(context.Background(), "eq-1")
	require.NoError(t, err)
	assert.Equal(t, "x^2+2x+1=0", eq.Formula)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetEquation_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, formula, rendered, created_at, last_modified FROM equations`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetEquation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateEquation_Absent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE equations SET formula = \$1`).
		WithArgs("x=1", "<r>", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := s.UpdateEquation(context.Background(), "missing", "x=1", "<r>")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateSolution(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM equations WHERE id = \$1`).
		WithArgs("eq-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO solutions`).
		WithArgs(pgxmock.AnyArg(), "eq-1", "x = -1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sol, err := s.CreateSolution(context.Background(), "eq-1", "x = -1",
		&model.Verdict{IsCorrect: true, Explanation: "checks out"})
	require.NoError(t, err)
	assert.Equal(t, "eq-1", sol.EquationID)
	assert.NotEmpty(t, sol.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateSolution_UnknownEquation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM equations WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.CreateSolution(context.Background(), "missing", "x = -1", nil)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasSolutions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM solutions WHERE equation_id = \$1`).
		WithArgs("eq-1").
		WillReturnError(pgx.ErrNoRows)

	has, err := s.HasSolutions(context.Background(), "eq-1")
	require.NoError(t, err)
	assert.False(t, has)
	assert.NoError(t, mock.ExpectationsWereMet())
}
