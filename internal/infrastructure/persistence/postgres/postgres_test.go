package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
)

func TestGetMigrations(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
	assert.Contains(t, migrations[0].UpSQL, "transcript_summaries")
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := map[int]time.Time{2: time.Now()}

	got := pending(all, applied)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, 3, got[1].Version)
}

func TestTranslateError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	assert.True(t, errors.Is(translateError("Save", unique), shared.ErrAlreadyExists))

	badUUID := &pgconn.PgError{Code: "22P02"}
	assert.ErrorIs(t, translateError("GetByID", badUUID), shared.ErrInvalidSummaryID)

	shutdown := &pgconn.PgError{Code: "57P01"}
	assert.True(t, shared.IsRetryable(translateError("Save", shutdown)))

	assert.True(t, shared.IsRetryable(translateError("Save", ErrConnectionClosed)))

	other := translateError("Save", &pgconn.PgError{Code: "42P01"})
	assert.True(t, shared.IsExternalService(other))
	assert.False(t, shared.IsRetryable(other))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(pgx.ErrNoRows))
	assert.False(t, IsNoRows(errors.New("x")))
	assert.False(t, IsConnectionError(nil))
}

func TestSummaryRepository_RejectsInvalidID(t *testing.T) {
	repo := NewSummaryRepository(closedConn())

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, shared.ErrInvalidSummaryID)

	err = repo.Save(context.Background(), &transcript.ArchivedSummary{ID: "nope"})
	assert.ErrorIs(t, err, shared.ErrInvalidSummaryID)
}

func TestSummaryRepository_ClosedConnection(t *testing.T) {
	repo := NewSummaryRepository(closedConn())

	err := repo.Save(context.Background(), &transcript.ArchivedSummary{
		ID:      "5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c",
		Summary: transcript.Summary{Identity: transcript.PlaceholderIdentity()},
	})
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))

	_, err = repo.ListByRegisterNumber(context.Background(), "812021104055", 0)
	assert.True(t, shared.IsRetryable(err))
}

func closedConn() *Connection {
	c := &Connection{}
	c.Close()
	return c
}

func TestConnection_ClosedRowScan(t *testing.T) {
	repo := NewSummaryRepository(closedConn())

	_, err := repo.GetByID(context.Background(), "5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c")
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
	assert.ErrorIs(t, closedConn().Ping(context.Background()), ErrConnectionClosed)
}

// recordingQuerier captures the arguments of Exec.
type recordingQuerier struct {
	sql  string
	args []any
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: pgx.ErrNoRows}
}

func TestSummaryRepository_SaveCopiesListingColumns(t *testing.T) {
	q := &recordingQuerier{}
	repo := NewSummaryRepository(q)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	err := repo.Save(context.Background(), &transcript.ArchivedSummary{
		ID: "5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c",
		Summary: transcript.Summary{
			Identity:       transcript.StudentIdentity{Name: "ANU", RegisterNumber: "812021104055"},
			Terms:          []transcript.TermRecord{{TermNumber: 1}, {TermNumber: 2}},
			OverallAverage: 8.46,
		},
		DocumentCount: 2,
		CreatedAt:     at,
	})

	require.NoError(t, err)
	assert.Contains(t, q.sql, "INSERT INTO transcript_summaries")
	require.Len(t, q.args, 8)
	assert.Equal(t, "812021104055", q.args[1])
	assert.Equal(t, "ANU", q.args[2])
	assert.Equal(t, 2, q.args[3])
	assert.Equal(t, 8.46, q.args[4])
	assert.Contains(t, string(q.args[5].([]byte)), `"register_number":"812021104055"`)
	assert.Equal(t, 2, q.args[6])
	assert.Equal(t, at, q.args[7])

	_, err = repo.GetByID(context.Background(), "5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c")
	assert.ErrorIs(t, err, shared.ErrSummaryNotFound)
}
