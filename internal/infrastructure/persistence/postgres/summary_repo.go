package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SummaryRepository implements transcript.Archive for PostgreSQL.
// The full summary is stored as JSONB; identity and averages are copied
// into columns for listing.
type SummaryRepository struct {
	db Querier
}

// NewSummaryRepository creates a new SummaryRepository on a pool or a transaction.
func NewSummaryRepository(db Querier) *SummaryRepository {
	return &SummaryRepository{db: db}
}

var _ transcript.Archive = (*SummaryRepository)(nil)

const summaryColumns = `id, summary, document_count, created_at`

// Save inserts an archived summary.
func (r *SummaryRepository) Save(ctx context.Context, s *transcript.ArchivedSummary) error {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return shared.ErrInvalidSummaryID
	}

	payload, err := json.Marshal(s.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO transcript_summaries (
			id, register_number, student_name, term_count, overall_average,
			summary, document_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Exec(ctx, query,
		id,
		s.Summary.Identity.RegisterNumber,
		s.Summary.Identity.Name,
		s.Summary.TermCount(),
		s.Summary.OverallAverage,
		payload,
		s.DocumentCount,
		s.CreatedAt,
	)
	if err != nil {
		return translateError("Save", err)
	}

	return nil
}

// GetByID returns an archived summary by ID.
func (r *SummaryRepository) GetByID(ctx context.Context, id string) (*transcript.ArchivedSummary, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, shared.ErrInvalidSummaryID
	}

	query := `SELECT ` + summaryColumns + ` FROM transcript_summaries WHERE id = $1`

	s, err := scanSummary(r.db.QueryRow(ctx, query, parsed))
	if IsNoRows(err) {
		return nil, shared.ErrSummaryNotFound
	}
	if err != nil {
		return nil, translateError("GetByID", err)
	}
	return s, nil
}

// ListByRegisterNumber returns summaries for a register number, newest first.
func (r *SummaryRepository) ListByRegisterNumber(ctx context.Context, registerNumber string, limit int) ([]*transcript.ArchivedSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT ` + summaryColumns + `
		FROM transcript_summaries
		WHERE register_number = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, registerNumber, limit)
	if err != nil {
		return nil, translateError("ListByRegisterNumber", err)
	}
	defer rows.Close()

	out := make([]*transcript.ArchivedSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError("ListByRegisterNumber", err)
	}
	return out, nil
}

func scanSummary(row pgx.Row) (*transcript.ArchivedSummary, error) {
	var (
		s       transcript.ArchivedSummary
		id      uuid.UUID
		payload []byte
	)

	if err := row.Scan(&id, &payload, &s.DocumentCount, &s.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &s.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary %s: %w", id, err)
	}
	if s.Summary.Terms == nil {
		s.Summary.Terms = []transcript.TermRecord{}
	}

	s.ID = id.String()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// translateError maps driver errors onto domain error kinds.
func translateError(op string, err error) error {
	switch {
	case IsUniqueViolation(err):
		return shared.WrapError("archive", op, shared.ErrAlreadyExists, "summary already archived", err)
	case IsInvalidTextRepresentation(err):
		return shared.ErrInvalidSummaryID
	case IsConnectionError(err):
		return shared.WrapError("archive", op, shared.ErrServiceUnavailable, "database unavailable", err)
	default:
		return shared.WrapError("archive", op, shared.ErrExternalService, "database error", err)
	}
}
