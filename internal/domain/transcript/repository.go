package transcript

import (
	"context"
	"io"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ArchivedSummary is a generated summary kept for later retrieval.
type ArchivedSummary struct {
	ID            string    `json:"id"`
	Summary       Summary   `json:"summary"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Archive stores generated summaries. The engine never uses it; archiving is
// a service feature outside the stateless extraction path.
type Archive interface {
	// Save stores a summary. The ID must be set by the caller.
	Save(ctx context.Context, s *ArchivedSummary) error

	// GetByID returns an archived summary.
	// Returns shared.ErrSummaryNotFound if the ID is unknown.
	GetByID(ctx context.Context, id string) (*ArchivedSummary, error)

	// ListByRegisterNumber returns summaries for a register number, newest first.
	ListByRegisterNumber(ctx context.Context, registerNumber string, limit int) ([]*ArchivedSummary, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTPUT PORTS
// Implementations live in infrastructure/report.
// ══════════════════════════════════════════════════════════════════════════════

// Renderer writes a summary in one output format.
type Renderer interface {
	Render(ctx context.Context, summary Summary, w io.Writer) error
	ContentType() string
	Extension() string
}
