// Package query contains read operations (CQRS - Queries).
// Queries never modify state; they read archived summaries.
package query

import (
	"bytes"
	"context"
	"strings"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// SummaryCache is an optional read-through cache for archived summaries.
// Get returns an error on a miss.
type SummaryCache interface {
	Get(ctx context.Context, id string) (*transcript.ArchivedSummary, error)
	Set(ctx context.Context, summary *transcript.ArchivedSummary) error
}

// RendererRegistry resolves output formats.
type RendererRegistry interface {
	Renderer(format string) (transcript.Renderer, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET SUMMARY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetSummaryQuery requests one archived summary.
type GetSummaryQuery struct {
	ID string

	// Format renders the summary when set ("pdf", "json").
	Format string
}

// Validate validates the query.
func (q GetSummaryQuery) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return shared.ErrInvalidSummaryID
	}
	return nil
}

// GetSummaryResult holds the archived summary and an optional artifact.
type GetSummaryResult struct {
	Summary *transcript.ArchivedSummary

	Artifact    []byte
	ContentType string
	Extension   string
}

// GetSummaryHandler handles GetSummaryQuery.
type GetSummaryHandler struct {
	archive   transcript.Archive
	cache     SummaryCache
	renderers RendererRegistry
	logger    *logger.Logger
}

// NewGetSummaryHandler creates a new handler. archive nil means archiving is
// disabled; cache may be nil.
func NewGetSummaryHandler(archive transcript.Archive, cache SummaryCache, renderers RendererRegistry, log *logger.Logger) *GetSummaryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetSummaryHandler{
		archive:   archive,
		cache:     cache,
		renderers: renderers,
		logger:    log.With(logger.Component("get_summary")),
	}
}

// Handle executes the query.
func (h *GetSummaryHandler) Handle(ctx context.Context, q GetSummaryQuery) (*GetSummaryResult, error) {
	if h.archive == nil {
		return nil, shared.ErrArchiveDisabled
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var renderer transcript.Renderer
	if q.Format != "" {
		r, err := h.renderers.Renderer(q.Format)
		if err != nil {
			return nil, err
		}
		renderer = r
	}

	summary, err := h.load(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	result := &GetSummaryResult{Summary: summary}
	if renderer == nil {
		return result, nil
	}

	var buf bytes.Buffer
	if err := renderer.Render(ctx, summary.Summary, &buf); err != nil {
		return nil, shared.WrapError("report", "Render", shared.ErrExternalService, "failed to render report", err)
	}
	result.Artifact = buf.Bytes()
	result.ContentType = renderer.ContentType()
	result.Extension = renderer.Extension()

	return result, nil
}

func (h *GetSummaryHandler) load(ctx context.Context, id string) (*transcript.ArchivedSummary, error) {
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, id); err == nil {
			return cached, nil
		}
	}

	summary, err := h.archive.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, summary); err != nil {
			h.logger.Warn("summary cache store failed", logger.SummaryID(id), logger.Err(err))
		}
	}
	return summary, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST SUMMARIES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListSummariesQuery requests archived summaries for one register number.
type ListSummariesQuery struct {
	RegisterNumber string
	Limit          int
}

// ErrEmptyRegisterNumber is returned for a blank register number.
var ErrEmptyRegisterNumber = shared.NewDomainError("transcript", "ListSummaries", shared.ErrEmptyValue, "register number is required")

// ListSummariesHandler handles ListSummariesQuery.
type ListSummariesHandler struct {
	archive transcript.Archive
}

// NewListSummariesHandler creates a new handler. archive nil means archiving
// is disabled.
func NewListSummariesHandler(archive transcript.Archive) *ListSummariesHandler {
	return &ListSummariesHandler{archive: archive}
}

// Handle executes the query.
func (h *ListSummariesHandler) Handle(ctx context.Context, q ListSummariesQuery) ([]*transcript.ArchivedSummary, error) {
	if h.archive == nil {
		return nil, shared.ErrArchiveDisabled
	}

	reg := strings.TrimSpace(q.RegisterNumber)
	if reg == "" || strings.EqualFold(reg, transcript.PlaceholderRegisterNumber) {
		return nil, ErrEmptyRegisterNumber
	}

	return h.archive.ListByRegisterNumber(ctx, reg, q.Limit)
}
