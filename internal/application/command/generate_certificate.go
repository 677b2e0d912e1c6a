// Package command contains write operations (CQRS - Commands).
// Commands turn uploaded transcripts into summaries and artifacts and
// optionally archive the result.
package command

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
	"github.com/shagyeeen/cgpa-shyne/pkg/circuitbreaker"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
	"github.com/shagyeeen/cgpa-shyne/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE CERTIFICATE COMMAND
// Extracts text from every uploaded document, folds the per-document results
// in upload order into one summary and renders it.
// ══════════════════════════════════════════════════════════════════════════════

// Document is one uploaded transcript.
type Document struct {
	Name string
	Data []byte
}

// GenerateCertificateCommand contains the data needed to build a certificate.
type GenerateCertificateCommand struct {
	// Documents in upload order. Later documents win on identity and on
	// repeated term numbers.
	Documents []Document

	// Format is the output format name ("pdf" when empty).
	Format string

	// FileName overrides the configured download name.
	FileName string

	// Archive stores the summary when an archive is configured.
	Archive bool

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c GenerateCertificateCommand) Validate() error {
	if len(c.Documents) == 0 {
		return shared.ErrNoDocuments
	}
	return nil
}

// SkippedDocument describes a document that contributed no term.
type SkippedDocument struct {
	Position int    `json:"position"`
	Name     string `json:"name,omitempty"`
	Reason   string `json:"reason"`
}

// SkipReasonNoTerm is reported for documents without a resolvable term.
const SkipReasonNoTerm = "no term number found"

// GenerateCertificateResult contains the generated summary and artifact.
type GenerateCertificateResult struct {
	// SummaryID is set when the summary was archived.
	SummaryID string

	Summary transcript.Summary
	Skipped []SkippedDocument

	Artifact    []byte
	ContentType string
	FileName    string

	// ArchiveFailed reports that archiving was requested but did not succeed.
	ArchiveFailed bool

	GeneratedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// TextExtractor turns a document into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, name string, data []byte) (string, error)
}

// RendererRegistry resolves output formats.
type RendererRegistry interface {
	Renderer(format string) (transcript.Renderer, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GenerateCertificateHandler handles the GenerateCertificateCommand.
type GenerateCertificateHandler struct {
	extractor TextExtractor
	engine    *transcript.Engine
	renderers RendererRegistry
	archive   transcript.Archive
	retrier   *retry.Retrier
	breaker   *circuitbreaker.CircuitBreaker
	logger    *logger.Logger

	// Configuration
	maxDocuments    int
	concurrency     int
	defaultFileName string

	now   func() time.Time
	newID func() string
}

// GenerateCertificateHandlerConfig contains configuration for the handler.
type GenerateCertificateHandlerConfig struct {
	MaxDocuments    int
	Concurrency     int
	DefaultFileName string
}

// DefaultGenerateCertificateHandlerConfig returns default configuration.
func DefaultGenerateCertificateHandlerConfig() GenerateCertificateHandlerConfig {
	return GenerateCertificateHandlerConfig{
		MaxDocuments:    16,
		Concurrency:     4,
		DefaultFileName: "CGPA_Certificate.pdf",
	}
}

// NewGenerateCertificateHandler creates a new handler. archive may be nil
// when archiving is disabled.
func NewGenerateCertificateHandler(
	extractor TextExtractor,
	engine *transcript.Engine,
	renderers RendererRegistry,
	archive transcript.Archive,
	config GenerateCertificateHandlerConfig,
	log *logger.Logger,
) *GenerateCertificateHandler {
	defaults := DefaultGenerateCertificateHandlerConfig()
	if config.MaxDocuments <= 0 {
		config.MaxDocuments = defaults.MaxDocuments
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.DefaultFileName == "" {
		config.DefaultFileName = defaults.DefaultFileName
	}
	if engine == nil {
		engine = transcript.NewEngine()
	}
	if log == nil {
		log = logger.Nop()
	}

	h := &GenerateCertificateHandler{
		extractor:       extractor,
		engine:          engine,
		renderers:       renderers,
		archive:         archive,
		logger:          log.With(logger.Component("generate_certificate")),
		maxDocuments:    config.MaxDocuments,
		concurrency:     config.Concurrency,
		defaultFileName: config.DefaultFileName,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	h.retrier = retry.ArchiveRetrier(func(a retry.Attempt) {
		h.logger.Warn("archive save retry",
			logger.Int("attempt", a.Number),
			logger.Duration("delay", a.Delay),
			logger.Err(a.Err),
		)
	})
	h.breaker = circuitbreaker.ArchiveBreaker(isArchiveFailure, func(name string, from, to circuitbreaker.State) {
		h.logger.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	return h
}

// ArchiveEnabled reports whether summaries can be archived.
func (h *GenerateCertificateHandler) ArchiveEnabled() bool {
	return h.archive != nil
}

// Handle executes the command.
func (h *GenerateCertificateHandler) Handle(ctx context.Context, cmd GenerateCertificateCommand) (*GenerateCertificateResult, error) {
	start := h.now()
	log := h.logger
	if cmd.CorrelationID != "" {
		log = log.WithRequestID(cmd.CorrelationID)
	}

	// Step 1: Validate command
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if len(cmd.Documents) > h.maxDocuments {
		return nil, shared.ErrTooManyDocuments
	}

	// Step 2: Resolve the renderer before doing any extraction work
	renderer, err := h.renderers.Renderer(cmd.Format)
	if err != nil {
		return nil, err
	}

	// Step 3: Extract text from every document
	texts, err := h.extractAll(ctx, cmd.Documents)
	if err != nil {
		log.Warn("document extraction failed", logger.Err(err))
		return nil, err
	}

	// Step 4: Process in upload order and fold
	results := make([]transcript.DocumentResult, len(texts))
	var skipped []SkippedDocument
	for i, text := range texts {
		results[i] = h.engine.Process(text)
		if !results[i].Resolved {
			skipped = append(skipped, SkippedDocument{
				Position: i + 1,
				Name:     cmd.Documents[i].Name,
				Reason:   SkipReasonNoTerm,
			})
			log.Debug("document skipped", logger.DocumentIndex(i+1), logger.DocumentName(cmd.Documents[i].Name))
		}
	}
	summary := transcript.Fold(results)

	// Step 5: Render
	var buf bytes.Buffer
	if err := renderer.Render(ctx, summary, &buf); err != nil {
		return nil, shared.WrapError("report", "Render", shared.ErrExternalService, "failed to render report", err)
	}

	result := &GenerateCertificateResult{
		Summary:     summary,
		Skipped:     skipped,
		Artifact:    buf.Bytes(),
		ContentType: renderer.ContentType(),
		FileName:    h.fileName(cmd.FileName, renderer),
		GeneratedAt: start.UTC(),
	}

	// Step 6: Archive (optional, never fails the request)
	if cmd.Archive && h.archive != nil {
		id, err := h.save(ctx, summary, len(cmd.Documents), result.GeneratedAt)
		if err != nil {
			result.ArchiveFailed = true
			log.Error("failed to archive summary", logger.Err(err))
		} else {
			result.SummaryID = id
		}
	}

	log.Info("certificate generated",
		logger.Int("documents", len(cmd.Documents)),
		logger.Int("terms", summary.TermCount()),
		logger.Int("skipped", len(skipped)),
		logger.Average("cgpa", summary.OverallAverage),
		logger.SummaryID(result.SummaryID),
		logger.Latency(h.now().Sub(start)),
	)

	return result, nil
}

// extractAll extracts every document with bounded concurrency. All documents
// are attempted; the failure with the lowest position is reported so that the
// error does not depend on scheduling.
func (h *GenerateCertificateHandler) extractAll(ctx context.Context, docs []Document) ([]string, error) {
	texts := make([]string, len(docs))
	errs := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(h.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			text, err := h.extractor.ExtractText(ctx, doc.Name, doc.Data)
			if err != nil {
				errs[i] = err
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err != nil {
			return nil, shared.DocumentUnreadable(i+1, docs[i].Name, err)
		}
	}
	return texts, nil
}

func (h *GenerateCertificateHandler) save(ctx context.Context, summary transcript.Summary, documents int, at time.Time) (string, error) {
	archived := &transcript.ArchivedSummary{
		ID:            h.newID(),
		Summary:       summary,
		DocumentCount: documents,
		CreatedAt:     at,
	}

	err := h.breaker.Execute(ctx, func(ctx context.Context) error {
		return h.retrier.Do(ctx, func(ctx context.Context) error {
			err := h.archive.Save(ctx, archived)
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return err
		})
	})
	if err != nil {
		return "", err
	}
	return archived.ID, nil
}

// isArchiveFailure counts only backend failures against the archive breaker.
func isArchiveFailure(err error) bool {
	return !shared.IsValidation(err) && !errors.Is(err, context.Canceled)
}

// fileName picks the download name and forces the renderer's extension.
func (h *GenerateCertificateHandler) fileName(requested string, r transcript.Renderer) string {
	name := sanitizeFileName(requested)
	if name == "" {
		name = h.defaultFileName
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name + r.Extension()
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == ';' || r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// IsClientError reports whether err was caused by the request rather than
// by the service.
func IsClientError(err error) bool {
	return shared.IsValidation(err) || shared.IsUnreadable(err) || errors.Is(err, shared.ErrUnsupportedDocument)
}
