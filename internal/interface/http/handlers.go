package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shagyeeen/cgpa-shyne/internal/application/command"
	"github.com/shagyeeen/cgpa-shyne/internal/application/query"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleInfo serves GET /api/v1 with basic service information.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	archive := s.deps.GenerateCertificateHandler != nil && s.deps.GenerateCertificateHandler.ArchiveEnabled()

	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "cgpa-shyne",
		"version":     s.config.Version,
		"description": "Computes SGPA and CGPA from semester transcripts and renders a certificate",
		"archive":     archive,
		"formats":     []string{"pdf", "json"},
		"endpoints": map[string]string{
			"form":      "/",
			"generate":  "POST /generate",
			"summaries": "POST /api/v1/summaries",
			"summary":   "GET /api/v1/summaries/{id}",
			"health":    "/health",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().Round(time.Second).String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleIndex serves the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := renderIndex(w, indexPage{
		Title:        s.config.Title,
		FieldName:    formFieldFiles,
		MaxDocuments: s.config.MaxDocuments,
		MaxUploadMB:  s.config.MaxUploadBytes >> 20,
		Archive:      s.deps.GenerateCertificateHandler != nil && s.deps.GenerateCertificateHandler.ArchiveEnabled(),
	}); err != nil {
		s.logger.Error("failed to render upload form", logger.Err(err))
	}
}

// handleGenerate handles POST /generate: the certificate comes back as a
// download.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	result, ok := s.generate(w, r, false)
	if !ok {
		return
	}

	if len(result.Skipped) > 0 {
		w.Header().Set("X-Skipped-Documents", strconv.Itoa(len(result.Skipped)))
	}
	if result.SummaryID != "" {
		w.Header().Set("X-Summary-ID", result.SummaryID)
	}
	writeAttachment(w, result.ContentType, result.FileName, result.Artifact, false)
}

// summaryResponse is the body of POST /api/v1/summaries.
type summaryResponse struct {
	SummaryID     string                    `json:"summary_id,omitempty"`
	Summary       transcript.Summary        `json:"summary"`
	Skipped       []command.SkippedDocument `json:"skipped"`
	ArchiveFailed bool                      `json:"archive_failed,omitempty"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}

// handleCreateSummary handles POST /api/v1/summaries. The summary is archived
// unless archive=false is posted.
func (s *Server) handleCreateSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := s.generate(w, r, true)
	if !ok {
		return
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []command.SkippedDocument{}
	}

	status := http.StatusOK
	if result.SummaryID != "" {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/v1/summaries/"+result.SummaryID)
	}

	writeJSONWithMeta(w, r, status, summaryResponse{
		SummaryID:     result.SummaryID,
		Summary:       result.Summary,
		Skipped:       skipped,
		ArchiveFailed: result.ArchiveFailed,
		GeneratedAt:   result.GeneratedAt,
	}, nil)
}

// generate parses the upload and runs the command. It writes the error
// response itself and reports false on failure.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, api bool) (*command.GenerateCertificateResult, bool) {
	if s.deps.GenerateCertificateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate handler not configured")
		return nil, false
	}

	req, err := parseGenerateRequest(w, r, s.config.MaxUploadBytes)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}

	if api {
		req.Archive = !strings.EqualFold(strings.TrimSpace(r.FormValue("archive")), "false")
		if req.Format == "" {
			req.Format = "json"
		}
	}

	result, err := s.deps.GenerateCertificateHandler.Handle(r.Context(), req.command(getRequestID(r.Context())))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return result, true
}

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSummary handles GET /api/v1/summaries/{id}.
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSummaryHandler == nil {
		s.writeError(w, r, shared.ErrArchiveDisabled)
		return
	}

	path := summaryPath{ID: r.PathValue("id")}
	if err := validate.Struct(path); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.GetSummaryHandler.Handle(r.Context(), query.GetSummaryQuery{ID: path.ID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Summary, nil)
}

// handleGetCertificate handles GET /api/v1/summaries/{id}/certificate and
// re-renders an archived summary. ?format=json selects the JSON view and
// ?inline=true displays it in the browser.
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSummaryHandler == nil {
		s.writeError(w, r, shared.ErrArchiveDisabled)
		return
	}

	path := summaryPath{
		ID:     r.PathValue("id"),
		Format: strings.ToLower(queryOf(r).String("format", "pdf")),
	}
	if err := validate.Struct(path); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.GetSummaryHandler.Handle(r.Context(), query.GetSummaryQuery{ID: path.ID, Format: path.Format})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := "CGPA_Certificate_" + result.Summary.ID + result.Extension
	writeAttachment(w, result.ContentType, name, result.Artifact, queryOf(r).Bool("inline"))
}

// handleListStudentSummaries handles GET /api/v1/students/{register}/summaries.
func (s *Server) handleListStudentSummaries(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListSummariesHandler == nil {
		s.writeError(w, r, shared.ErrArchiveDisabled)
		return
	}

	path := studentSummariesPath{
		RegisterNumber: strings.TrimSpace(r.PathValue("register")),
		Limit:          queryOf(r).Int("limit", 20),
	}
	if err := validate.Struct(path); err != nil {
		s.writeError(w, r, err)
		return
	}

	summaries, err := s.deps.ListSummariesHandler.Handle(r.Context(), query.ListSummariesQuery{
		RegisterNumber: path.RegisterNumber,
		Limit:          path.Limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []*transcript.ArchivedSummary{}
	}

	writeJSONWithMeta(w, r, http.StatusOK, summaries, &ResponseMeta{TotalCount: len(summaries)})
}
