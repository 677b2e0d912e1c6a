package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shagyeeen/cgpa-shyne/internal/application/command"
	"github.com/shagyeeen/cgpa-shyne/internal/application/query"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/document"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/report"
	"github.com/shagyeeen/cgpa-shyne/internal/interface/http/handlers"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

const (
	semesterOne = "Name of the Candidate ANU\nRegister No 812021104055\nSEMESTER 1\n21MA101 CALCULUS 3 O\n21PH102 PHYSICS 4 A\n"
	semesterTwo = "Name of the Candidate ANU\nRegister No 812021104055\nSEMESTER 2\n21CS201 DIGITAL LOGIC 3 A\n21CS202 CIRCUITS 3 A\n"
	noTerm      = "Name of the Candidate ANU\nThis page has no term.\n"
)

type memoryArchive struct {
	mu    sync.Mutex
	items map[string]*transcript.ArchivedSummary
	err   error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{items: map[string]*transcript.ArchivedSummary{}}
}

func (m *memoryArchive) Save(_ context.Context, s *transcript.ArchivedSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[s.ID] = s
	return nil
}

func (m *memoryArchive) GetByID(_ context.Context, id string) (*transcript.ArchivedSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, shared.ErrSummaryNotFound
	}
	return s, nil
}

func (m *memoryArchive) ListByRegisterNumber(_ context.Context, reg string, _ int) ([]*transcript.ArchivedSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transcript.ArchivedSummary
	for _, s := range m.items {
		if s.Summary.Identity.RegisterNumber == reg {
			out = append(out, s)
		}
	}
	return out, nil
}

type staticHealth struct {
	status handlers.HealthStatus
}

func (s staticHealth) Check(context.Context) handlers.HealthStatus { return s.status }

func newTestServer(t *testing.T, archive transcript.Archive, mutate ...func(*Config)) http.Handler {
	t.Helper()

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	for _, m := range mutate {
		m(&cfg)
	}

	log := logger.Nop()
	renderers := report.NewRegistry("")
	deps := Dependencies{
		GenerateCertificateHandler: command.NewGenerateCertificateHandler(
			document.NewExtractor(log),
			transcript.NewEngine(),
			renderers,
			archive,
			command.GenerateCertificateHandlerConfig{MaxDocuments: 3},
			log,
		),
		Logger: log,
	}
	if archive != nil {
		deps.GetSummaryHandler = query.NewGetSummaryHandler(archive, nil, renderers, log)
		deps.ListSummariesHandler = query.NewListSummariesHandler(archive)
	}

	s := NewServer(cfg, deps)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s.Handler()
}

type upload struct {
	name string
	body string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(formFieldFiles, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestIndexServesUploadForm(t *testing.T) {
	h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="pdfs"`)
	assert.Contains(t, rec.Body.String(), `action="/generate"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateReturnsAttachment(t *testing.T) {
	h := newTestServer(t, nil)

	req := multipartRequest(t, "/generate", map[string]string{"filename": "anu.pdf"},
		upload{"sem2.txt", semesterTwo},
		upload{"sem1.txt", semesterOne},
		upload{"cover.txt", noTerm},
	)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="anu.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Skipped-Documents"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestGenerateJSONFormat(t *testing.T) {
	h := newTestServer(t, nil)

	req := multipartRequest(t, "/generate", map[string]string{"format": "JSON"}, upload{"sem1.txt", semesterOne})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="CGPA_Certificate.json"`, rec.Header().Get("Content-Disposition"))

	var summary transcript.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "812021104055", summary.Identity.RegisterNumber)
	assert.Equal(t, 8.86, summary.OverallAverage)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		files  []upload
		status int
		code   string
	}{
		{
			name:   "no documents",
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "unknown format",
			fields: map[string]string{"format": "docx"},
			files:  []upload{{"sem1.txt", semesterOne}},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "too many documents",
			files:  []upload{{"a.txt", semesterOne}, {"b.txt", semesterOne}, {"c.txt", semesterOne}, {"d.txt", semesterOne}},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "unreadable document",
			files:  []upload{{"sem1.txt", semesterOne}, {"broken.pdf", "%PDF-1.4 garbage"}},
			status: http.StatusUnprocessableEntity,
			code:   "document_unreadable",
		},
	}

	h := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartRequest(t, "/generate", tt.fields, tt.files...))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestGenerateUnreadableNamesPosition(t *testing.T) {
	h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/generate", nil,
		upload{"sem1.txt", semesterOne},
		upload{"broken.pdf", "%PDF-1.4 garbage"},
	))

	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "could not read document 2 (broken.pdf)", resp.Error.Message)
}

func TestGenerateRejectsNonMultipart(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateBodyTooLarge(t *testing.T) {
	h := newTestServer(t, nil, func(c *Config) { c.MaxUploadBytes = 512 })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/generate", nil, upload{"big.txt", strings.Repeat("A", 4096)}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request_too_large", decode(t, rec).Error.Code)
}

func TestCreateSummaryArchivesAndServes(t *testing.T) {
	archive := newMemoryArchive()
	h := newTestServer(t, archive)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/v1/summaries", nil,
		upload{"sem1.txt", semesterOne},
		upload{"sem2.txt", semesterTwo},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data summaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id := body.Data.SummaryID
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/v1/summaries/"+id, rec.Header().Get("Location"))
	assert.Equal(t, 2, body.Data.Summary.TermCount())
	assert.Equal(t, 8.46, body.Data.Summary.OverallAverage)
	assert.Empty(t, body.Data.Skipped)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"register_number":"812021104055"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/"+id+"/certificate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students/812021104055/summaries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.TotalCount)
}

func TestCreateSummaryArchiveFailureStillSucceeds(t *testing.T) {
	archive := newMemoryArchive()
	archive.err = errors.New("disk full")
	h := newTestServer(t, archive)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/v1/summaries", nil, upload{"sem1.txt", semesterOne}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"archive_failed":true`)
}

func TestSummaryLookupErrors(t *testing.T) {
	h := newTestServer(t, newMemoryArchive())

	tests := []struct {
		path   string
		status int
	}{
		{"/api/v1/summaries/not-a-uuid", http.StatusBadRequest},
		{"/api/v1/summaries/5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c", http.StatusNotFound},
		{"/api/v1/summaries/5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c/certificate?format=xml", http.StatusBadRequest},
		{"/api/v1/students/812021104055/summaries?limit=500", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSummaryEndpointsWithoutArchive(t *testing.T) {
	h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summaries/5f0c3a52-2c1e-4c55-9b3c-8f0d1e1a2b3c", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "not_configured", decode(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/v1/summaries", nil, upload{"sem1.txt", semesterOne}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "summary_id")
}

func TestHealthEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	healthy := NewServer(cfg, Dependencies{Logger: logger.Nop()}).Handler()
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := NewServer(cfg, Dependencies{
		Logger:        logger.Nop(),
		HealthChecker: staticHealth{status: handlers.HealthStatus{Healthy: false, Ready: false, Message: "database down"}},
	}).Handler()

	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database down")

	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"formats":["pdf","json"]`)
}

func TestRateLimitAppliesToUploads(t *testing.T) {
	h := newTestServer(t, nil, func(c *Config) { c.RateLimitPerMinute = 1 })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/generate", nil, upload{"sem1.txt", semesterOne}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/generate", nil, upload{"sem1.txt", semesterOne}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "https://example.edu")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.edu", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{shared.ErrNoDocuments, http.StatusBadRequest},
		{shared.DocumentUnreadable(1, "a.pdf", errors.New("x")), http.StatusUnprocessableEntity},
		{shared.ErrSummaryNotFound, http.StatusNotFound},
		{shared.ErrArchiveDisabled, http.StatusNotImplemented},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
