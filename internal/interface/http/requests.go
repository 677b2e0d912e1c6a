package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shagyeeen/cgpa-shyne/internal/application/command"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BINDING
// ══════════════════════════════════════════════════════════════════════════════

const (
	// formFieldFiles carries the uploaded transcripts.
	formFieldFiles = "pdfs"

	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 8 << 20
)

// errRequestTooLarge is returned when the upload exceeds MaxUploadBytes.
var errRequestTooLarge = errors.New("request body too large")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// generateRequest is the multipart form posted to /generate and
// /api/v1/summaries.
type generateRequest struct {
	Format   string `form:"format" validate:"omitempty,oneof=pdf json"`
	FileName string `form:"filename" validate:"omitempty,max=200"`
	Archive  bool   `form:"archive"`

	Documents []command.Document `form:"pdfs"`
}

func (g generateRequest) command(correlationID string) command.GenerateCertificateCommand {
	return command.GenerateCertificateCommand{
		Documents:     g.Documents,
		Format:        g.Format,
		FileName:      g.FileName,
		Archive:       g.Archive,
		CorrelationID: correlationID,
	}
}

// summaryPath identifies an archived summary.
type summaryPath struct {
	ID     string `form:"id" validate:"required,uuid"`
	Format string `form:"format" validate:"omitempty,oneof=pdf json"`
}

// studentSummariesPath lists archived summaries of one student.
type studentSummariesPath struct {
	RegisterNumber string `form:"register" validate:"required,alphanum,max=32"`
	Limit          int    `form:"limit" validate:"min=0,max=100"`
}

// parseGenerateRequest reads the multipart upload. The body is capped at
// maxBytes; every file part under formFieldFiles becomes one document in
// upload order.
func parseGenerateRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (generateRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return generateRequest{}, errRequestTooLarge
		}
		return generateRequest{}, shared.WrapError("http", "ParseUpload", shared.ErrInvalidInput, "expected a multipart/form-data upload", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := generateRequest{
		Format:   strings.ToLower(strings.TrimSpace(r.FormValue("format"))),
		FileName: strings.TrimSpace(r.FormValue("filename")),
		Archive:  parseBool(r.FormValue("archive")),
	}
	if err := validate.Struct(req); err != nil {
		return generateRequest{}, err
	}

	for _, fh := range r.MultipartForm.File[formFieldFiles] {
		data, err := readPart(fh)
		if err != nil {
			if isBodyTooLarge(err) {
				return generateRequest{}, errRequestTooLarge
			}
			return generateRequest{}, shared.DocumentUnreadable(len(req.Documents)+1, fh.Filename, err)
		}
		req.Documents = append(req.Documents, command.Document{Name: fh.Filename, Data: data})
	}

	return req, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return errors.Is(err, errRequestTooLarge) || strings.Contains(err.Error(), "request body too large")
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// errorStatus maps an error to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "validation_error"
	case isBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge, "request_too_large"
	case shared.IsUnreadable(err):
		return http.StatusUnprocessableEntity, "document_unreadable"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsNotConfigured(err):
		return http.StatusNotImplemented, "not_configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request_cancelled"
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError writes err as a JSON error. Server-side failures are logged and
// their details are not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSONErrorWithDetails(w, status, code, "Invalid request parameters", describeValidation(verrs))
		return
	}

	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, status, code, http.StatusText(status))
		return
	}

	writeJSONError(w, status, code, clientMessage(err))
}

// clientMessage returns the message of the outermost domain error.
func clientMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// ──────────────────────────────────────────────────────────────────────────────
// Query parameters
// ──────────────────────────────────────────────────────────────────────────────

// queryParams reads optional query parameters with defaults.
type queryParams url.Values

func queryOf(r *http.Request) queryParams { return queryParams(r.URL.Query()) }

func (q queryParams) String(key, def string) string {
	if v := url.Values(q).Get(key); v != "" {
		return v
	}
	return def
}

// Int falls back to def when the value is missing or not a number.
func (q queryParams) Int(key string, def int) int {
	n, err := strconv.Atoi(url.Values(q).Get(key))
	if err != nil {
		return def
	}
	return n
}

func (q queryParams) Bool(key string) bool {
	return parseBool(url.Values(q).Get(key))
}

// parseBool accepts the spellings HTML checkboxes and curl users send.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
