package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

const apiVersion = "v1"

// JSONResponse is the envelope of every JSON body the service writes.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta carries envelope metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

func stamp(meta *ResponseMeta) *ResponseMeta {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = apiVersion
	return meta
}

// respond writes an envelope. The request ID is taken from the response
// headers set by the request ID middleware.
func respond(w http.ResponseWriter, status int, body JSONResponse) {
	if body.RequestID == "" {
		body.RequestID = w.Header().Get("X-Request-ID")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	respond(w, status, JSONResponse{Success: status < 300, Data: data, Meta: stamp(nil)})
}

func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	respond(w, status, JSONResponse{
		Success:   status < 300,
		Data:      data,
		Meta:      stamp(meta),
		RequestID: getRequestID(r.Context()),
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSONErrorWithDetails(w, status, code, message, "")
}

func writeJSONErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	respond(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
		Meta:  stamp(nil),
	})
}

// writeAttachment sends a rendered certificate. Inline lets browsers show
// PDFs instead of downloading them.
func writeAttachment(w http.ResponseWriter, contentType, fileName string, body []byte, inline bool) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, fileName))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
