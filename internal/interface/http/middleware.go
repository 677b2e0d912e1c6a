package http

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

type middleware func(http.Handler) http.Handler

// chain wraps h so that the first middleware sees the request first.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// buildMiddlewareChain wraps the router. The request ID is outermost so every
// response carries it, and CORS runs before the limiter so browsers can read
// a 429.
func (s *Server) buildMiddlewareChain(router http.Handler) http.Handler {
	mws := []middleware{s.withRequestID}
	if s.config.EnableCORS {
		mws = append(mws, s.withCORS)
	}
	if s.limiter != nil {
		mws = append(mws, s.limitUploads)
	}
	mws = append(mws, s.recoverPanics, s.logRequests)
	return chain(router, mws...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Request ID
// ──────────────────────────────────────────────────────────────────────────────

type contextKey string

const contextKeyRequestID contextKey = "request_id"

const maxRequestIDLength = 128

// withRequestID accepts a caller-supplied X-Request-ID or mints one and
// attaches a request-scoped logger to the context.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// ──────────────────────────────────────────────────────────────────────────────
// Access log
// ──────────────────────────────────────────────────────────────────────────────

// statusRecorder remembers the first status code and counts body bytes.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		logger.FromContext(r.Context()).Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Int64("bytes", rec.bytes),
			logger.Latency(time.Since(start)),
			logger.String("ip", clientIP(r)),
			logger.String("user_agent", r.UserAgent()),
		)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			logger.FromContext(r.Context()).Error("panic recovered",
				logger.Any("panic", p),
				logger.String("path", r.URL.Path),
				logger.String("stack", string(debug.Stack())),
			)
			writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// CORS
// ──────────────────────────────────────────────────────────────────────────────

const exposedHeaders = "Content-Disposition, X-Request-ID, X-Skipped-Documents, X-Summary-ID"

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", exposedHeaders)
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Upload rate limit
// ──────────────────────────────────────────────────────────────────────────────

// limitUploads throttles POST requests per client IP. Reads and probes pass.
func (s *Server) limitUploads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		ok, wait := s.limiter.take(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many uploads, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers proxy headers and falls back to the peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
