// Package http exposes the transcript service over HTTP: the upload form,
// certificate downloads, the JSON summary API and health probes.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shagyeeen/cgpa-shyne/internal/application/command"
	"github.com/shagyeeen/cgpa-shyne/internal/application/query"
	"github.com/shagyeeen/cgpa-shyne/internal/interface/http/handlers"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxUploadBytes - maximum size of a multipart upload body.
	MaxUploadBytes int64

	// MaxDocuments is shown on the upload form.
	MaxDocuments int

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// Title is the heading of the upload form.
	Title string

	// Version is reported by the info and health endpoints.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       60 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		MaxUploadBytes:     32 << 20,
		MaxDocuments:       16,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 60,
		Title:              "CGPA Certificate Generator",
		Version:            "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	GenerateCertificateHandler *command.GenerateCertificateHandler

	// Query Handlers (CQRS Read Side)
	GetSummaryHandler    *query.GetSummaryHandler
	ListSummariesHandler *query.ListSummariesHandler

	Logger *logger.Logger

	// HealthChecker is optional; without it /health reports the server alone.
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *logger.Logger

	// Nil when uploads are not throttled
	limiter *uploadLimiter

	mu        sync.RWMutex
	listener  net.Listener
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	defaults := DefaultConfig()
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if config.Title == "" {
		config.Title = defaults.Title
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerMinute > 0 {
		s.limiter = newUploadLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.buildMiddlewareChain(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)

	// ─────────────────────────────────────────────────────────────────────────
	// Upload Form
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.HandleFunc("POST /generate", s.handleGenerate)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1", s.handleInfo)
	s.router.HandleFunc("POST /api/v1/summaries", s.handleCreateSummary)
	s.router.HandleFunc("GET /api/v1/summaries/{id}", s.handleGetSummary)
	s.router.HandleFunc("GET /api/v1/summaries/{id}/certificate", s.handleGetCertificate)
	s.router.HandleFunc("GET /api/v1/students/{register}/summaries", s.handleListStudentSummaries)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start binds the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server already running")
	}
	s.listener = ln
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", ln.Addr().String()))

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync runs Start in a goroutine. The channel yields at most one error
// and is closed when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.Start(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown stops accepting uploads and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}

	s.mu.Lock()
	running := s.listener != nil
	s.listener = nil
	s.mu.Unlock()

	if running {
		s.logger.Info("shutting down HTTP server")
	}
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns how long the server has been serving, or 0 when stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the bound address while serving and the configured one otherwise.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address()
}
