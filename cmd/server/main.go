// Package main is the entry point of the CGPA certificate service.
//
// The server accepts semester transcripts, computes SGPA per term and the
// overall CGPA, and returns a printable certificate. PostgreSQL (summary
// archive) and Redis (extracted-text cache) are optional.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shagyeeen/cgpa-shyne/config"

	// Application layer
	"github.com/shagyeeen/cgpa-shyne/internal/application/command"
	"github.com/shagyeeen/cgpa-shyne/internal/application/query"

	// Domain
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"

	// Infrastructure layer
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/document"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/persistence/postgres"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/persistence/redis"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/report"

	// Interface layer
	httpserver "github.com/shagyeeen/cgpa-shyne/internal/interface/http"
	"github.com/shagyeeen/cgpa-shyne/internal/interface/http/handlers"

	// Packages
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
	"github.com/shagyeeen/cgpa-shyne/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CGPA certificate service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("archive", cfg.Database.ArchiveEnabled),
		logger.Bool("text_cache", cfg.Redis.Enabled),
	)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SUMMARY ARCHIVE (PostgreSQL, optional)
	// ─────────────────────────────────────────────────────────────────────────
	// Interfaces stay nil when a backend is disabled.
	var archive transcript.Archive

	if cfg.Database.ArchiveEnabled {
		conn, err := connectDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database connection")
			conn.Close()
		}()

		archive = postgres.NewSummaryRepository(conn)
		health.AddCheck("database", handlers.NewDatabaseCheck(conn))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. TEXT CACHE (Redis, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var extractor command.TextExtractor = document.NewExtractor(log)
	var summaryCache query.SummaryCache

	if cfg.Redis.Enabled {
		cache, err := connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			// The cache only saves work; run without it.
			log.Warn("redis unavailable, continuing without text cache", logger.Err(err))
		} else {
			defer func() {
				log.Info("closing redis connection")
				_ = cache.Close()
			}()

			extractor = document.NewCachedExtractor(extractor, redis.NewTextCache(cache, cfg.Redis.TextCacheTTL), log)
			summaryCache = redis.NewSummaryCache(cache, cfg.Redis.SummaryCacheTTL)
			health.AddOptionalCheck("cache", handlers.NewCacheCheck(cache))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	renderers := report.NewRegistry(cfg.Report.Title)

	generateHandler := command.NewGenerateCertificateHandler(
		extractor,
		transcript.NewEngine(),
		renderers,
		archive,
		command.GenerateCertificateHandlerConfig{
			MaxDocuments:    cfg.Extraction.MaxDocuments,
			Concurrency:     cfg.Extraction.Concurrency,
			DefaultFileName: cfg.Report.FileName,
		},
		log,
	)

	deps := httpserver.Dependencies{
		GenerateCertificateHandler: generateHandler,
		Logger:                     log,
		HealthChecker:              health,
	}
	if archive != nil {
		deps.GetSummaryHandler = query.NewGetSummaryHandler(archive, summaryCache, renderers, log)
		deps.ListSummariesHandler = query.NewListSummariesHandler(archive)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		MaxUploadBytes:     cfg.HTTP.MaxUploadBytes(),
		MaxDocuments:       cfg.Extraction.MaxDocuments,
		EnableCORS:         len(cfg.HTTP.AllowedOrigins) > 0,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimit,
		Version:            cfg.App.Version,
	}, deps)

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("CGPA certificate service is running", logger.String("http_address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	addCaller := cfg.Observability.AddCaller || cfg.IsDevelopment()

	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		AddCaller: addCaller,
	}).With(logger.String("service", cfg.App.Name))
}

// connectDatabase opens the pool with retries and applies migrations.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*postgres.Connection, error) {
	log.Info("connecting to database")

	retrier := retry.StartupRetrier(func(a retry.Attempt) {
		log.Warn("database connection attempt failed",
			logger.Int("attempt", a.Number),
			logger.Duration("delay", a.Delay),
			logger.Err(a.Err),
		)
	})

	conn, err := retry.Value(ctx, retrier, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnectionFromURL(ctx, cfg.URL, postgres.PoolOptions{
			MaxConns:        int32(cfg.MaxOpenConns),
			MinConns:        int32(cfg.MaxIdleConns),
			MaxConnLifetime: cfg.ConnMaxLifetime,
			MaxConnIdleTime: cfg.ConnMaxIdleTime,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	log.Info("running database migrations")
	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return conn, nil
}

// connectRedis connects to the text cache.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Cache, error) {
	log.Info("connecting to redis", logger.String("host", cfg.Host), logger.Int("port", cfg.Port))

	cache, err := redis.NewCache(ctx, redis.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		KeyPrefix:    cfg.KeyPrefix,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return nil, err
	}

	log.Info("redis connection established")
	return cache, nil
}
