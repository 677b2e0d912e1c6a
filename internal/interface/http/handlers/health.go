package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	// Check runs every registered check and returns the aggregated status.
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc performs a single health check.
// It returns an error if the check fails.
type HealthCheckFunc func(ctx context.Context) error

// Pinger is satisfied by the postgres connection and the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	// Healthy is false when a required check fails.
	Healthy bool `json:"healthy"`

	// Ready mirrors Healthy; the service can take uploads.
	Ready bool `json:"ready"`

	// Degraded is true when only optional checks fail (e.g. the text cache).
	Degraded bool `json:"degraded,omitempty"`

	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type namedCheck struct {
	fn       HealthCheckFunc
	optional bool
}

// CompositeHealthChecker aggregates multiple health checks.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]namedCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a new composite health checker.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]namedCheck),
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// SetTimeout sets the timeout for individual health checks.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// AddCheck adds a required check. A failure makes the service unhealthy.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(name, check, false)
}

// AddOptionalCheck adds a check whose failure only marks the service degraded.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(name, check, true)
}

func (c *CompositeHealthChecker) add(name string, check HealthCheckFunc, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = namedCheck{fn: check, optional: optional}
}

// RemoveCheck removes a named health check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check performs all health checks concurrently and returns the aggregated status.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]namedCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := check.fn(checkCtx)

			result := CheckResult{
				Healthy:  err == nil,
				Optional: check.optional,
				Message:  "OK",
				Duration: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				result.Message = err.Error()
			}

			mu.Lock()
			status.Checks[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failed, degraded []string
	for name, result := range status.Checks {
		switch {
		case result.Healthy:
		case result.Optional:
			degraded = append(degraded, name)
		default:
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	sort.Strings(degraded)

	switch {
	case len(failed) > 0:
		status.Healthy = false
		status.Ready = false
		status.Degraded = len(degraded) > 0
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	case len(degraded) > 0:
		status.Degraded = true
		status.Message = "Degraded: " + strings.Join(degraded, ", ")
	default:
		status.Message = "All checks passed"
	}

	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMON CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// ErrNilDependency is returned by checks built around a missing dependency.
var ErrNilDependency = errors.New("dependency not initialized")

// NewPingCheck wraps a Pinger as a health check.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return ErrNilDependency
		}
		return p.Ping(ctx)
	}
}

// NewDatabaseCheck creates a check for the summary archive database.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return NewPingCheck(db)
}

// NewCacheCheck creates a check for the redis text cache.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return NewPingCheck(cache)
}
