// Package retry runs an operation again with exponential backoff when it
// fails with an error marked as transient.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MARKERS
// ══════════════════════════════════════════════════════════════════════════════

type markKind int

const (
	markRetryable markKind = iota + 1
	markPermanent
)

// markedError tags an error as retryable or permanent without changing its text.
type markedError struct {
	kind markKind
	err  error
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

func mark(kind markKind, err error) error {
	if err == nil {
		return nil
	}
	return &markedError{kind: kind, err: err}
}

func hasMark(err error, kind markKind) bool {
	var m *markedError
	return errors.As(err, &m) && m.kind == kind
}

// Retryable marks err as transient. Nil stays nil.
func Retryable(err error) error { return mark(markRetryable, err) }

// Permanent marks err as final even when RetryIf would accept it. Nil stays nil.
func Permanent(err error) error { return mark(markPermanent, err) }

// IsRetryable reports whether err carries the retryable mark.
func IsRetryable(err error) bool { return hasMark(err, markRetryable) }

// IsPermanent reports whether err carries the permanent mark.
func IsPermanent(err error) bool { return hasMark(err, markPermanent) }

// unmark strips an outer marker so callers see the original error.
func unmark(err error) error {
	if m, ok := err.(*markedError); ok {
		return m.err
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Backoff describes how long to wait between attempts.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter spreads each delay by up to ±Jitter of its value (0..1).
	Jitter float64
}

// Delay returns the wait after the given failed attempt (1-based) before
// jitter is applied.
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial)
	for i := 1; i < attempt && d < float64(b.Max); i++ {
		d *= b.Multiplier
	}
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Number int
	Err    error
	Delay  time.Duration
}

// Policy configures a Retrier.
type Policy struct {
	// MaxAttempts counts the first call. Default: 3
	MaxAttempts int
	Backoff     Backoff
	// RetryIf decides which errors are retried. Nil retries only errors
	// marked with Retryable.
	RetryIf func(error) bool
	OnRetry func(Attempt)
}

// DefaultPolicy returns three attempts starting at 100ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: Backoff{
			Initial:    100 * time.Millisecond,
			Max:        30 * time.Second,
			Multiplier: 2,
			Jitter:     0.1,
		},
	}
}

// Option adjusts a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.MaxAttempts = n
		}
	}
}

// WithBackoff replaces the delay schedule. Invalid fields keep their defaults.
func WithBackoff(b Backoff) Option {
	return func(p *Policy) {
		if b.Initial > 0 {
			p.Backoff.Initial = b.Initial
		}
		if b.Max > 0 {
			p.Backoff.Max = b.Max
		}
		if b.Multiplier >= 1 {
			p.Backoff.Multiplier = b.Multiplier
		}
		if b.Jitter >= 0 && b.Jitter <= 1 {
			p.Backoff.Jitter = b.Jitter
		}
	}
}

// WithRetryIf sets the retry predicate.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) { p.RetryIf = fn }
}

// WithOnRetry sets a callback run before each wait.
func WithOnRetry(fn func(Attempt)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier executes operations under a Policy. It is safe for concurrent use.
type Retrier struct {
	policy Policy
	jitter func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Retrier from the default policy and opts.
func New(opts ...Option) *Retrier {
	policy := DefaultPolicy()
	for _, opt := range opts {
		opt(&policy)
	}
	return &Retrier{
		policy: policy,
		jitter: rand.Float64,
		sleep:  sleepContext,
	}
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy { return r.policy }

// Do calls operation until it succeeds, fails with a non-retryable error, or
// the attempt budget is spent. Markers are stripped from the returned error.
// When ctx ends between attempts the last operation error wins over ctx.Err.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = unmark(err)

		if IsPermanent(err) || !r.shouldRetry(err) || attempt == r.policy.MaxAttempts {
			return lastErr
		}

		delay := r.delay(attempt)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(Attempt{Number: attempt, Err: lastErr, Delay: delay})
		}
		if r.sleep(ctx, delay) != nil {
			return lastErr
		}
	}

	return lastErr
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.policy.RetryIf != nil {
		return r.policy.RetryIf(err)
	}
	return IsRetryable(err)
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.policy.Backoff.Delay(attempt))
	if j := r.policy.Backoff.Jitter; j > 0 {
		d += d * j * (r.jitter()*2 - 1)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do builds a one-off Retrier from opts and runs operation.
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, operation)
}

// Value runs operation through r and returns its result.
func Value[T any](ctx context.Context, r *Retrier, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := operation(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

// ArchiveRetrier retries summary archive writes marked Retryable. Writes run
// on the request path, so the budget stays short.
func ArchiveRetrier(onRetry func(Attempt)) *Retrier {
	return New(
		WithMaxAttempts(3),
		WithBackoff(Backoff{Initial: 50 * time.Millisecond, Max: 500 * time.Millisecond, Multiplier: 2, Jitter: 0.1}),
		WithOnRetry(onRetry),
	)
}

// StartupRetrier retries every error while the server connects to its
// backing services at boot.
func StartupRetrier(onRetry func(Attempt)) *Retrier {
	return New(
		WithMaxAttempts(5),
		WithBackoff(Backoff{Initial: 500 * time.Millisecond, Max: 5 * time.Second, Multiplier: 2, Jitter: 0.2}),
		WithRetryIf(func(error) bool { return true }),
		WithOnRetry(onRetry),
	)
}
