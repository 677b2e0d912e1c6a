package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := New("test", opts...)
	cb.now = c.now
	return cb, c
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(WithFailureThreshold(2))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejected(err))
	assert.False(t, called)
	assert.Equal(t, 1, cb.Counts().Rejected)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cb, clk := newTestBreaker(
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(time.Second),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	clk.advance(2 * time.Second)

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clk := newTestBreaker(WithFailureThreshold(1), WithTimeout(time.Second))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	clk.advance(2 * time.Second)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	badInput := errors.New("bad input")
	cb, _ := newTestBreaker(
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, badInput) }),
	)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return badInput })
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 3, cb.Counts().TotalSuccesses)
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, cb.Execute(ctx, succeed), context.Canceled)
	assert.Zero(t, cb.Counts().Requests)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(WithFailureThreshold(1))
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
	assert.Equal(t, "test", cb.Name())
}
