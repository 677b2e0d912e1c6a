package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("v1").Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "v1", status.Version)
	assert.Equal(t, "No health checks registered", status.Message)
}

func TestCompositeHealthChecker_RequiredFailure(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("database", NewDatabaseCheck(pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))
	c.AddOptionalCheck("cache", NewCacheCheck(pingerFunc(func(context.Context) error { return nil })))

	status := c.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.False(t, status.Degraded)
	assert.Equal(t, "Some checks failed: database", status.Message)
	assert.Equal(t, "connection refused", status.Checks["database"].Message)
	assert.Equal(t, "OK", status.Checks["cache"].Message)
}

func TestCompositeHealthChecker_OptionalFailureDegrades(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("database", NewDatabaseCheck(pingerFunc(func(context.Context) error { return nil })))
	c.AddOptionalCheck("cache", NewCacheCheck(pingerFunc(func(context.Context) error {
		return errors.New("timeout")
	})))

	status := c.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.True(t, status.Degraded)
	assert.Equal(t, "Degraded: cache", status.Message)
	assert.True(t, status.Checks["cache"].Optional)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestCompositeHealthChecker_RemoveCheck(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("database", func(context.Context) error { return errors.New("down") })
	c.RemoveCheck("database")

	assert.True(t, c.Check(context.Background()).Healthy)
}

func TestNewPingCheck_NilDependency(t *testing.T) {
	assert.ErrorIs(t, NewPingCheck(nil)(context.Background()), ErrNilDependency)
}
