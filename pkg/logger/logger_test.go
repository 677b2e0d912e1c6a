package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo})

	log.With(Component("engine")).Info("summary built",
		TermNumber(3),
		Average("cgpa", 8.46),
		Err(errors.New("boom")),
	)
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "summary built", entry.Message)
	assert.Equal(t, "engine", entry.Fields["component"])
	assert.Equal(t, float64(3), entry.Fields["term"])
	assert.Equal(t, 8.46, entry.Fields["cgpa"])
	assert.Equal(t, "boom", entry.Fields["error"])
	assert.Empty(t, entry.Caller)
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Options{Output: &buf, Level: LevelDebug})
	_ = parent.With(SummaryID("abc"))

	parent.Debug("plain")

	assert.NotContains(t, buf.String(), "summary_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestContext(t *testing.T) {
	log := Nop()
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
	assert.False(t, log.Enabled(LevelError))
}
