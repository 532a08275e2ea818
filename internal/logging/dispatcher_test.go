package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestZerolog(buf *bytes.Buffer) zerolog.Logger {
	return zerolog.New(buf).Level(zerolog.DebugLevel)
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewDispatcherLogger(newTestZerolog(&buf))

	l.Debug("debug msg", "command", ":TIME:")
	l.Info("info msg", "count", 3)
	l.Error("error msg", "error", "boom")

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"command":":TIME:"`)
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, "b", "two"})
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, fields)

	// odd trailing key is dropped
	fields = toFields([]any{"a", 1, "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)

	// non-string keys are skipped
	fields = toFields([]any{42, "x", "ok", true})
	assert.Equal(t, map[string]any{"ok": true}, fields)
}
