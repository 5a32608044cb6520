package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestInfo_WritesMessageAndAttrs(t *testing.T) {
	l, buf := newBufferLogger()

	l.Info(context.Background(), "sync pass finished", "user", "u1")

	entry := lastEntry(t, buf)
	assert.Equal(t, "sync pass finished", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "u1", entry["user"])
}

func TestWith_AddsPersistentAttrs(t *testing.T) {
	l, buf := newBufferLogger()

	child := l.With("component", "syncer")
	child.Warn(context.Background(), "push failed")

	entry := lastEntry(t, buf)
	assert.Equal(t, "syncer", entry["component"])
	assert.Equal(t, "WARN", entry["level"])
}
