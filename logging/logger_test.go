package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*AutoMeshLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	cfg.AddSource = false
	return NewLogger(cfg), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestAutoMeshLogger_KeyValueArgsBecomeAttrs(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)

	l.Info("automation created", "automation_id", "auto-123", "tenant_id", "t-1")

	entry := lastEntry(t, buf)
	assert.Equal(t, "automation created", entry["msg"], "message stays verbatim")
	assert.Equal(t, "auto-123", entry["automation_id"])
	assert.Equal(t, "t-1", entry["tenant_id"])
}

func TestAutoMeshLogger_DanglingKeyIsFlagged(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)

	l.Info("odd args", "dangling")

	entry := lastEntry(t, buf)
	assert.Equal(t, "odd args", entry["msg"])
	assert.Equal(t, "dangling", entry[badKey])
}

func TestAutoMeshLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelWarn)

	l.Info("suppressed", "key", "value")
	assert.Zero(t, buf.Len())

	l.Warn("emitted", "key", "value")
	entry := lastEntry(t, buf)
	assert.Equal(t, "emitted", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestAutoMeshLogger_ContextAttrsCarryOver(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)

	l.WithComponent("engine").WithRun("t-1", "exec-9").Info("run finished", "status", "SUCCESS")

	entry := lastEntry(t, buf)
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "t-1", entry["tenant_id"])
	assert.Equal(t, "exec-9", entry["execution_id"])
	assert.Equal(t, "SUCCESS", entry["status"])
}
