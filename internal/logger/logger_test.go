package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_WritesModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("chat", "persistence failed", map[string]interface{}{"session_id": "s1"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "persistence failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "chat", ctx["module"])
	assert.Equal(t, map[string]interface{}{"session_id": "s1"}, ctx["details"])
}

func TestZapLogger_ErrorAddsErrorField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Error("gateway", "upstream failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestZapLogger_NilDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Info("stream", "started", nil)

	require.Len(t, logs.All(), 1)
}

func TestNewFileLogger_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jz.log")
	l := NewFileLogger(path, "warn")

	l.Info("test", "hidden", nil)
	l.Warn("test", "visible", nil)
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.True(t, strings.Contains(string(data), "visible"))
}

func TestParseLevel_Fallback(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
}
