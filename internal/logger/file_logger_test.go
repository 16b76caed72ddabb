package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestNew_FileSink(t *testing.T) {
	dir := t.TempDir()
	l, err := New("BTCUSDT", "1m", Options{Level: "info", Dir: dir})
	require.NoError(t, err)

	path := l.GetLogPath()
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "BTCUSDT_1m_"))

	l.Debug("hidden %d", 1)
	l.Info("price %.2f", 101.5)
	l.LogTradeExecution("BUY", "ord-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 84, 11.9, 1000, false)
	l.LogError("fetch", errors.New("boom"))
	require.NoError(t, l.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 3, "debug is below the info threshold")

	assert.Equal(t, "price 101.50", entries[0]["msg"])
	assert.Equal(t, "BTCUSDT", entries[0]["symbol"])
	assert.Equal(t, "1m", entries[0]["interval"])
	assert.Equal(t, "INFO", entries[0]["kind"])

	assert.Equal(t, "order executed", entries[1]["msg"])
	assert.Equal(t, "TRADE", entries[1]["kind"])
	assert.Equal(t, "BUY", entries[1]["side"])
	assert.Equal(t, 84.0, entries[1]["price"])

	assert.Equal(t, "fetch", entries[2]["msg"])
	assert.Equal(t, "boom", entries[2]["error"])
}

func TestWith_AddsFieldsWithoutOwningFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New("", "15m", Options{Dir: dir})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(l.GetLogPath()), "flipside_15m_"))

	child := l.With(zap.String("component", "scheduler"))
	child.Warning("slow tick")
	require.NoError(t, child.Close(), "closing a child leaves the file open")

	l.Info("still writable")
	require.NoError(t, l.Close())

	entries := readEntries(t, l.GetLogPath())
	require.Len(t, entries, 2)
	assert.Equal(t, "scheduler", entries[0]["component"])
	assert.Equal(t, "warn", entries[0]["level"])
	assert.NotContains(t, entries[1], "component")
}

func TestNopAndOrNop(t *testing.T) {
	var nilLogger *Logger
	l := OrNop(nilLogger)
	require.NotNil(t, l)
	l.Info("discarded")
	assert.NoError(t, l.Close())

	n := NewNop()
	assert.Same(t, n, OrNop(n))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
