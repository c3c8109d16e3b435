package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New(&Config{LogFile: path, MaxSize: 1, Quiet: true})
	require.NoError(t, err)

	log.WithOperation("buy").Info("Buy started", zap.String("pool", "P"))
	log.WithTransaction("sig123").Warn("Not confirmed")
	log.LogError("Buy failed", errors.New("boom"), zap.String("step", "submit"))
	log.Debug("hidden at info level")
	require.NoError(t, log.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 3)

	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "buy", entries[0]["operation"])
	assert.NotEmpty(t, entries[0]["correlation_id"])
	assert.Contains(t, entries[0], "timestamp")

	assert.Equal(t, "sig123", entries[1]["signature"])

	assert.Equal(t, "ERROR", entries[2]["level"])
	assert.Equal(t, "boom", entries[2]["error"])
	assert.Equal(t, "submit", entries[2]["step"])
}

func TestLogger_DevelopmentLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New(&Config{LogFile: path, Development: true, Quiet: true})
	require.NoError(t, err)

	done := log.TrackPerformance("quote")
	done()
	log.WithTrade("P", "M", 0.001, 0.05).Debug("trade")
	require.NoError(t, log.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 3)
	assert.Equal(t, "Operation completed", entries[1]["msg"])
	assert.Contains(t, entries[1], "duration_ms")
	assert.Equal(t, 0.05, entries[2]["slippage"])
}

func TestLogger_CorrelationIDsDiffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New(&Config{LogFile: path, Quiet: true})
	require.NoError(t, err)

	log.WithOperation("a").Info("one")
	log.WithOperation("a").Info("two")
	require.NoError(t, log.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0]["correlation_id"], entries[1]["correlation_id"])
}

func TestNew_RequiresLogFile(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}
