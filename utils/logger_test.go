package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLoggerWith(LoggerOptions{Level: "debug", Format: "json", Out: &buf})
	require.NoError(t, err)

	l.With("stage", "convert").Info("[converter] wrote %d records", 42)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "convert", line["stage"])
	assert.Equal(t, "[converter] wrote 42 records", line["message"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLoggerWith(LoggerOptions{Level: "warn", Format: "json", Out: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Debug("hidden")
	l.Warn("shown")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerBadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLoggerWith(LoggerOptions{Level: "loud", Format: "json", Out: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_processing.log")
	var buf bytes.Buffer
	l, err := NewLoggerWith(LoggerOptions{Format: "console", Out: &buf, File: path})
	require.NoError(t, err)

	l.Error("[loader] boom")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[loader] boom")
	assert.Contains(t, buf.String(), "[loader] boom")
}

func TestNewLoggerWritesToStderr(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stderr")
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = f
	t.Cleanup(func() {
		os.Stderr = orig
		_ = f.Close()
	})

	l := NewLogger()
	l.Debug("hidden")
	l.Error("load: %d rows failed", 3)

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "load: 3 rows failed")
	assert.NotContains(t, string(data), "hidden")
}
