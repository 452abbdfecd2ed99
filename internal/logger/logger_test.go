package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	buf := &bytes.Buffer{}
	Setup("debug", "text", buf)
	return buf
}

func TestErr_WrapsAndLogs(t *testing.T) {
	buf := captureDefault(t)
	sentinel := errors.New("boom")

	err := New("repositories").Function("Create").Err("failed to create", sentinel, "id", "abc")

	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, "failed to create: boom", err.Error())
	assert.Contains(t, buf.String(), "package=repositories")
	assert.Contains(t, buf.String(), "function=Create")
	assert.Contains(t, buf.String(), "id=abc")
}

func TestError_ReturnsMessage(t *testing.T) {
	buf := captureDefault(t)

	err := New("controllers").File("template").Error("name is required", "name", "")

	assert.EqualError(t, err, "name is required")
	assert.Contains(t, buf.String(), "file=template")
}

func TestDebug_FilteredByLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	buf := &bytes.Buffer{}
	Setup("warn", "json", buf)

	log := New("test")
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
