package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelWarn,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"-4":      slog.LevelDebug,
		"8":       slog.LevelError,
	}
	for raw, want := range cases {
		got, err := parseLogLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := parseLogLevel("chatty")
	assert.Error(t, err)
}

func TestLogLevelPrecedence(t *testing.T) {
	tests := []struct {
		flag, env, cfg string
		wantRaw        string
		wantSource     levelSource
	}{
		{"error", "debug", "info", "error", sourceFlag},
		{"", "debug", "info", "debug", sourceEnv},
		{"", " ", "info", "info", sourceConfig},
		{"", "", "", "", sourceDefault},
	}
	for _, tt := range tests {
		raw, source := selectedLogLevel(tt.flag, tt.env, tt.cfg)
		assert.Equal(t, tt.wantRaw, raw)
		assert.Equal(t, tt.wantSource, source)
	}
}

func TestConfigureLoggerFallbacks(t *testing.T) {
	t.Setenv(logLevelEnvKey, "chatty")
	warning, err := configureLoggerForCLI("info", "")
	require.NoError(t, err)
	assert.Empty(t, warning, "a valid flag wins over a bad env value")

	warning, err = configureLoggerForCLI("", "")
	require.NoError(t, err)
	assert.Contains(t, warning, logLevelEnvKey)

	t.Setenv(logLevelEnvKey, "")
	warning, err = configureLoggerForCLI("", "chatty")
	require.NoError(t, err)
	assert.Contains(t, warning, "log_level")
	assert.Contains(t, warning, "defaulting to warn")

	_, err = configureLoggerForCLI("chatty", "")
	assert.Error(t, err)
}

func TestNewLoggerOmitsTime(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStderr := os.Stderr
	os.Stderr = w
	logger := newLogger(slog.LevelInfo)
	os.Stderr = oldStderr

	logger.Debug("hidden")
	logger.Info("snapshot committed", "snapshot_id", 7)
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	out := buf.String()
	assert.NotContains(t, out, "time=")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "snapshot_id=7")
}
