package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"snapvault/internal/config"
)

const logLevelEnvKey = "SNAPVAULT_LOG_LEVEL"

// levelSource records which setting supplied the effective log level.
type levelSource string

const (
	sourceFlag    levelSource = "flag"
	sourceEnv     levelSource = "env"
	sourceConfig  levelSource = "config"
	sourceDefault levelSource = "default"
)

var namedLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// configureLoggerForCLI installs the default logger. An invalid flag value is
// an error; invalid env or config values fall back to the default level and
// return a warning line for the caller to print.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(raw)
	if err == nil {
		slog.SetDefault(newLogger(level))
		return "", nil
	}
	if source == sourceFlag {
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	}

	fallback, _ := parseLogLevel("")
	slog.SetDefault(newLogger(fallback))
	switch source {
	case sourceEnv:
		return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
	case sourceConfig:
		return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel), nil
	default:
		return "", nil
	}
}

// selectedLogLevel applies flag > env > config precedence.
func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	candidates := []struct {
		value  string
		source levelSource
	}{
		{flagLevel, sourceFlag},
		{envLevel, sourceEnv},
		{configLevel, sourceConfig},
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.value) != "" {
			return c.value, c.source
		}
	}
	return "", sourceDefault
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		value = config.DefaultLogLevel
	}
	if level, ok := namedLevels[value]; ok {
		return level, nil
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	return slog.LevelWarn, fmt.Errorf("invalid log level %q", raw)
}

// newLogger writes text records to stderr without timestamps; stdout is
// reserved for command output.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
