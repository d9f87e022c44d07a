package ctl

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// logger writes human-readable lines to stderr so stdout stays clean for
// command output.
var logger = newLogger(os.Stderr, envStr("HVXCTL_LOG_LEVEL", "info"))

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).
		Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel adjusts the CLI log level.
func SetLogLevel(level string) { logger = logger.Level(parseLevel(level)) }

func debug(format string, a ...any) { logger.Debug().Msgf(format, a...) }
func info(format string, a ...any)  { logger.Info().Msgf(format, a...) }
func warn(format string, a ...any)  { logger.Warn().Msgf(format, a...) }

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
