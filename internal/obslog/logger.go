// Package obslog builds the process-wide structured logger. Fatal errors
// raised during a run (fatal I/O, protocol errors, failed replacement
// connects) are logged through it as well as printed to stderr;
// configuration errors and errors returned to main (such as a failed seed
// connect) are printed to stderr only. The benchmark's human-facing
// progress line and final report stay on plain stdout writes so scripts
// scraping that output see a stable format.
package obslog

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/adred-codev/redisbench/internal/config"
)

// New builds a zerolog.Logger from the configured level and format.
func New(cfg *config.Config) zerolog.Logger {
	var output io.Writer = os.Stderr

	var level zerolog.Level
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", "redisbench").
		Logger()
}

// LogError logs err with msg and optional structured fields.
func LogError(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// LogErrorWithStack logs err with msg plus the caller's stack, for the
// handful of diagnostics (protocol errors, unexpected disconnects) worth
// a full trace rather than just the error chain.
func LogErrorWithStack(logger zerolog.Logger, err error, msg string) {
	logger.Error().Err(err).Str("stack", string(debug.Stack())).Msg(msg)
}
