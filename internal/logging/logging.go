// Package logging configures the process-wide zerolog logger once at
// startup: a human-readable console writer when stderr is a TTY, bare JSON
// lines otherwise (container/CI logs, piped output), matching the split the
// teacher's entrypoint made inline in main.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Options configures the global logger. Level accepts "debug", "info",
// "warn" (or "warning") and "error", case-insensitively; any other value,
// including an empty one or another zerolog level name, falls back to info.
type Options struct {
	Level    string
	ForceTTY bool
}

// Configure installs the global log.Logger per Options and returns the
// resolved level, so callers can log it back at startup.
func Configure(opts Options) zerolog.Level {
	zerolog.TimeFieldFormat = time.RFC3339

	level := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if opts.ForceTTY || term.IsTerminal(int(os.Stderr.Fd())) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return level
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
