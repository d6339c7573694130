// Package hblog holds the ambient concerns shared by the agent and the
// fan-out client: structured logging setup and the on-disk tier
// configuration (with hot-reload), the way cmd/server.go and
// pkg/server/events.go wire them up for the rest of the original tool.
package hblog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerOptions configures the process-wide structured logger.
type LoggerOptions struct {
	// Level is one of DEBUG, INFO, WARN, ERROR. Defaults to INFO.
	Level string
	// Verbose forces DEBUG regardless of Level, matching the original
	// tool's --verbose/--debug flags.
	Verbose bool
	Writer  io.Writer
}

// NewLogger builds a slog.Logger writing structured text records, the
// way cmd/server.go constructs its logger inline. Centralizing it here
// lets both the agent and the fan-out client share one setup.
func NewLogger(opts LoggerOptions) *slog.Logger {
	level := parseLevel(opts.Level)
	if opts.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
