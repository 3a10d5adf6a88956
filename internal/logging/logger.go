// Package logging defines a minimal structured-logging interface used across
// the project, with slog and zerolog backed implementations.
package logging

import (
	"context"
	"io"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "starting server", "addr", addr)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Level is a backend independent severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps LOG_LEVEL style names to a Level. CRITICAL and FATAL
// collapse into LevelError; unknown names yield LevelWarn.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "ERROR", "CRITICAL", "FATAL":
		return LevelError
	default:
		return LevelWarn
	}
}

// New builds a Logger writing to w. format "console" selects the zerolog
// console writer, "text" the slog text handler, anything else JSON via slog.
func New(level, format string, w io.Writer) Logger {
	lvl := ParseLevel(level)
	switch strings.ToLower(format) {
	case "console":
		return NewConsoleZerologLogger(w, lvl)
	case "text":
		return NewSlogTextLogger(w, lvl)
	default:
		return NewSlogJSONLogger(w, lvl)
	}
}
