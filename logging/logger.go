// Package logging provides the minimal Logger interface used across agentchat
// together with adapters for zap and slog.
package logging

import (
	"log/slog"
	"strings"
)

// LogLevel is a user facing level enum decoupled from any backend.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// resolve to LogLevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface. Arguments are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// With returns a Logger that prepends args to every call on l.
func With(l Logger, args ...any) Logger {
	l = OrNoOp(l)
	if _, ok := l.(NoOpLogger); ok || len(args) == 0 {
		return l
	}
	if z, ok := l.(*ZapAdapter); ok {
		return z.With(args...)
	}
	return &withLogger{parent: l, args: args}
}

type withLogger struct {
	parent Logger
	args   []any
}

func (w *withLogger) join(args []any) []any {
	out := make([]any, 0, len(w.args)+len(args))
	return append(append(out, w.args...), args...)
}

func (w *withLogger) Debug(msg string, args ...any) { w.parent.Debug(msg, w.join(args)...) }
func (w *withLogger) Info(msg string, args ...any)  { w.parent.Info(msg, w.join(args)...) }
func (w *withLogger) Warn(msg string, args ...any)  { w.parent.Warn(msg, w.join(args)...) }
func (w *withLogger) Error(msg string, args ...any) { w.parent.Error(msg, w.join(args)...) }
