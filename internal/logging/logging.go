// Package logging provides structured logging with slog for the
// verification service: JSON or text output, level parsing, a
// component attribute, and package-level convenience functions over a
// process-wide default.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// Options configures a Logger.
type Options struct {
	// Level is "debug", "info", "warn", or "error".
	Level string
	// Format is "text" or "json".
	Format string
	// Component is attached to every record.
	Component string
	// Output defaults to stderr.
	Output io.Writer
}

var (
	defaultLogger *Logger
	loggerOnce    sync.Once
)

// Default returns the process-wide logger.
func Default() *Logger {
	loggerOnce.Do(func() {
		defaultLogger = New(Options{Component: "clnpd"})
	})
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	loggerOnce.Do(func() {})
	defaultLogger = l
	slog.SetDefault(l.Logger)
}

// New builds a Logger from options.
func New(opts Options) *Logger {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	level, _ := ParseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	if opts.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("component", opts.Component)})
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("component", name))}
}

// ParseLevel parses a level string, defaulting to info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at info level using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at error level using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }
