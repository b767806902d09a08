// Package logger provides the process-wide logger used by connectors and services.
//
// Call sites use printf-style helpers (Debug, Info, Warn, Error). Output is
// backed by log/slog so the HTTP server can emit JSON while the CLI stays
// human readable. Debug output is suppressed unless verbose mode is enabled.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the slog handler used for output.
type Format string

const (
	// FormatText writes key=value lines, suited to terminals.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line, suited to log collectors.
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	base    = newLogger(os.Stderr, FormatText, "teams-portal")
	verbose bool
)

func newLogger(w io.Writer, format Format, service string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", service)
}

// Configure replaces the underlying handler.
func Configure(w io.Writer, format Format, service string) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w, format, service)
}

// SetVerbose toggles debug output.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level from its name (debug, info, warn, error).
// Unknown names leave the level unchanged and return an error.
func SetLevel(name string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(name)))); err != nil {
		return fmt.Errorf("logger: unknown level %q", name)
	}
	level.Set(l)
	mu.Lock()
	verbose = l <= slog.LevelDebug
	mu.Unlock()
	return nil
}

// Slog returns the structured logger for callers that attach fields.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	Slog().Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	Slog().Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	Slog().Warn(fmt.Sprintf(format, args...))
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	Slog().Error(fmt.Sprintf(format, args...))
}
