package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
)

// Options describes how the process-wide logger is built.
type Options struct {
	Level  string    // debug|info|warn|error
	Format string    // json|text
	Output io.Writer // defaults to stdout
}

// Logger returns the process-wide logger, lazily initialised using environment
// variables for format and level:
//   - ENRICHRAG_LOG_FORMAT: "json" (default) or "text"
//   - ENRICHRAG_LOG_LEVEL: debug|info|warn|error
func Logger() *slog.Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(Options{
			Level:  os.Getenv("ENRICHRAG_LOG_LEVEL"),
			Format: os.Getenv("ENRICHRAG_LOG_FORMAT"),
		})
	}
	return defaultLogger
}

// SetLogger overrides the global logger; mainly useful for tests.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Configure replaces the global logger with one built from opts.
// The MCP stdio server uses it to move logs off stdout.
func Configure(opts Options) *slog.Logger {
	l := New(opts)
	SetLogger(l)
	return l
}

// WithComponent attaches a component field to the shared logger.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New builds a logger without touching the global one.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}
	return slog.New(handler).With("service", "enrichrag")
}

// ParseLevel maps a level name to slog.Level, falling back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
