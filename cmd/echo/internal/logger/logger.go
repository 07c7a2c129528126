package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
)

// Options controls how Init builds the process logger.
type Options struct {
	Debug  bool
	Format string // "text" (default) or "json"
	Output io.Writer
}

// Init installs the process-wide logger. Only the first call has any effect;
// later calls, and the lazy init done by the helpers below, are no-ops.
func Init(opts Options) {
	once.Do(func() {
		level := slog.LevelInfo
		if opts.Debug {
			level = slog.LevelDebug
		}

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}

		handlerOpts := &slog.HandlerOptions{
			Level:     level,
			AddSource: opts.Debug,
		}

		var handler slog.Handler
		if strings.EqualFold(opts.Format, "json") {
			handler = slog.NewJSONHandler(out, handlerOpts)
		} else {
			handler = slog.NewTextHandler(out, handlerOpts)
		}

		defaultLogger = slog.New(handler).With("service", "xecho")
		slog.SetDefault(defaultLogger)
	})
}

// get lazily initializes from the environment if Init was never called.
func get() *slog.Logger {
	Init(Options{Debug: os.Getenv("DEBUG") == "true", Format: os.Getenv("LOG_FORMAT")})
	return defaultLogger
}

// Debug logs at Debug level.
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs at Info level.
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs at Warn level.
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs at Error level.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// Fatal logs at Error level and then exits with status 1.
func Fatal(msg string, args ...any) {
	get().Error(msg, args...)
	os.Exit(1)
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}
