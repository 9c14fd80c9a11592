package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide logger. It is usable before Init and writes
// JSON to stdout until Init replaces it.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init initializes the global logger for the given service. Development mode
// switches to the human readable console writer. Logger is replaced without
// synchronization, so Init must run before any goroutine logs.
func Init(serviceName string, isDevelopment bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = os.Stdout
	if isDevelopment {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	Logger = zerolog.New(output).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Logger = Logger
}

// SetOutput redirects the global logger, keeping its fields. Like Init it is
// only safe at startup or in tests, before background workers are running.
func SetOutput(w io.Writer) {
	Logger = Logger.Output(w)
	log.Logger = Logger
}

// WithContext returns a logger carrying the trace and span id of the active
// span in ctx, if any.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Logger.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		l = l.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &l
}

// Component returns a child logger tagged with a component name.
func Component(ctx context.Context, name string) *zerolog.Logger {
	l := WithContext(ctx).With().Str("component", name).Logger()
	return &l
}

// Info logs at info level with context
func Info(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Info()
}

// Error logs at error level with context
func Error(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Error()
}

// Debug logs at debug level with context
func Debug(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Debug()
}

// Warn logs at warn level with context
func Warn(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Warn()
}

// SetLevel sets the global log level. Unknown names fall back to info.
func SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
