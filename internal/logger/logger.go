// Package logger provides structured, context-aware logging for the rest
// of the module, backed by zerolog.
package logger

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Hook is invoked for every log event, mirroring zerolog.Hook, so callers
// can attach cross-cutting behavior (e.g. trace-id injection) without
// depending on zerolog directly.
type Hook interface {
	Run(e *zerolog.Event, level zerolog.Level, msg string)
}

// LoggerInterface is the structured-logging contract the rest of the
// module depends on. Every method accepts a context (for trace
// correlation) and an even-length list of key/value pairs.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Logger is the zerolog-backed LoggerInterface implementation.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing to w at the given level. name tags every
// event's "service" field. hook, if non-nil, runs on every event.
func New(w io.Writer, level Level, name string, hook Hook) *Logger {
	zl := zerolog.New(w).With().Timestamp().Str("service", name).Logger()
	zl = zl.Level(level.zerolog())
	if hook != nil {
		zl = zl.Hook(hook)
	}
	return &Logger{zl: zl}
}

func (l *Logger) event(ctx context.Context, e *zerolog.Event, msg string, kv ...any) {
	if traceID, ok := traceIDFromContext(ctx); ok {
		e = e.Str("trace_id", traceID)
	}
	e.Fields(kvToMap(kv)).Msg(msg)
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	l.event(ctx, l.zl.Debug(), msg, kv...)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	l.event(ctx, l.zl.Info(), msg, kv...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	l.event(ctx, l.zl.Warn(), msg, kv...)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...any) {
	l.event(ctx, l.zl.Error(), msg, kv...)
}

// With returns a derived LoggerInterface carrying the given key/value
// pairs on every subsequent event.
func (l *Logger) With(kv ...any) LoggerInterface {
	ctx := l.zl.With()
	m := kvToMap(kv)
	for k, v := range m {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

func kvToMap(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[key] = kv[i+1]
	}
	return m
}

type traceIDKey struct{}

// WithTraceID returns a context carrying traceID, surfaced automatically on
// every subsequent log event derived from it.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func traceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(traceIDKey{}).(string)
	return v, ok && v != ""
}
