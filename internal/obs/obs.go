// Package obs configures structured logging for the automation layer and the
// storefront fixture. Loggers pick up run and scenario correlation from context.
package obs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Correlation keys. Every log line of a scenario carries the same values so
// a failing run can be grepped end to end, fixture access lines included.
const (
	KeyRunID     = "run_id"
	KeyScenario  = "scenario"
	KeyActor     = "actor"
	KeySessionID = "session_id"
)

type fieldsKey struct{}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
)

// Init configures the global JSON logger on stderr. LOG_LEVEL selects the
// minimum level (debug, info, warn, error); the default is debug.
func Init() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return
	}
	logger = newLogger(os.Stderr, levelFromEnv())
	slog.SetDefault(logger)
}

// SetOutputForTests sends all log output to w at debug level until the
// returned restore func is called.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev := logger
	logger = newLogger(w, slog.LevelDebug)
	slog.SetDefault(logger)
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		logger = prev
		if logger == nil {
			logger = newLogger(os.Stderr, levelFromEnv())
		}
		slog.SetDefault(logger)
	}
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(os.Getenv("LOG_LEVEL")))); err != nil {
		return slog.LevelDebug
	}
	return level
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key != slog.TimeKey {
				return attr
			}
			if t, ok := attr.Value.Any().(time.Time); ok {
				return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
			}
			return attr
		},
	}))
}

func current() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		Init()
		loggerMu.RLock()
		l = logger
		loggerMu.RUnlock()
	}
	return l
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return current().With("pkg", pkg)
}

// From returns the global logger with the correlation fields stored in ctx.
func From(ctx context.Context) *slog.Logger {
	fields := Fields(ctx)
	if len(fields) == 0 {
		return current()
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return current().With(args...)
}

// WithScenario stores run, scenario and actor names in context.
func WithScenario(ctx context.Context, runID, scenario, actor string) context.Context {
	return with(ctx,
		slog.String(KeyRunID, runID),
		slog.String(KeyScenario, scenario),
		slog.String(KeyActor, actor),
	)
}

// WithSessionID stores the browser session id in context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return with(ctx, slog.String(KeySessionID, sessionID))
}

// Fields returns the correlation fields stored in ctx, oldest key first.
func Fields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]slog.Attr)
	return fields
}

// with merges attrs into the context fields. Blank values never overwrite.
func with(ctx context.Context, attrs ...slog.Attr) context.Context {
	fields := append([]slog.Attr(nil), Fields(ctx)...)
	for _, a := range attrs {
		v := strings.TrimSpace(a.Value.String())
		if v == "" {
			continue
		}
		a.Value = slog.StringValue(v)
		replaced := false
		for i := range fields {
			if fields[i].Key == a.Key {
				fields[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			fields = append(fields, a)
		}
	}
	return context.WithValue(ctx, fieldsKey{}, fields)
}
