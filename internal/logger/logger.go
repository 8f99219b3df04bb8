package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger to provide logging functionality
type Logger struct {
	*zap.SugaredLogger
}

type ctxKey struct{}

// NewLogger creates a JSON production logger at the given level ("debug",
// "info", "warn", "error"). Unknown levels fall back to info.
func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// WithRequestID stores the request id used to tag log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (l *Logger) withCtx(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return l.SugaredLogger
	}
	if id := RequestID(ctx); id != "" {
		return l.SugaredLogger.With("request_id", id)
	}
	return l.SugaredLogger
}

func (l *Logger) InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.withCtx(ctx).Infow(msg, keysAndValues...)
}

func (l *Logger) WarnwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.withCtx(ctx).Warnw(msg, keysAndValues...)
}

func (l *Logger) ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.withCtx(ctx).Errorw(msg, keysAndValues...)
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}
