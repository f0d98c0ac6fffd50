// Package logger holds the process-wide zap logger and the context plumbing
// that enriches log lines with the request id of the call they belong to.
package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
)

type contextKey int

const loggerKey contextKey = iota

// Log is the global logger, set once by Initialize at startup. Tests point it
// at a zaptest logger instead.
var Log *zap.Logger

// Initialize builds the global JSON logger at the given level. Unparseable
// levels fall back to info rather than failing startup.
func Initialize(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zap.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = built
	return nil
}

// WithLogger attaches a scoped logger to the context. The request middleware
// uses this to carry per-request fields down the call chain.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the scoped logger from ctx, or the global one, tagged
// with the request id when the context carries one.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return Log
	}

	base := Log
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		base = l
	}

	if requestID, err := tenant.FromRequestIDContext(ctx); err == nil && requestID != "" {
		return base.With(zap.String("request_id", requestID))
	}
	return base
}

// Sync flushes buffered log entries, called on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
