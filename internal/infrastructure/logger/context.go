package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	buildingIDKey
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request ID in ctx and stores a logger that carries it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return scoped(ctx, logger, requestIDKey, "request_id", requestID)
}

// WithBuildingID records the building a request operates on
func WithBuildingID(ctx context.Context, logger *zap.Logger, buildingID string) (context.Context, *zap.Logger) {
	return scoped(ctx, logger, buildingIDKey, "building_id", buildingID)
}

func scoped(ctx context.Context, logger *zap.Logger, key ctxKey, field, value string) (context.Context, *zap.Logger) {
	logger = logger.With(zap.String(field, value))
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, logger), logger
}

// RequestID returns the request ID recorded in ctx
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// BuildingID returns the building ID recorded in ctx
func BuildingID(ctx context.Context) string {
	id, _ := ctx.Value(buildingIDKey).(string)
	return id
}

// ContextLogger writes entries tagged with the trace and span of its context
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L is the logger stored in ctx, bound to ctx's span.
//
//	logger.L(ctx).Info("building recomputed", zap.Int("units", n))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger binds logger to ctx's span and request ID
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if id := RequestID(ctx); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	return &ContextLogger{ctx: ctx, logger: logger}
}

// With adds fields to every later entry
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.write(zapcore.DebugLevel, msg, fields) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.write(zapcore.InfoLevel, msg, fields) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.write(zapcore.WarnLevel, msg, fields) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.write(zapcore.ErrorLevel, msg, fields) }

// Zap returns a plain logger carrying the span fields
func (cl *ContextLogger) Zap() *zap.Logger {
	if span := spanFields(cl.ctx); span != nil {
		return cl.logger.With(span...)
	}
	return cl.logger
}

func (cl *ContextLogger) write(level zapcore.Level, msg string, fields []zap.Field) {
	ce := cl.logger.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(append(spanFields(cl.ctx), fields...)...)
}

func spanFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
