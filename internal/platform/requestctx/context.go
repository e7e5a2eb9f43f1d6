package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey contextKey = "fabrow/requestctx/logger"
	traceContextKey  contextKey = "fabrow/requestctx/trace"
	adminContextKey  contextKey = "fabrow/requestctx/admin"
	cartContextKey   contextKey = "fabrow/requestctx/cart"
)

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// Admin identifies the signed-in back-office user for the current request.
type Admin struct {
	Username  string
	SessionID string
	CSRFToken string
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores the trace metadata on the context.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithAdmin marks the request as authenticated for the admin area.
func WithAdmin(ctx context.Context, admin Admin) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminContextKey, admin)
}

// AdminFromContext returns the authenticated admin, if any.
func AdminFromContext(ctx context.Context) (Admin, bool) {
	if ctx == nil {
		return Admin{}, false
	}
	admin, ok := ctx.Value(adminContextKey).(Admin)
	if !ok || admin.Username == "" {
		return Admin{}, false
	}
	return admin, true
}

// WithCartID records the storefront cart identifier resolved for the request.
func WithCartID(ctx context.Context, cartID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cartContextKey, cartID)
}

// CartID returns the cart identifier stored by WithCartID.
func CartID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(cartContextKey).(string)
	return id
}
