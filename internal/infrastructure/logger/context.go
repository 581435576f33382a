package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SupplierKey is the context key for the supplier code a sync run targets
	SupplierKey contextKey = "supplier"
	// SessionIDKey is the context key for the sync session ID
	SessionIDKey contextKey = "session_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enrichedLogger := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// WithSupplier adds the supplier code to context and returns enriched logger.
// Every log line emitted inside a sync run carries the supplier it belongs to.
func WithSupplier(ctx context.Context, logger *zap.Logger, supplierCode string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, SupplierKey, supplierCode)
	enrichedLogger := logger.With(zap.String("supplier", supplierCode))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// WithSessionID adds the sync session ID to context and returns enriched logger
func WithSessionID(ctx context.Context, logger *zap.Logger, sessionID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, SessionIDKey, sessionID)
	enrichedLogger := logger.With(zap.String("session_id", sessionID))
	return WithContext(ctx, enrichedLogger), enrichedLogger
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSupplier retrieves the supplier code from context
func GetSupplier(ctx context.Context) string {
	if supplier, ok := ctx.Value(SupplierKey).(string); ok {
		return supplier
	}
	return ""
}

// GetSessionID retrieves the sync session ID from context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
