package core

import (
	"context"

	"github.com/google/uuid"
)

type traceKey struct{}

// NewTraceID generates a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID returns a context carrying the given trace identifier.
// The trace is always threaded explicitly through call chains; there is
// no ambient global trace state.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFrom extracts the current trace identifier, or "" when unset.
func TraceIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
