package orchestrator

import "context"

type contextKey struct{}

// WithQueryID returns the context carrying the correlation ID of the query
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// QueryID returns the correlation ID of the query,
// or empty string if the context is not of a query
func QueryID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
