// Package reqid carries a per-request id through contexts so every log line
// for one extension request can be correlated.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// With returns a new context with the provided request ID attached.
func With(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key{}, id)
}

// From extracts the request ID from the context, if present.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if s, ok := ctx.Value(key{}).(string); ok && s != "" {
		return s, true
	}
	return "", false
}

// Ensure returns ctx and its request ID, attaching a new UUID when ctx has
// none.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := From(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return With(ctx, id), id
}
