package shared

import (
	"context"

	"github.com/google/uuid"

	"github.com/fasm-labs/fasm/internal/permission"
)

// Identity describes the authenticated actor resolved by the authorization
// gate. It is request-scoped and travels in the request context only.
type Identity struct {
	UserID      uuid.UUID
	Name        string
	IsAdmin     bool
	Permissions permission.Set
}

type identityContextKey struct{}

type traceContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the resolved identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// ContextWithTraceID stores the request trace id in context.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceContextKey{}, traceID)
}

// TraceIDFromContext extracts the request trace id from context.
func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceContextKey{}).(string)
	return traceID
}
