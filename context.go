package adminkit

import (
	"context"
)

// Context keys for adminkit values.
type contextKey string

const (
	contextKeyScope     contextKey = "adminkit:scope"
	contextKeyActorID   contextKey = "adminkit:actor_id"
	contextKeyRequestID contextKey = "adminkit:request_id"
	contextKeyChecker   contextKey = "adminkit:checker"
)

// WithScope adds the caller scope to the context.
// The scope arrives from the authenticated session; adminkit never fetches it.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, contextKeyScope, scope)
}

// GetScope retrieves the caller scope from context.
// Returns empty scope if not set; an empty scope is denied everything.
func GetScope(ctx context.Context) Scope {
	if v := ctx.Value(contextKeyScope); v != nil {
		if s, ok := v.(Scope); ok {
			return s
		}
	}
	return ""
}

// WithActorID adds the acting user id to the context (for the audit log).
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor id from context.
// Falls back to the scope when no actor is set.
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(contextKeyActorID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return string(GetScope(ctx))
}

// WithRequestID adds a request id to the context (for correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request id from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds a Checker to the context.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the Checker from context.
// Returns nil if not set.
func GetChecker(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// FromContext retrieves the Checker from context.
// Alias for GetChecker for convenience.
func FromContext(ctx context.Context) *Checker {
	return GetChecker(ctx)
}

// checkerFor returns the checker stored in ctx, or binds resolver to the
// scope stored in ctx when no checker is present.
func checkerFor(ctx context.Context, resolver *Resolver) *Checker {
	if c := GetChecker(ctx); c != nil {
		return c
	}
	return resolver.For(GetScope(ctx))
}
