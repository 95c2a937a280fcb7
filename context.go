package permkit

import (
	"context"
)

// Context keys for permkit values.
type contextKey string

const (
	contextKeyAuthority contextKey = "permkit:authority"
	contextKeyActorID   contextKey = "permkit:actor_id"
	contextKeyRequestID contextKey = "permkit:request_id"
	contextKeyChecker   contextKey = "permkit:checker"
)

// WithAuthority adds an authority id to the context.
// This is the user or group being checked for permissions.
func WithAuthority(ctx context.Context, authority string) context.Context {
	return context.WithValue(ctx, contextKeyAuthority, authority)
}

// GetAuthority retrieves the authority id from context.
// Returns empty string if not set.
func GetAuthority(ctx context.Context) string {
	if v := ctx.Value(contextKeyAuthority); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithActorID adds an actor id to the context.
// This is the user performing permission edits. Often the same as the
// authority, but can differ for administrative actions.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor id from context.
// Falls back to the authority id if no actor is explicitly set.
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(contextKeyActorID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return GetAuthority(ctx)
}

// WithRequestID adds a request id to the context (for log correlation).
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
// This is set by middleware and can be retrieved in handlers.
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
