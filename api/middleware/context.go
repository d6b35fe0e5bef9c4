package middleware

import (
	"context"

	"github.com/pierrevannier/freelancehub-backend/internal/subscriptions"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxAccess contextKey = "access_state"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessStateFromContext returns the gate verdict seeded by AccessState
// middleware; ok is false on routes that skip the gate.
func AccessStateFromContext(ctx context.Context) (subscriptions.AccessState, bool) {
	if ctx == nil {
		return subscriptions.AccessState{}, false
	}
	v, ok := ctx.Value(ctxAccess).(subscriptions.AccessState)
	return v, ok
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithAccessState injects the gate verdict for downstream handlers.
func WithAccessState(ctx context.Context, state subscriptions.AccessState) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccess, state)
}
