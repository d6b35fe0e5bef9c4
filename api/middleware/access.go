package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pierrevannier/freelancehub-backend/api/responses"
	"github.com/pierrevannier/freelancehub-backend/internal/subscriptions"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	pkgerrors "github.com/pierrevannier/freelancehub-backend/pkg/errors"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
)

// AccessState runs the subscription gate for the authenticated user and seeds
// the verdict into the request context. Must run after Auth.
func AccessState(gate *subscriptions.Gate, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			role, _ := enums.ParseUserRole(RoleFromContext(ctx))

			state := gate.Evaluate(ctx, userID, role)
			next.ServeHTTP(w, r.WithContext(WithAccessState(ctx, state)))
		})
	}
}

// RequireWritable rejects mutating requests from expired non-admin accounts.
// Read routes stay open; an expired account is read-only, not locked out.
func RequireWritable(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, ok := AccessStateFromContext(r.Context())
			if ok && state.ReadOnly {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "subscription expired, account is read-only"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
