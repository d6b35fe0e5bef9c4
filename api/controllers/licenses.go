package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/api/middleware"
	"github.com/pierrevannier/freelancehub-backend/api/responses"
	"github.com/pierrevannier/freelancehub-backend/api/validators"
	"github.com/pierrevannier/freelancehub-backend/internal/licenses"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	pkgerrors "github.com/pierrevannier/freelancehub-backend/pkg/errors"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
)

type activateRequest struct {
	Key string `json:"key" validate:"required,min=10"`
}

type subscriptionResponse struct {
	Plan        enums.PlanCode           `json:"plan"`
	Status      enums.SubscriptionStatus `json:"status"`
	PeriodStart time.Time                `json:"period_start"`
	PeriodEnd   time.Time                `json:"period_end"`
	LicenseKey  string                   `json:"license_key"`
}

func subscriptionResponseFromModel(m *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		Plan:        m.PlanCode,
		Status:      m.Status,
		PeriodStart: m.CurrentPeriodStart,
		PeriodEnd:   m.CurrentPeriodEnd,
		LicenseKey:  m.LicenseKey,
	}
}

func authedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}

// LicenseActivate redeems a key for the authenticated user.
func LicenseActivate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload activateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Activate(r.Context(), strings.TrimSpace(payload.Key), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriptionResponseFromModel(sub))
	}
}

// LicenseDeactivate cancels the authenticated user's subscription. The claimed
// stock key stays claimed.
func LicenseDeactivate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

type subscriptionFinder interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type meResponse struct {
	Subscription   *subscriptionResponse `json:"subscription"`
	LicenseExpired bool                  `json:"licenseExpired"`
	IsAdmin        bool                  `json:"isAdmin"`
	ReadOnly       bool                  `json:"readOnly"`
}

// SubscriptionMe returns the caller's subscription row plus the access state
// the UI uses to flip into read-only mode.
func SubscriptionMe(repo subscriptionFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, _ := middleware.AccessStateFromContext(r.Context())
		out := meResponse{
			LicenseExpired: state.LicenseExpired,
			IsAdmin:        state.IsAdmin,
			ReadOnly:       state.ReadOnly,
		}

		sub, err := repo.FindByUser(r.Context(), userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStoreError, err, "lookup subscription"))
			return
		}
		if sub != nil {
			resp := subscriptionResponseFromModel(sub)
			out.Subscription = &resp
		}

		responses.WriteSuccess(w, out)
	}
}
