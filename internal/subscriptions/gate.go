package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	"github.com/pierrevannier/freelancehub-backend/pkg/metrics"
)

type gateRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// AccessState is the Gate's verdict for one session load.
type AccessState struct {
	LicenseExpired bool                     `json:"licenseExpired"`
	IsAdmin        bool                     `json:"isAdmin"`
	ReadOnly       bool                     `json:"readOnly"`
	Plan           enums.PlanCode           `json:"plan,omitempty"`
	PeriodEnd      *time.Time               `json:"periodEnd,omitempty"`
	Status         enums.SubscriptionStatus `json:"status,omitempty"`
}

// Gate derives per-session access state from the subscription row and the
// clock. It never mutates anything.
type Gate struct {
	repo    gateRepository
	logg    *logger.Logger
	metrics *metrics.LicensingMetrics
	now     func() time.Time
}

// NewGate builds the subscription gate.
func NewGate(repo gateRepository, logg *logger.Logger, m *metrics.LicensingMetrics) *Gate {
	return &Gate{
		repo:    repo,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}
}

// Evaluate computes the access state for a user. A missing subscription row is
// not expiry: an account that never subscribed keeps full access. Store errors
// resolve the same way (fail open) with a warning, so a flaky read never locks
// a paying user out of their own data; the next session load re-evaluates.
func (g *Gate) Evaluate(ctx context.Context, userID uuid.UUID, role enums.UserRole) AccessState {
	state := AccessState{IsAdmin: role == enums.UserRoleAdmin}

	sub, err := g.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g.metrics.IncGate("no_subscription")
			return g.finish(state)
		}
		if g.logg != nil {
			logCtx := g.logg.WithFields(ctx, map[string]any{
				"user_id": userID.String(),
				"error":   err.Error(),
			})
			g.logg.Warn(logCtx, "subscription lookup failed, granting access")
		}
		g.metrics.IncGate("fail_open")
		return g.finish(state)
	}

	state.Plan = sub.PlanCode
	state.Status = sub.Status
	periodEnd := sub.CurrentPeriodEnd
	state.PeriodEnd = &periodEnd

	if sub.Status.Terminated() || sub.CurrentPeriodEnd.Before(g.now()) {
		state.LicenseExpired = true
		g.metrics.IncGate("expired")
	} else {
		g.metrics.IncGate("valid")
	}
	return g.finish(state)
}

func (g *Gate) finish(state AccessState) AccessState {
	state.ReadOnly = state.LicenseExpired && !state.IsAdmin
	return state
}
