package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
)

// Subscription holds the single live entitlement row per user. Writes go
// through an upsert keyed on user_id, so renewals and re-activations replace
// the previous period in place.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PlanCode           enums.PlanCode           `gorm:"column:plan_code;type:plan_code;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	CurrentPeriodStart time.Time                `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd   time.Time                `gorm:"column:current_period_end;not null"`
	LicenseKey         string                   `gorm:"column:license_key;not null"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
