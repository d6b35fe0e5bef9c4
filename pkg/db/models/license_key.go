package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
)

// LicenseKey is an issued redemption token. A row starts "in stock"
// (is_used = false) and is claimed at most once; is_used is true iff used_by
// and used_at are both set. Soft deletion retires a key without un-claiming
// it, and the key string is unique among non-deleted rows only (partial index,
// see migrations).
type LicenseKey struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key            string         `gorm:"column:key;not null;index"`
	PlanCode       enums.PlanCode `gorm:"column:plan_code;type:plan_code;not null"`
	DurationMonths int            `gorm:"column:duration_months;not null"`
	IsUsed         bool           `gorm:"column:is_used;not null;default:false"`
	UsedBy         *uuid.UUID     `gorm:"column:used_by;type:uuid"`
	UsedAt         *time.Time     `gorm:"column:used_at"`
	ClientName     *string        `gorm:"column:client_name"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// ExpiresAt computes the entitlement end for this key given its recorded
// duration, anchored at the provided activation or issue time.
func (k LicenseKey) ExpiresAt(from time.Time) time.Time {
	return from.AddDate(0, k.DurationMonths, 0)
}
