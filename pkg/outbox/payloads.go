package outbox

import (
	"time"

	"github.com/google/uuid"
)

// LicenseActivatedData is the payload for license_activated events, consumed
// by the transactional-email and push collaborators.
type LicenseActivatedData struct {
	LicenseKeyID uuid.UUID `json:"licenseKeyId"`
	UserID       uuid.UUID `json:"userId"`
	Plan         string    `json:"plan"`
	PeriodEnd    time.Time `json:"periodEnd"`
}

// LicenseGrantedData is the payload for license_granted events (admin grant flow).
type LicenseGrantedData struct {
	LicenseKeyID uuid.UUID `json:"licenseKeyId"`
	UserID       uuid.UUID `json:"userId"`
	Plan         string    `json:"plan"`
	PeriodEnd    time.Time `json:"periodEnd"`
	GrantedBy    uuid.UUID `json:"grantedBy"`
}

// SubscriptionExpiredData is the payload for subscription_expired events
// produced by the daily sweep.
type SubscriptionExpiredData struct {
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	UserID         uuid.UUID `json:"userId"`
	Plan           string    `json:"plan"`
	PeriodEnd      time.Time `json:"periodEnd"`
}
