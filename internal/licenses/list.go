package licenses

import (
	"time"

	"github.com/google/uuid"

	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	pkgpagination "github.com/pierrevannier/freelancehub-backend/pkg/pagination"
)

type ListParams struct {
	Plan       string
	UnusedOnly bool
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID             uuid.UUID      `json:"id"`
	Key            string         `json:"key"`
	Plan           enums.PlanCode `json:"plan"`
	DurationMonths int            `json:"duration_months"`
	IsUsed         bool           `json:"is_used"`
	UsedBy         *uuid.UUID     `json:"used_by,omitempty"`
	UsedAt         *time.Time     `json:"used_at,omitempty"`
	ClientName     *string        `json:"client_name,omitempty"`
	ExpiresAt      time.Time      `json:"expires_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

func toListItem(m models.LicenseKey) ListItem {
	anchor := m.CreatedAt
	if m.UsedAt != nil {
		anchor = *m.UsedAt
	}
	return ListItem{
		ID:             m.ID,
		Key:            m.Key,
		Plan:           m.PlanCode,
		DurationMonths: m.DurationMonths,
		IsUsed:         m.IsUsed,
		UsedBy:         m.UsedBy,
		UsedAt:         m.UsedAt,
		ClientName:     m.ClientName,
		ExpiresAt:      m.ExpiresAt(anchor),
		CreatedAt:      m.CreatedAt,
	}
}
