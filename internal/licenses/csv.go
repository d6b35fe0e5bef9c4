package licenses

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	pkgerrors "github.com/pierrevannier/freelancehub-backend/pkg/errors"
)

// csvHeader matches what the admin back office expects to hand to clients.
var csvHeader = []string{"Clé", "Plan", "Client", "Expiration", "Projets Max", "Utilisateurs Max", "Généré le"}

const csvDateLayout = "02/01/2006"

// ExportCSV renders issued keys as the admin-facing CSV, one row per key.
func ExportCSV(keys []models.LicenseKey, catalog plans.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, key := range keys {
		plan, err := catalog.GetPlan(key.PlanCode)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnknownPlan, err, "resolve plan for export")
		}
		row := []string{
			key.Key,
			plan.Name,
			clientLabel(key),
			key.ExpiresAt(expiryAnchor(key)).Format(csvDateLayout),
			quotaLabel(plan.MaxProjects),
			quotaLabel(plan.MaxUsers),
			key.CreatedAt.Format(csvDateLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clientLabel(key models.LicenseKey) string {
	if key.ClientName != nil && *key.ClientName != "" {
		return *key.ClientName
	}
	return "-"
}

func expiryAnchor(key models.LicenseKey) time.Time {
	if key.UsedAt != nil {
		return *key.UsedAt
	}
	return key.CreatedAt
}

func quotaLabel(limit int) string {
	if limit == plans.Unlimited {
		return "Illimité"
	}
	return strconv.Itoa(limit)
}
