package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pierrevannier/freelancehub-backend/api/responses"
	"github.com/pierrevannier/freelancehub-backend/api/validators"
	"github.com/pierrevannier/freelancehub-backend/internal/licenses"
	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	pkgerrors "github.com/pierrevannier/freelancehub-backend/pkg/errors"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	pkgpagination "github.com/pierrevannier/freelancehub-backend/pkg/pagination"
)

type issueStockRequest struct {
	Plan           string `json:"plan" validate:"required"`
	DurationMonths int    `json:"duration_months" validate:"omitempty,min=1,max=60"`
	Quantity       int    `json:"quantity" validate:"required"`
	ClientName     string `json:"client_name" validate:"omitempty,max=120"`
}

type grantRequest struct {
	Plan           string `json:"plan" validate:"required"`
	DurationMonths int    `json:"duration_months" validate:"omitempty,min=1,max=60"`
	UserID         string `json:"user_id" validate:"required,uuid"`
}

type issuedKeyResponse struct {
	ID             uuid.UUID      `json:"id"`
	Key            string         `json:"key"`
	Plan           enums.PlanCode `json:"plan"`
	DurationMonths int            `json:"duration_months"`
	IsUsed         bool           `json:"is_used"`
	UsedBy         *uuid.UUID     `json:"used_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func issuedKeyResponseFromModel(m models.LicenseKey) issuedKeyResponse {
	return issuedKeyResponse{
		ID:             m.ID,
		Key:            m.Key,
		Plan:           m.PlanCode,
		DurationMonths: m.DurationMonths,
		IsUsed:         m.IsUsed,
		UsedBy:         m.UsedBy,
		CreatedAt:      m.CreatedAt,
	}
}

// AdminLicenseIssue creates a batch of stock keys.
func AdminLicenseIssue(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload issueStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := enums.ParsePlanCode(strings.TrimSpace(payload.Plan))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnknownPlan, "unknown plan"))
			return
		}

		rows, err := svc.IssueStock(r.Context(), licenses.IssueStockInput{
			Plan:           plan,
			DurationMonths: payload.DurationMonths,
			Quantity:       payload.Quantity,
			ClientName:     payload.ClientName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]issuedKeyResponse, len(rows))
		for i, row := range rows {
			out[i] = issuedKeyResponseFromModel(row)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// AdminLicenseGrant issues a pre-claimed key and activates the subscription
// for the target user in one call.
func AdminLicenseGrant(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload grantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := enums.ParsePlanCode(strings.TrimSpace(payload.Plan))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnknownPlan, "unknown plan"))
			return
		}
		targetID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		row, err := svc.IssueAndGrant(r.Context(), licenses.IssueGrantInput{
			Plan:           plan,
			DurationMonths: payload.DurationMonths,
			UserID:         targetID,
			GrantedBy:      adminID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, issuedKeyResponseFromModel(*row))
	}
}

// AdminLicenseList pages through issued keys, newest first.
func AdminLicenseList(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pkgpagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListKeys(r.Context(), licenses.ListParams{
			Plan:       strings.TrimSpace(r.URL.Query().Get("plan")),
			UnusedOnly: validators.ParseQueryBool(r, "unused"),
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AdminLicenseExport streams the issued-keys CSV the back office hands to
// clients.
func AdminLicenseExport(svc licenses.Service, catalog plans.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pkgpagination.MaxLimit, 1, pkgpagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListKeys(r.Context(), licenses.ListParams{
			Plan:       strings.TrimSpace(r.URL.Query().Get("plan")),
			UnusedOnly: validators.ParseQueryBool(r, "unused"),
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows := make([]models.LicenseKey, len(result.Items))
		for i, item := range result.Items {
			rows[i] = models.LicenseKey{
				ID:             item.ID,
				Key:            item.Key,
				PlanCode:       item.Plan,
				DurationMonths: item.DurationMonths,
				IsUsed:         item.IsUsed,
				UsedBy:         item.UsedBy,
				UsedAt:         item.UsedAt,
				ClientName:     item.ClientName,
				CreatedAt:      item.CreatedAt,
			}
		}

		out, err := licenses.ExportCSV(rows, catalog)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("licences-%s.csv", time.Now().UTC().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	}
}

type keyFactsResponse struct {
	Plan      enums.PlanCode `json:"plan"`
	PlanName  string         `json:"plan_name"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// AdminLicenseInspect decodes a key string without touching the store. The
// expiry shown assumes the default duration; the persisted record remains
// authoritative when the key exists.
func AdminLicenseInspect(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.URL.Query().Get("key"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "key query parameter is required"))
			return
		}

		facts, err := svc.Inspect(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, keyFactsResponse{
			Plan:      facts.Plan.Code,
			PlanName:  facts.Plan.Name,
			IssuedAt:  facts.IssuedAt,
			ExpiresAt: facts.ExpiresAt,
		})
	}
}

// AdminLicenseDelete soft-deletes a key.
func AdminLicenseDelete(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "licenseId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid license id"))
			return
		}

		if err := svc.DeleteKey(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
