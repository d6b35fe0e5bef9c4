package controllers

import (
	"net/http"

	"github.com/pierrevannier/freelancehub-backend/api/responses"
	"github.com/pierrevannier/freelancehub-backend/internal/plans"
)

// PlanList exposes the public plan catalog.
func PlanList(catalog plans.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, catalog.AllPlans())
	}
}
