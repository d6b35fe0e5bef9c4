package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pierrevannier/freelancehub-backend/internal/licenses"
	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	pkgerrors "github.com/pierrevannier/freelancehub-backend/pkg/errors"
)

func TestAdminLicenseIssueSuccess(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := &stubLicenseService{issued: []models.LicenseKey{
		{ID: uuid.New(), Key: "FL-PRO-ABC123-SALT000001", PlanCode: enums.PlanPro, DurationMonths: 12, CreatedAt: now},
		{ID: uuid.New(), Key: "FL-PRO-ABC123-SALT000002", PlanCode: enums.PlanPro, DurationMonths: 12, CreatedAt: now},
	}}
	handler := AdminLicenseIssue(svc, nil)

	body := `{"plan":"pro","duration_months":12,"quantity":2,"client_name":"Studio Martin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/licenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.issueInput.Plan != enums.PlanPro || svc.issueInput.Quantity != 2 {
		t.Fatalf("unexpected issue input: %+v", svc.issueInput)
	}
	if svc.issueInput.ClientName != "Studio Martin" {
		t.Fatalf("unexpected client name: %q", svc.issueInput.ClientName)
	}

	var envelope struct {
		Data []issuedKeyResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 keys got %d", len(envelope.Data))
	}
	if envelope.Data[0].Key != "FL-PRO-ABC123-SALT000001" {
		t.Fatalf("unexpected key: %s", envelope.Data[0].Key)
	}
}

func TestAdminLicenseIssueUnknownPlan(t *testing.T) {
	handler := AdminLicenseIssue(&stubLicenseService{}, nil)

	body := `{"plan":"platinum","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/licenses", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeUnknownPlan) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
}

func TestAdminLicenseIssueQuantityOutOfRange(t *testing.T) {
	svc := &stubLicenseService{issueErr: pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be between 1 and 100")}
	handler := AdminLicenseIssue(svc, nil)

	body := `{"plan":"pro","quantity":101}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/licenses", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminLicenseGrantSuccess(t *testing.T) {
	adminID := uuid.New()
	targetID := uuid.New()
	svc := &stubLicenseService{granted: &models.LicenseKey{
		ID:             uuid.New(),
		Key:            "FL-ENT-ABC123-SALT000001",
		PlanCode:       enums.PlanEnterprise,
		DurationMonths: 24,
		IsUsed:         true,
		UsedBy:         &targetID,
	}}
	handler := AdminLicenseGrant(svc, nil)

	body := `{"plan":"enterprise","duration_months":24,"user_id":"` + targetID.String() + `"}`
	req := authedRequest(http.MethodPost, "/api/admin/v1/licenses/grant", body, adminID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.grantInput.UserID != targetID {
		t.Fatalf("unexpected target user: %s", svc.grantInput.UserID)
	}
	if svc.grantInput.GrantedBy != adminID {
		t.Fatalf("expected granted_by %s got %s", adminID, svc.grantInput.GrantedBy)
	}

	var envelope struct {
		Data issuedKeyResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.IsUsed {
		t.Fatal("granted key should come back pre-claimed")
	}
}

func TestAdminLicenseGrantInvalidUserID(t *testing.T) {
	handler := AdminLicenseGrant(&stubLicenseService{}, nil)

	body := `{"plan":"pro","user_id":"not-a-uuid"}`
	req := authedRequest(http.MethodPost, "/api/admin/v1/licenses/grant", body, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminLicenseListForwardsFilters(t *testing.T) {
	svc := &stubLicenseService{listResult: &licenses.ListResult{
		Items: []licenses.ListItem{{ID: uuid.New(), Key: "FL-STA-ABC123-SALT000001", Plan: enums.PlanStarter}},
	}}
	handler := AdminLicenseList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/licenses?plan=starter&unused=true&limit=10", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listParams.Plan != "starter" || !svc.listParams.UnusedOnly {
		t.Fatalf("unexpected list params: %+v", svc.listParams)
	}
	if svc.listParams.Limit != 10 {
		t.Fatalf("unexpected limit: %d", svc.listParams.Limit)
	}

	var envelope struct {
		Data licenses.ListResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(envelope.Data.Items))
	}
}

func TestAdminLicenseExportWritesCSV(t *testing.T) {
	catalog := plans.NewCatalog()
	used := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := &stubLicenseService{listResult: &licenses.ListResult{
		Items: []licenses.ListItem{{
			ID:             uuid.New(),
			Key:            "FL-PRO-ABC123-SALT000001",
			Plan:           enums.PlanPro,
			DurationMonths: 6,
			CreatedAt:      used,
		}},
	}}
	handler := AdminLicenseExport(svc, catalog, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/licenses/export", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type: %s", got)
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "licences-") {
		t.Fatalf("unexpected content disposition: %s", got)
	}
	if !strings.Contains(resp.Body.String(), "FL-PRO-ABC123-SALT000001") {
		t.Fatalf("csv missing key: %s", resp.Body.String())
	}
}

func TestAdminLicenseInspect(t *testing.T) {
	catalog := plans.NewCatalog()
	pro, err := catalog.GetPlan(enums.PlanPro)
	if err != nil {
		t.Fatalf("catalog lookup: %v", err)
	}
	issued := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := &stubLicenseService{inspected: licenses.KeyFacts{
		Plan:      pro,
		IssuedAt:  issued,
		ExpiresAt: issued.AddDate(0, 1, 0),
	}}
	handler := AdminLicenseInspect(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/licenses/inspect?key=FL-PRO-ABC123-SALT000001", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data keyFactsResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Plan != enums.PlanPro {
		t.Fatalf("unexpected plan: %s", envelope.Data.Plan)
	}
	if !envelope.Data.ExpiresAt.Equal(issued.AddDate(0, 1, 0)) {
		t.Fatalf("unexpected expiry: %s", envelope.Data.ExpiresAt)
	}
}

func TestAdminLicenseInspectMalformed(t *testing.T) {
	svc := &stubLicenseService{inspectErr: pkgerrors.New(pkgerrors.CodeMalformedKey, "license key must have 4 segments")}
	handler := AdminLicenseInspect(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/licenses/inspect?key=NOPE", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminLicenseInspectMissingKey(t *testing.T) {
	handler := AdminLicenseInspect(&stubLicenseService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/licenses/inspect", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminLicenseDelete(t *testing.T) {
	id := uuid.New()
	svc := &stubLicenseService{}
	handler := AdminLicenseDelete(svc, nil)

	router := chi.NewRouter()
	router.Delete("/api/admin/v1/licenses/{licenseId}", handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/licenses/"+id.String(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.deletedKeyID != id {
		t.Fatalf("expected delete for %s got %s", id, svc.deletedKeyID)
	}
}

func TestAdminLicenseDeleteInvalidID(t *testing.T) {
	handler := AdminLicenseDelete(&stubLicenseService{}, nil)

	router := chi.NewRouter()
	router.Delete("/api/admin/v1/licenses/{licenseId}", handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/licenses/not-a-uuid", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
