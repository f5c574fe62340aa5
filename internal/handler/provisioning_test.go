package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/provisioning"
)

type stubProvisioner struct {
	err  error
	got  provisioning.Request
	hits int
}

func (s *stubProvisioner) Provision(ctx context.Context, req provisioning.Request) (*model.UserProfile, error) {
	s.hits++
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return req.Profile("new-id"), nil
}

func validCreateUserBody() map[string]any {
	return map[string]any{
		"email":            "a@b.com",
		"full_name":        "A B",
		"role":             "worker",
		"organisation_id":  "org-1",
		"employment_type":  "hourly",
		"base_hourly_rate": 150,
	}
}

func TestProvisioningHandler_Create(t *testing.T) {
	svc := &stubProvisioner{}
	h := NewProvisioningHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/functions/v1/create-user", validCreateUserBody()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"User created successfully"}` {
		t.Errorf("unexpected body: %s", got)
	}
	if svc.got.OrganisationID != "org-1" || svc.got.BaseHourlyRate == nil || *svc.got.BaseHourlyRate != 150 {
		t.Errorf("unexpected request: %+v", svc.got)
	}
}

func TestProvisioningHandler_DefaultsOrganisation(t *testing.T) {
	svc := &stubProvisioner{}
	h := NewProvisioningHandler(svc, discardLogger())

	body := validCreateUserBody()
	delete(body, "organisation_id")

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/api/v1/users", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.got.OrganisationID != testSession.OrganisationID {
		t.Errorf("expected session organisation, got %q", svc.got.OrganisationID)
	}
}

func TestProvisioningHandler_ForeignOrganisation(t *testing.T) {
	svc := &stubProvisioner{}
	h := NewProvisioningHandler(svc, discardLogger())

	body := validCreateUserBody()
	body["organisation_id"] = "org-2"

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/api/v1/users", body))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if svc.hits != 0 {
		t.Error("provisioning must not run for a foreign organisation")
	}
}

func TestProvisioningHandler_WithoutSessionUsesBody(t *testing.T) {
	svc := &stubProvisioner{}
	h := NewProvisioningHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-user",
		strings.NewReader(`{"email":"a@b.com","full_name":"A B","role":"worker","organisation_id":"org-9","employment_type":"salary"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.got.OrganisationID != "org-9" {
		t.Errorf("expected body organisation, got %q", svc.got.OrganisationID)
	}
}

func TestProvisioningHandler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		body    any
		wantMsg string
	}{
		{
			name:    "auth error",
			err:     &provisioning.AuthError{Err: errors.New("A user with this email address has already been registered")},
			body:    validCreateUserBody(),
			wantMsg: "Auth error: A user with this email address has already been registered",
		},
		{
			name:    "profile error",
			err:     &provisioning.ProfileError{Err: errors.New("insert failed")},
			body:    validCreateUserBody(),
			wantMsg: "Profile error: insert failed",
		},
		{
			name:    "validation error",
			err:     &provisioning.ValidationError{Field: "email", Message: "email is required"},
			body:    validCreateUserBody(),
			wantMsg: "email is required",
		},
		{
			name:    "malformed body",
			body:    `{"email":`,
			wantMsg: "Invalid request body: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewProvisioningHandler(&stubProvisioner{err: tt.err}, discardLogger())

			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(t, http.MethodPost, "/functions/v1/create-user", tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			response := decodeBody[map[string]any](t, rec)
			if response["error"] != tt.wantMsg {
				t.Errorf("expected error %q, got %v", tt.wantMsg, response["error"])
			}
			if len(response) != 1 {
				t.Errorf("expected only the error field, got %v", response)
			}
		})
	}
}

func TestProvisioningHandler_Options(t *testing.T) {
	h := NewProvisioningHandler(&stubProvisioner{}, discardLogger())

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/create-user", nil)
	rec := httptest.NewRecorder()
	h.Options(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body ok, got %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected permissive CORS origin")
	}
}
