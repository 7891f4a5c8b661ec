package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opiniq.org/internal/audit"
	"opiniq.org/internal/authz"
	"opiniq.org/internal/credstore"
	"opiniq.org/internal/identity"
	"opiniq.org/internal/ids"
	"opiniq.org/internal/survey"
	"opiniq.org/internal/tokens"
)

func newTestAPI(t *testing.T) (*API, *survey.InMemory) {
	t.Helper()
	t.Setenv("OPINIQ_AUTH_SECRET", "test-secret")
	identity.ResetSecretCache()
	t.Cleanup(identity.ResetSecretCache)

	surveys := survey.NewInMemory()
	gate := authz.NewGate(surveys, audit.LogRecorder{})
	registry := credstore.NewRegistry(credstore.NewMemoryBackend())
	acquirer := tokens.NewAcquirer(registry, tokens.DevSource{TTL: time.Hour})
	return New(ReadyProbe{}, "test", gate, acquirer), surveys
}

func signedToken(t *testing.T, id identity.Identity) string {
	t.Helper()
	token, err := identity.SignToken(id, 30*time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return token
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.1.2.3:50000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsPublic(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}
}

func TestProtectedPathRequiresToken(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodGet, "/v1/info", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, api.Handler(), http.MethodGet, "/v1/info", "garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", rec.Code)
	}
}

func TestAuthzCheckAllowAndDeny(t *testing.T) {
	api, surveys := newTestAPI(t)
	if err := surveys.Put(survey.Survey{ID: "s1", TenantID: "T1", OwnerID: 7}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	h := api.Handler()

	owner := signedToken(t, identity.Identity{SubjectID: 7, TenantID: "T1"})
	rec := doJSON(t, h, http.MethodPost, "/v1/authz/check", owner, `{"survey_id":"s1","operation":"delete"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("authz check status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp authzCheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Allowed {
		t.Fatalf("owner delete should be allowed")
	}

	reader := signedToken(t, identity.Identity{SubjectID: 5, TenantID: "T1"})
	rec = doJSON(t, h, http.MethodPost, "/v1/authz/check", reader, `{"survey_id":"s1","operation":"delete"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deny must still be HTTP 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Allowed {
		t.Fatalf("reader delete should be denied")
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	token := signedToken(t, identity.Identity{SubjectID: 7, TenantID: "T1"})

	pad := strings.Repeat("x", maxRequestBodyBytes+1)
	body := `{"survey_id":"s1","operation":"read","pad":"` + pad + `"}`
	rec := doJSON(t, api.Handler(), http.MethodPost, "/v1/authz/check", token, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized body status=%d", rec.Code)
	}
}

func TestAuthzCheckMissingSurveyIndistinguishable(t *testing.T) {
	api, surveys := newTestAPI(t)
	if err := surveys.Put(survey.Survey{ID: "s1", TenantID: "T1", OwnerID: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	h := api.Handler()
	token := signedToken(t, identity.Identity{SubjectID: 5, TenantID: "T1"})

	denied := doJSON(t, h, http.MethodPost, "/v1/authz/check", token, `{"survey_id":"s1","operation":"delete"}`)
	missing := doJSON(t, h, http.MethodPost, "/v1/authz/check", token, `{"survey_id":"ghost","operation":"delete"}`)
	if denied.Code != missing.Code {
		t.Fatalf("existence leak: denied=%d missing=%d", denied.Code, missing.Code)
	}

	var a, b authzCheckResponse
	if err := json.Unmarshal(denied.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(missing.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Allowed || b.Allowed {
		t.Fatalf("both must deny")
	}
}

func TestAuthzCheckValidation(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	token := signedToken(t, identity.Identity{SubjectID: 5, TenantID: "T1"})

	rec := doJSON(t, h, http.MethodPost, "/v1/authz/check", token, `{"survey_id":"s1","operation":"explode"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown operation: expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/authz/check", token, `{"operation":"read"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing survey_id: expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/authz/check", token, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: expected 405, got %d", rec.Code)
	}
}

func TestTokenAcquisitionAndSignOut(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	token := signedToken(t, identity.Identity{SubjectID: 42, TenantID: "T1"})

	rec := doJSON(t, h, http.MethodPost, "/v1/tokens", token, `{"client_id":"portal","resource":"graph"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("token acquisition status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp acquireTokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.Resource != "graph" {
		t.Fatalf("unexpected token response: %+v", resp)
	}

	// Cached on repeat.
	rec = doJSON(t, h, http.MethodPost, "/v1/tokens", token, `{"client_id":"portal","resource":"graph"}`)
	var again acquireTokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if again.AccessToken != resp.AccessToken {
		t.Fatalf("expected cached token on second call")
	}

	rec = doJSON(t, h, http.MethodDelete, "/v1/sessions/current", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("sign-out status=%d", rec.Code)
	}
	// Idempotent.
	rec = doJSON(t, h, http.MethodDelete, "/v1/sessions/current", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("repeated sign-out status=%d", rec.Code)
	}

	// Fresh exchange after sign-out.
	rec = doJSON(t, h, http.MethodPost, "/v1/tokens", token, `{"client_id":"portal","resource":"graph"}`)
	var fresh acquireTokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &fresh); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fresh.AccessToken == resp.AccessToken {
		t.Fatalf("sign-out did not clear the cached token")
	}
}

func TestTokenValidation(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	token := signedToken(t, identity.Identity{SubjectID: 42, TenantID: "T1"})

	rec := doJSON(t, h, http.MethodPost, "/v1/tokens", token, `{"client_id":"","resource":"graph"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing client_id: expected 400, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "", "")
	rid := rec.Header().Get("X-Request-Id")
	if rid == "" {
		t.Fatalf("missing X-Request-Id header")
	}
	if !strings.HasPrefix(rid, ids.RequestPrefix+"_") {
		t.Fatalf("generated request id %q lacks the %s prefix", rid, ids.RequestPrefix)
	}
}
