package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"opiniq.org/internal/credstore"
	"opiniq.org/internal/identity"
)

type acquireTokenRequest struct {
	ClientID string `json:"client_id"`
	Resource string `json:"resource"`
}

type acquireTokenResponse struct {
	AccessToken string `json:"access_token"`
	Resource    string `json:"resource"`
	ExpiresAt   string `json:"expires_at"`
}

// AcquireToken returns a downstream API token for the caller, serving from
// the credential cache and refreshing through the identity provider when
// needed.
func (a *API) AcquireToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	id, ok := identity.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req acquireTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClientID == "" || req.Resource == "" {
		respondError(w, http.StatusBadRequest, "client_id and resource are required")
		return
	}

	tok, err := a.acquirer.AcquireToken(r.Context(), id, req.ClientID, req.Resource)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUnresolved):
			respondError(w, http.StatusUnauthorized, "identity is not fully resolved")
		case errors.Is(err, credstore.ErrInvalidKey):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, credstore.ErrBackendUnavailable):
			respondError(w, http.StatusServiceUnavailable, "credential store unavailable")
		default:
			respondError(w, http.StatusBadGateway, "token acquisition failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, acquireTokenResponse{
		AccessToken: tok.AccessToken,
		Resource:    tok.Resource,
		ExpiresAt:   tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// SignOut ends the caller's session: backend credential entries are deleted
// and the in-memory caches are torn down. Idempotent.
func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "use DELETE")
		return
	}
	id, ok := identity.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := a.acquirer.SignOut(r.Context(), id); err != nil {
		if errors.Is(err, credstore.ErrBackendUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "credential store unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "sign-out failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
