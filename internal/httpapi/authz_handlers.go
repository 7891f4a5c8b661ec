package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"opiniq.org/internal/authz"
	"opiniq.org/internal/identity"
)

type authzCheckRequest struct {
	SurveyID  string `json:"survey_id"`
	Operation string `json:"operation"`
}

type authzCheckResponse struct {
	Allowed   bool   `json:"allowed"`
	Operation string `json:"operation"`
	SurveyID  string `json:"survey_id"`
}

// AuthzCheck decides whether the caller may perform an operation on a survey.
// A deny is a 200 response with allowed=false, not an HTTP error; the caller
// cannot distinguish a missing survey from a denied one.
func (a *API) AuthzCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	id, ok := identity.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req authzCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SurveyID == "" {
		respondError(w, http.StatusBadRequest, "survey_id is required")
		return
	}
	op, ok := authz.ParseOperation(req.Operation)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown operation")
		return
	}

	verdict, err := a.gate.Authorize(r.Context(), id, req.SurveyID, op)
	if err != nil {
		if errors.Is(err, authz.ErrBackendUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "authorization backend unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "authorization failed")
		return
	}

	writeJSON(w, http.StatusOK, authzCheckResponse{
		Allowed:   verdict == authz.Allow,
		Operation: string(op),
		SurveyID:  req.SurveyID,
	})
}
