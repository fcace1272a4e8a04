package httpapi

import (
	"net/http"

	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
	"github.com/ferriskey/ferriskey/internal/ports"
)

type introspectResponse struct {
	Active   bool   `json:"active"`
	Sub      string `json:"sub,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
	Iat      int64  `json:"iat,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// requiredIntrospectRole is the role a client's service account must carry
// to call introspection (spec §4.B "introspect(..., required_role='introspect')").
const requiredIntrospectRole = "introspect"

// handleIntrospect implements spec §6's "POST .../token/introspect": an
// RFC 7662-style response that never reveals *why* a token is inactive
// (spec §7 policy). Only a client whose service-account user carries the
// introspect role may call this endpoint.
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, introspectResponse{Active: false})
		return
	}
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, introspectResponse{Active: false})
		return
	}

	clientID := r.FormValue("client_id")
	clientSecret := r.FormValue("client_secret")
	client, err := s.clients.GetByClientID(r.Context(), realm.ID, clientID)
	if err != nil || !client.Enabled || (client.Secret != "" && client.Secret != clientSecret) {
		if err != nil && err != ports.ErrNotFound {
			writeJSON(w, http.StatusInternalServerError, introspectResponse{Active: false})
			return
		}
		writeJSON(w, http.StatusUnauthorized, introspectResponse{Active: false})
		return
	}

	serviceAccount, err := s.users.GetServiceAccountUser(r.Context(), client.ID)
	if err != nil {
		writeJSON(w, http.StatusForbidden, introspectResponse{Active: false})
		return
	}
	allowed, err := s.roles.UserHasRole(r.Context(), realm.ID, serviceAccount.ID, requiredIntrospectRole)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, introspectResponse{Active: false})
		return
	}
	if !allowed {
		writeJSON(w, http.StatusForbidden, introspectResponse{Active: false})
		return
	}

	token := r.FormValue("token")
	tokenTypeHint := r.FormValue("token_type_hint")
	active, claim, err := s.tokens.Introspect(r.Context(), realm, token, tokenTypeHint)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, introspectResponse{Active: false})
		return
	}
	if !active {
		writeJSON(w, http.StatusOK, introspectResponse{Active: false})
		return
	}

	writeJSON(w, http.StatusOK, introspectResponse{
		Active:    true,
		Sub:       claim.Sub,
		ClientID:  claim.Azp,
		Scope:     claim.Scope,
		Exp:       claim.Exp,
		Iat:       claim.Iat,
		TokenType: string(claim.Typ),
	})
}
