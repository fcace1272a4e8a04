package httpapi

import (
	"net/http"

	"github.com/ferriskey/ferriskey/internal/domain"
	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
	"github.com/ferriskey/ferriskey/internal/scope"
)

// handleUserinfo implements spec §6's "GET .../protocol/openid-connect/userinfo":
// bearer-authenticated, filtered by the token's granted scope ("profile" →
// name fields, "email" → email claims). openid must be present in scope or
// the request is rejected as InvalidToken.
func (s *Server) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}

	identity, claim, err := s.gate.AuthorizeRequest(r.Context(), realm, r.Header.Get("Authorization"), "")
	if err != nil {
		writeError(w, err)
		return
	}
	if !scope.Contains(claim.Scope, "openid") {
		writeError(w, domain.New(domain.KindInvalidToken, "token scope lacks openid"))
		return
	}
	if identity.IsClient() {
		writeError(w, domain.New(domain.KindInvalidToken, "userinfo requires a user subject"))
		return
	}

	body := map[string]any{"sub": claim.Sub}
	if scope.Contains(claim.Scope, "profile") {
		body["preferred_username"] = identity.User.Username
		body["given_name"] = identity.User.Firstname
		body["family_name"] = identity.User.Lastname
	}
	if scope.Contains(claim.Scope, "email") {
		body["email"] = identity.User.Email
		body["email_verified"] = identity.User.EmailVerified
	}

	writeJSON(w, http.StatusOK, body)
}
