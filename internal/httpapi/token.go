package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/audit"
	"github.com/ferriskey/ferriskey/internal/grant"
	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// handleToken implements spec §6's "POST .../protocol/openid-connect/token".
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}

	req := grant.Request{
		GrantType:    grant.GrantType(r.FormValue("grant_type")),
		ClientID:     r.FormValue("client_id"),
		ClientSecret: r.FormValue("client_secret"),
		Code:         r.FormValue("code"),
		RedirectURI:  r.FormValue("redirect_uri"),
		Username:     r.FormValue("username"),
		Password:     r.FormValue("password"),
		RefreshToken: r.FormValue("refresh_token"),
		Scope:        r.FormValue("scope"),
	}
	if !validateRequest(w, req) {
		return
	}

	set, err := s.grants.Dispatch(r.Context(), realm, req)
	if err != nil {
		writeError(w, err)
		return
	}

	s.audit.Log(r.Context(), uuid.Nil, audit.EventTokenIssued, "realm:"+realm.Name, map[string]string{
		"client_id":  req.ClientID,
		"grant_type": string(req.GrantType),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		IDToken:      set.IDToken,
		TokenType:    set.TokenType,
		ExpiresIn:    set.ExpiresIn,
		Scope:        set.Scope,
	})
}
