package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/audit"
	"github.com/ferriskey/ferriskey/internal/broker"
	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
)

// handleBrokerLogin implements spec §6's "GET .../broker/{alias}/login":
// redirects the user agent to the external identity provider's authorize
// endpoint. client_id/redirect_uri/response_type are validated the same way
// AuthSessionEngine.Initiate validates them (spec §4.F step 1). A session
// cookie from a prior /auth call is optional: when present, the broker
// session nests under that AuthSession; when absent, this is a standalone
// broker login and handle_callback creates a brand-new AuthSession once the
// external IdP round trip completes.
func (s *Server) handleBrokerLogin(w http.ResponseWriter, r *http.Request) {
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}
	alias := chi.URLParam(r, "alias")

	q := r.URL.Query()
	params := broker.InitiateLoginParams{
		Realm:        realm,
		Alias:        alias,
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		ResponseType: q.Get("response_type"),
		Scope:        q.Get("scope"),
	}
	if v := q.Get("state"); v != "" {
		params.State = &v
	}
	if v := q.Get("nonce"); v != "" {
		params.Nonce = &v
	}
	if cookie, err := r.Cookie(s.sessionCookieName); err == nil {
		params.AuthSessionID = &cookie.Value
	}
	if !validateRequest(w, params) {
		return
	}

	authorizeURL, err := s.brokers.InitiateLogin(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// handleBrokerCallback implements spec §6's "GET .../broker/{alias}/endpoint":
// the external IdP's redirect target. On success the parent AuthSession is
// finalized and the user agent is sent on to the original client redirect
// URI carrying the authorization code, exactly as the local credentials path
// does in handleLoginActionsAuthenticate.
func (s *Server) handleBrokerCallback(w http.ResponseWriter, r *http.Request) {
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}

	q := r.URL.Query()
	result, err := s.brokers.HandleCallback(r.Context(), realm, q.Get("state"), q.Get("code"))
	if err != nil {
		writeError(w, err)
		return
	}

	linkedID := uuid.Nil
	if parsed, err := uuid.Parse(result.LinkedUser.ID); err == nil {
		linkedID = parsed
	}
	s.audit.Log(r.Context(), linkedID, audit.EventBrokerLinkCreated, "realm:"+realm.Name, map[string]string{
		"username": result.LinkedUser.Username,
	})

	http.Redirect(w, r, buildRedirectURL(result.AuthSession), http.StatusFound)
}
