package httpapi

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/audit"
	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/domain"
	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
)

// handleAuthorize implements spec §6's "GET .../protocol/openid-connect/auth":
// it opens an AuthSession and hands the user agent a session cookie to carry
// through the credential-submission step that follows (the login UI itself
// is out of scope per spec §1).
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}

	q := r.URL.Query()
	params := authsession.InitiateParams{
		Realm:        realm,
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
	if !validateRequest(w, params) {
		return
	}

	session, err := s.sessions.Initiate(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.sessionCookieName,
		Value:    session.ID,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]string{"session_code": session.ID})
}

type loginActionsRequest struct {
	Username string `validate:"required"`
	Password string
	OTPCode  string
}

type loginActionsTokenRequest struct {
	Token string `validate:"required"`
}

// handleLoginActionsAuthenticate implements spec §6's "POST
// .../login-actions/authenticate": multi-step credential submission driven
// by the session cookie set in handleAuthorize.
func (s *Server) handleLoginActionsAuthenticate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}

	cookie, err := r.Cookie(s.sessionCookieName)
	if err != nil {
		writeError(w, domain.New(domain.KindSessionNotFound, "missing session cookie"))
		return
	}

	// ExistingToken mode (spec §4.E "authenticate"): the client resumes a
	// pending RequiresActions/RequiresOtpChallenge step by presenting the
	// temporary token from the previous response instead of credentials.
	if token := r.FormValue("token"); token != "" {
		tokenReq := loginActionsTokenRequest{Token: token}
		if !validateRequest(w, tokenReq) {
			return
		}
		step, err := s.sessions.AuthenticateWithExistingToken(r.Context(), cookie.Value, realm, tokenReq.Token)
		if err != nil {
			writeError(w, err)
			return
		}
		writeLoginStep(w, r, s, realm, step)
		return
	}

	req := loginActionsRequest{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
		OTPCode:  r.FormValue("otp_code"),
	}
	if !validateRequest(w, req) {
		return
	}

	var step authsession.Step
	if req.OTPCode != "" {
		step, err = s.sessions.ResolveOtpChallenge(r.Context(), cookie.Value, realm.ID, req.Username, req.OTPCode)
	} else {
		step, err = s.sessions.AuthenticateWithCredentials(r.Context(), cookie.Value, realm, req.Username, req.Password)
	}
	if err != nil {
		s.audit.Log(r.Context(), uuid.Nil, audit.EventLoginFailed, "realm:"+realm.Name, map[string]string{
			"username": req.Username,
		})
		writeError(w, err)
		return
	}

	writeLoginStep(w, r, s, realm, step)
}

// writeLoginStep renders the outcome of any authsession.Step-producing call
// (credentials, OTP resolution, or existing-token resumption) as the
// endpoint's JSON response.
func writeLoginStep(w http.ResponseWriter, r *http.Request, s *Server, realm domain.Realm, step authsession.Step) {
	switch step.Kind {
	case authsession.StepRequiresActions:
		writeJSON(w, http.StatusOK, map[string]any{
			"step":             "requires_actions",
			"required_actions": step.RequiredActions,
			"token":            step.Token,
		})
	case authsession.StepRequiresOtpChallenge:
		writeJSON(w, http.StatusOK, map[string]any{"step": "requires_otp_challenge", "token": step.Token})
	case authsession.StepSuccess:
		redirect := buildRedirectURL(step.AuthSession)
		s.audit.Log(r.Context(), actorUUID(step.AuthSession.UserID), audit.EventLoginSuccess, "realm:"+realm.Name, map[string]string{
			"client_id": step.AuthSession.ClientID,
		})
		writeJSON(w, http.StatusOK, map[string]string{"step": "success", "redirect_uri": redirect})
	}
}

// actorUUID parses an optional domain user ID string into a uuid.UUID,
// falling back to the nil UUID when absent or malformed (audit logging must
// never fail the request it observes).
func actorUUID(id *string) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	parsed, err := uuid.Parse(*id)
	if err != nil {
		return uuid.Nil
	}
	return parsed
}

// buildRedirectURL appends the authorization code and original state to the
// session's registered redirect_uri (spec §4.E "finalize" result).
func buildRedirectURL(session domain.AuthSession) string {
	u, err := url.Parse(session.RedirectURI)
	if err != nil || session.Code == nil {
		return session.RedirectURI
	}
	q := u.Query()
	q.Set("code", *session.Code)
	if session.State != nil {
		q.Set("state", *session.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
