// Package broker implements spec §4.F BrokerEngine: delegating
// authentication to an external OIDC identity provider, verifying its
// response, and resolving the result to a local user before handing control
// back to AuthSessionEngine.
package broker

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// DefaultBrokerSessionTTL bounds how long a round trip to the external IdP
// may take before the state is considered abandoned (spec §3
// BrokerAuthSession).
const DefaultBrokerSessionTTL = 10 * time.Minute

// Engine drives the federated-login round trip.
type Engine struct {
	brokerSessions ports.BrokerAuthSessionRepository
	idps           ports.IdentityProviderRepository
	links          ports.IdentityProviderLinkRepository
	users          ports.UserRepository
	clients        ports.ClientRepository
	redirectURIs   ports.RedirectURIRepository
	authSessions   *authsession.Engine
	clock          ports.Clock
	httpClient     *http.Client
	callbackURL    func(realmName, alias string) string
}

// New builds an Engine. callbackURL renders this core's own redirect_uri for
// a given realm/alias pair, which the external IdP will redirect back to.
func New(
	brokerSessions ports.BrokerAuthSessionRepository,
	idps ports.IdentityProviderRepository,
	links ports.IdentityProviderLinkRepository,
	users ports.UserRepository,
	clients ports.ClientRepository,
	redirectURIs ports.RedirectURIRepository,
	authSessions *authsession.Engine,
	clock ports.Clock,
	callbackURL func(realmName, alias string) string,
) *Engine {
	return &Engine{
		brokerSessions: brokerSessions,
		idps:           idps,
		links:          links,
		users:          users,
		clients:        clients,
		redirectURIs:   redirectURIs,
		authSessions:   authSessions,
		clock:          clock,
		httpClient:     http.DefaultClient,
		callbackURL:    callbackURL,
	}
}

// InitiateLoginParams carries the parameters of a broker-initiated login
// (spec §4.F "initiate_login" step 1). AuthSessionID is optional: when set,
// the broker session nests under an already in-progress AuthSessionEngine
// flow; when absent, this is a standalone broker login
// (`GET .../broker/{alias}/login` with no prior `/auth` call), and
// handle_callback creates a brand-new AuthSession bound to the captured
// client/redirect/scope/state/nonce once the external IdP round trip
// completes.
type InitiateLoginParams struct {
	Realm         domain.Realm
	Alias         string
	ClientID      string `validate:"required"`
	RedirectURI   string `validate:"required,uri"`
	ResponseType  string `validate:"required,eq=code"`
	Scope         string
	State         *string
	Nonce         *string
	AuthSessionID *string
}

// InitiateLogin opens a broker session and returns the URL the user agent
// must be redirected to (spec §4.F "initiate_login").
func (e *Engine) InitiateLogin(ctx context.Context, p InitiateLoginParams) (string, error) {
	idp, err := e.idps.GetByAlias(ctx, p.Realm.ID, p.Alias)
	if err != nil {
		if err == ports.ErrNotFound {
			return "", domain.New(domain.KindIdpAuthenticationFailed, "unknown identity provider")
		}
		return "", domain.Wrap(domain.KindInternalServerError, "load identity provider", err)
	}
	if !idp.Enabled {
		return "", domain.New(domain.KindIdpAuthenticationFailed, "identity provider disabled")
	}

	client, err := e.resolveClient(ctx, p.Realm.ID, p.ClientID, p.RedirectURI)
	if err != nil {
		return "", err
	}

	brokerState, err := randomURLSafe(32)
	if err != nil {
		return "", domain.Wrap(domain.KindInternalServerError, "generate broker state", err)
	}

	var codeVerifier *string
	oauthConfig := e.oauth2Config(p.Realm, idp)
	authCodeOpts := []oauth2.AuthCodeOption{}
	if idp.Config.UsePKCE {
		verifier, err := randomURLSafe(48)
		if err != nil {
			return "", domain.Wrap(domain.KindInternalServerError, "generate pkce verifier", err)
		}
		codeVerifier = &verifier
		challenge := pkceS256Challenge(verifier)
		authCodeOpts = append(authCodeOpts,
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	if p.Nonce != nil {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("nonce", *p.Nonce))
	}

	now := e.clock.Now()
	session := domain.BrokerAuthSession{
		ID:                 uuid.NewString(),
		RealmID:            p.Realm.ID,
		IdentityProviderID: idp.ID,
		ClientID:           client.ClientID,
		RedirectURI:        p.RedirectURI,
		ResponseType:       p.ResponseType,
		Scope:              p.Scope,
		State:              p.State,
		Nonce:              p.Nonce,
		BrokerState:        brokerState,
		CodeVerifier:       codeVerifier,
		AuthSessionID:      p.AuthSessionID,
		CreatedAt:          now,
		ExpiresAt:          now.Add(DefaultBrokerSessionTTL),
	}
	if err := e.brokerSessions.Create(ctx, session); err != nil {
		return "", domain.Wrap(domain.KindInternalServerError, "persist broker session", err)
	}

	return oauthConfig.AuthCodeURL(brokerState, authCodeOpts...), nil
}

// resolveClient validates client_id/redirect_uri the same way
// AuthSessionEngine.Initiate does (spec §4.F "initiate_login" step 1):
// literal redirect_uri match first, then regex.
func (e *Engine) resolveClient(ctx context.Context, realmID, clientID, redirectURI string) (domain.Client, error) {
	client, err := e.clients.GetByClientID(ctx, realmID, clientID)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.Client{}, domain.New(domain.KindInvalidClient, "unknown client")
		}
		return domain.Client{}, domain.Wrap(domain.KindInternalServerError, "load client", err)
	}
	if !client.Enabled {
		return domain.Client{}, domain.New(domain.KindInvalidClient, "client disabled")
	}

	registered, err := e.redirectURIs.ListEnabledByClientID(ctx, client.ID)
	if err != nil {
		return domain.Client{}, domain.Wrap(domain.KindInternalServerError, "load redirect uris", err)
	}
	for _, r := range registered {
		if r.Value == redirectURI {
			return client, nil
		}
	}
	for _, r := range registered {
		re, err := regexp.Compile(r.Value)
		if err != nil {
			continue
		}
		if re.MatchString(redirectURI) {
			return client, nil
		}
	}
	return domain.Client{}, domain.New(domain.KindInvalidRedirectURI, "redirect uri not registered for client")
}

func (e *Engine) oauth2Config(realm domain.Realm, idp domain.IdentityProvider) *oauth2.Config {
	scopes := strings.Fields(idp.Config.Scopes)
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}
	return &oauth2.Config{
		ClientID:     idp.Config.ClientID,
		ClientSecret: idp.Config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  idp.Config.AuthorizationURL,
			TokenURL: idp.Config.TokenURL,
		},
		RedirectURL: e.callbackURL(realm.Name, idp.Alias),
		Scopes:      scopes,
	}
}

// CallbackResult is what a successful HandleCallback resolves to: the
// finalized AuthSession, from which the flow proceeds like any other
// authorization-code flow, and the local user the external identity
// resolved to.
type CallbackResult struct {
	AuthSession domain.AuthSession
	LinkedUser  domain.User
}

// HandleCallback exchanges the authorization code, verifies the ID token,
// resolves the external identity to a local user, and finalizes the parent
// AuthSession (spec §4.F "handle_callback"). The broker session is deleted
// unconditionally before returning, since it is single-use regardless of
// outcome — but only after the parent AuthSession has already been
// finalized, so a crash between the two never strands a session with no
// recoverable broker state (spec §5 destruction ordering).
func (e *Engine) HandleCallback(ctx context.Context, realm domain.Realm, brokerState, code string) (CallbackResult, error) {
	session, err := e.brokerSessions.GetByBrokerState(ctx, brokerState)
	if err != nil {
		if err == ports.ErrNotFound {
			return CallbackResult{}, domain.New(domain.KindBrokerSessionNotFound, "broker session not found")
		}
		return CallbackResult{}, domain.Wrap(domain.KindInternalServerError, "load broker session", err)
	}
	if session.Expired(e.clock.Now()) {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, domain.New(domain.KindBrokerSessionExpired, "broker session expired")
	}
	if code == "" {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, domain.New(domain.KindMissingAuthorizationCode, "identity provider did not return a code")
	}

	idp, err := e.idps.GetByID(ctx, session.IdentityProviderID)
	if err != nil {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, domain.Wrap(domain.KindInternalServerError, "load identity provider", err)
	}

	oauthConfig := e.oauth2Config(realm, idp)
	exchangeOpts := []oauth2.AuthCodeOption{}
	if session.CodeVerifier != nil {
		exchangeOpts = append(exchangeOpts, oauth2.SetAuthURLParam("code_verifier", *session.CodeVerifier))
	}
	oauthToken, err := oauthConfig.Exchange(ctx, code, exchangeOpts...)
	if err != nil {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, domain.Wrap(domain.KindIdpTokenExchangeFailed, "exchange authorization code", err)
	}

	idTokenClaims, err := e.verifyIDToken(ctx, idp, oauthToken)
	if err != nil {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, err
	}

	userinfo, err := e.fetchUserinfo(ctx, idp, oauthToken)
	if err != nil {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, err
	}

	user, err := e.resolveUser(ctx, realm, idp, idTokenClaims, userinfo)
	if err != nil {
		_ = e.brokerSessions.Delete(ctx, session.ID)
		return CallbackResult{}, err
	}

	var finalized domain.AuthSession
	if session.AuthSessionID != nil {
		finalized, err = e.authSessions.FinalizeWithUserID(ctx, *session.AuthSessionID, user.ID)
		if err != nil {
			_ = e.brokerSessions.Delete(ctx, session.ID)
			return CallbackResult{}, err
		}
	} else {
		// Standalone broker login: no parent AuthSession exists yet, so create
		// one bound to the client/redirect/scope/state/nonce captured at
		// initiate_login time, then finalize it immediately (spec §4.F
		// "handle_callback" step 8).
		fresh, err := e.authSessions.Initiate(ctx, authsession.InitiateParams{
			Realm:        realm,
			ClientID:     session.ClientID,
			RedirectURI:  session.RedirectURI,
			ResponseType: session.ResponseType,
			Scope:        session.Scope,
			State:        session.State,
			Nonce:        session.Nonce,
		})
		if err != nil {
			_ = e.brokerSessions.Delete(ctx, session.ID)
			return CallbackResult{}, err
		}
		finalized, err = e.authSessions.FinalizeWithUserID(ctx, fresh.ID, user.ID)
		if err != nil {
			_ = e.brokerSessions.Delete(ctx, session.ID)
			return CallbackResult{}, err
		}
	}

	// Parent session is finalized; the broker session's job is done.
	_ = e.brokerSessions.Delete(ctx, session.ID)

	return CallbackResult{AuthSession: finalized, LinkedUser: user}, nil
}

type idTokenExternalClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

func (e *Engine) verifyIDToken(ctx context.Context, idp domain.IdentityProvider, oauthToken *oauth2.Token) (idTokenExternalClaims, error) {
	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return idTokenExternalClaims{}, domain.New(domain.KindInvalidIDToken, "token response missing id_token")
	}

	keySet := oidc.NewRemoteKeySet(ctx, idp.Config.JWKSURL)
	verifier := oidc.NewVerifier(idp.Config.Issuer, keySet, &oidc.Config{ClientID: idp.Config.ClientID})

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return idTokenExternalClaims{}, domain.Wrap(domain.KindInvalidIDToken, "verify id token", err)
	}

	var claims idTokenExternalClaims
	if err := idToken.Claims(&claims); err != nil {
		return idTokenExternalClaims{}, domain.Wrap(domain.KindInvalidIDToken, "parse id token claims", err)
	}
	return claims, nil
}

func (e *Engine) fetchUserinfo(ctx context.Context, idp domain.IdentityProvider, oauthToken *oauth2.Token) (idTokenExternalClaims, error) {
	if idp.Config.UserinfoURL == "" {
		return idTokenExternalClaims{}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, idp.Config.UserinfoURL, nil)
	if err != nil {
		return idTokenExternalClaims{}, domain.Wrap(domain.KindIdpUserInfoFailed, "build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+oauthToken.AccessToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return idTokenExternalClaims{}, domain.Wrap(domain.KindIdpUserInfoFailed, "call userinfo endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return idTokenExternalClaims{}, domain.New(domain.KindIdpUserInfoFailed, fmt.Sprintf("userinfo endpoint returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return idTokenExternalClaims{}, domain.Wrap(domain.KindIdpUserInfoFailed, "read userinfo response", err)
	}

	var claims idTokenExternalClaims
	if err := json.Unmarshal(body, &claims); err != nil {
		return idTokenExternalClaims{}, domain.Wrap(domain.KindIdpUserInfoFailed, "parse userinfo response", err)
	}
	return claims, nil
}

// resolveUser implements the link-or-create rule: an existing link wins;
// absent a link, a LinkOnly provider fails closed (spec §4.F), while a
// normal provider creates a new local user, trusting the external email
// when TrustEmail is set.
func (e *Engine) resolveUser(ctx context.Context, realm domain.Realm, idp domain.IdentityProvider, idTokenClaims, userinfo idTokenExternalClaims) (domain.User, error) {
	externalID := idTokenClaims.Subject
	email := firstNonEmpty(userinfo.Email, idTokenClaims.Email)
	username := firstNonEmpty(userinfo.PreferredUsername, idTokenClaims.PreferredUsername, email, externalID)

	link, err := e.links.GetByExternalID(ctx, idp.ID, externalID)
	if err == nil {
		return e.users.GetByID(ctx, link.UserID)
	}
	if err != ports.ErrNotFound {
		return domain.User{}, domain.Wrap(domain.KindInternalServerError, "load identity provider link", err)
	}

	if idp.LinkOnly {
		return domain.User{}, domain.New(domain.KindLinkOnlyUserNotFound, "no existing link for link-only provider")
	}

	user := domain.User{
		ID:            uuid.NewString(),
		RealmID:       realm.ID,
		Username:      username,
		Email:         email,
		EmailVerified: idp.TrustEmail,
		Enabled:       true,
		Firstname:     firstNonEmpty(userinfo.GivenName, idTokenClaims.GivenName),
		Lastname:      firstNonEmpty(userinfo.FamilyName, idTokenClaims.FamilyName),
	}
	if err := e.users.Create(ctx, user); err != nil {
		return domain.User{}, domain.Wrap(domain.KindInternalServerError, "create federated user", err)
	}

	token := ""
	if idp.StoreToken {
		// The raw provider access/refresh token would be stashed here;
		// left blank until token storage encryption is designed.
		token = ""
	}
	if err := e.links.Create(ctx, domain.IdentityProviderLink{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		IdentityProviderID: idp.ID,
		ExternalUserID:     externalID,
		ExternalUsername:   username,
		Token:              token,
	}); err != nil {
		return domain.User{}, domain.Wrap(domain.KindInternalServerError, "persist identity provider link", err)
	}

	return user, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func pkceS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
