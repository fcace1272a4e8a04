// Package grant implements spec §4.D GrantDispatcher: the token endpoint's
// four-branch dispatch over grant_type, each branch enforcing its own
// client-eligibility rule before minting a token set.
package grant

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/scope"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

// GrantType enumerates the grant_type values the token endpoint accepts
// (spec §4.D).
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
	GrantRefreshToken      GrantType = "refresh_token"
)

// Request is the token endpoint's parsed request body, fields populated
// according to GrantType.
type Request struct {
	GrantType    GrantType `validate:"required,oneof=authorization_code client_credentials password refresh_token"`
	ClientID     string    `validate:"required"`
	ClientSecret string
	Code         string
	RedirectURI  string
	Username     string
	Password     string
	RefreshToken string
	Scope        string
}

// Dispatcher resolves a grant request to a token set.
type Dispatcher struct {
	clients  ports.ClientRepository
	users    ports.UserRepository
	sessions *authsession.Engine
	verifier *credential.Verifier
	tokens   *tokenservice.Service
	scopes   *scope.Manager
}

// New builds a Dispatcher.
func New(clients ports.ClientRepository, users ports.UserRepository, sessions *authsession.Engine, verifier *credential.Verifier, tokens *tokenservice.Service, scopes *scope.Manager) *Dispatcher {
	return &Dispatcher{clients: clients, users: users, sessions: sessions, verifier: verifier, tokens: tokens, scopes: scopes}
}

// Dispatch resolves req against realm and mints a TokenSet, or a classified
// domain.Error explaining why the grant is ineligible.
func (d *Dispatcher) Dispatch(ctx context.Context, realm domain.Realm, req Request) (domain.TokenSet, error) {
	switch req.GrantType {
	case GrantAuthorizationCode:
		return d.authorizationCode(ctx, realm, req)
	case GrantClientCredentials:
		return d.clientCredentials(ctx, realm, req)
	case GrantPassword:
		return d.password(ctx, realm, req)
	case GrantRefreshToken:
		return d.refreshToken(ctx, realm, req)
	default:
		return domain.TokenSet{}, domain.New(domain.KindInvalidClient, "unsupported grant_type")
	}
}

func (d *Dispatcher) resolveClient(ctx context.Context, realm domain.Realm, clientID, clientSecret string) (domain.Client, error) {
	client, err := d.clients.GetByClientID(ctx, realm.ID, clientID)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.Client{}, domain.New(domain.KindInvalidClient, "unknown client")
		}
		return domain.Client{}, domain.Wrap(domain.KindInternalServerError, "load client", err)
	}
	if !client.Enabled {
		return domain.Client{}, domain.New(domain.KindInvalidClient, "client disabled")
	}
	if client.RequiresSecret() || !client.PublicClient {
		if client.Secret == "" || !secureCompareSecrets(clientSecret, client.Secret) {
			return domain.Client{}, domain.New(domain.KindInvalidClientSecret, "invalid client secret")
		}
	}
	return client, nil
}

// authorizationCode implements spec §4.D's authorization_code branch: the
// code must come from a finalized session bound to the same client and
// redirect_uri (OAuth 2.0 §4.1.3), and is consumed exactly once.
func (d *Dispatcher) authorizationCode(ctx context.Context, realm domain.Realm, req Request) (domain.TokenSet, error) {
	client, err := d.resolveClient(ctx, realm, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenSet{}, err
	}

	session, err := d.sessions.ConsumeCode(ctx, req.Code)
	if err != nil {
		return domain.TokenSet{}, err
	}
	// The session is single-use regardless of outcome from here on.
	defer func() { _ = d.sessions.Delete(ctx, session.ID) }()

	if session.ClientID != client.ID {
		return domain.TokenSet{}, domain.New(domain.KindInvalidClient, "authorization code issued to a different client")
	}
	if session.RedirectURI != req.RedirectURI {
		return domain.TokenSet{}, domain.New(domain.KindInvalidRedirectURI, "redirect_uri does not match authorization request")
	}
	if session.UserID == nil {
		return domain.TokenSet{}, domain.New(domain.KindInternalServerError, "finalized session missing user id")
	}

	user, err := d.users.GetByID(ctx, *session.UserID)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.TokenSet{}, domain.New(domain.KindUserNotFound, "user not found")
		}
		return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "load user", err)
	}

	identity := domain.Identity{User: &user}
	includeIDToken := scope.Contains(session.Scope, "openid")
	return d.tokens.CreateTokenSet(ctx, realm, identity, session.Scope, client.ClientID, includeIDToken, session.Nonce)
}

// clientCredentials implements spec §4.D's client_credentials branch: a
// confidential client with a service account mints a token as its own
// service-account identity, never as a human user.
func (d *Dispatcher) clientCredentials(ctx context.Context, realm domain.Realm, req Request) (domain.TokenSet, error) {
	client, err := d.resolveClient(ctx, realm, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenSet{}, err
	}
	if client.PublicClient {
		return domain.TokenSet{}, domain.New(domain.KindInvalidClient, "public clients cannot use client_credentials")
	}
	if !client.ServiceAccountEnabled {
		return domain.TokenSet{}, domain.New(domain.KindServiceAccountNotFound, "client has no service account enabled")
	}

	filteredScope := d.scopes.ValidateAndFilter(req.Scope)
	identity := domain.Identity{Client: &client}
	return d.tokens.CreateTokenSet(ctx, realm, identity, filteredScope, client.ClientID, false, nil)
}

// password implements spec §4.D's Resource Owner Password Credentials
// branch: only clients with direct_access_grants enabled may use it, and a
// user with pending required actions cannot complete it (there is no
// interactive surface to resolve them on this grant).
func (d *Dispatcher) password(ctx context.Context, realm domain.Realm, req Request) (domain.TokenSet, error) {
	client, err := d.resolveClient(ctx, realm, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenSet{}, err
	}
	if !client.DirectAccessGrantsEnabled {
		return domain.TokenSet{}, domain.New(domain.KindInvalidClient, "client not enabled for direct access grants")
	}

	user, err := d.users.GetByUsername(ctx, realm.ID, req.Username)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.TokenSet{}, domain.New(domain.KindUserNotFound, "user not found")
		}
		return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "load user", err)
	}
	if !user.Enabled {
		return domain.TokenSet{}, domain.New(domain.KindInvalidUser, "user disabled")
	}
	if err := d.verifier.VerifyPassword(ctx, user, req.Password); err != nil {
		return domain.TokenSet{}, err
	}
	if len(user.RequiredActions) > 0 {
		return domain.TokenSet{}, domain.New(domain.KindInvalidUser, "user has pending required actions")
	}

	filteredScope := d.scopes.MergeWithDefaults(req.Scope)
	identity := domain.Identity{User: &user}
	includeIDToken := scope.Contains(filteredScope, "openid")
	return d.tokens.CreateTokenSet(ctx, realm, identity, filteredScope, client.ClientID, includeIDToken, nil)
}

// refreshToken implements spec §4.D's refresh_token branch with
// issue-then-delete rotation: the replacement token set is minted and
// persisted before the presented refresh token is revoked, so a failure
// mid-rotation leaves the caller able to retry with the same token
// (fail-closed, per spec §5 concurrency notes).
func (d *Dispatcher) refreshToken(ctx context.Context, realm domain.Realm, req Request) (domain.TokenSet, error) {
	client, err := d.resolveClient(ctx, realm, req.ClientID, req.ClientSecret)
	if err != nil {
		return domain.TokenSet{}, err
	}

	claim, err := d.tokens.VerifyRefresh(ctx, realm, req.RefreshToken)
	if err != nil {
		return domain.TokenSet{}, err
	}
	if claim.Azp != client.ClientID {
		return domain.TokenSet{}, domain.New(domain.KindInvalidClient, "refresh token was not issued to this client")
	}

	var identity domain.Identity
	azp := claim.Azp
	if claim.IsServiceAccount() {
		client, err := d.clients.GetByID(ctx, claim.ClientID)
		if err != nil {
			return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "load client for refresh", err)
		}
		identity = domain.Identity{Client: &client}
	} else {
		user, err := d.users.GetByID(ctx, claim.Sub)
		if err != nil {
			if err == ports.ErrNotFound {
				return domain.TokenSet{}, domain.New(domain.KindUserNotFound, "user not found")
			}
			return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "load user for refresh", err)
		}
		identity = domain.Identity{User: &user}
	}

	includeIDToken := scope.Contains(claim.Scope, "openid")
	newSet, err := d.tokens.CreateTokenSet(ctx, realm, identity, claim.Scope, azp, includeIDToken, nil)
	if err != nil {
		return domain.TokenSet{}, err
	}

	if err := d.tokens.RevokeRefresh(ctx, claim.Jti); err != nil {
		return domain.TokenSet{}, err
	}
	return newSet, nil
}
