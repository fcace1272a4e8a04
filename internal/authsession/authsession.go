// Package authsession implements spec §4.E AuthSessionEngine: the
// server-side state machine backing the authorization_code interactive
// flow, from initiation through credential verification to the
// single-use authorization code handed back to the client.
package authsession

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/scope"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

// DefaultSessionTTL bounds how long an initiated, unfinished session stays
// valid (spec §3 AuthSession.ExpiresAt).
const DefaultSessionTTL = 10 * time.Minute

// StepKind enumerates the outcomes of Authenticate (spec §4.E
// determine_next_step).
type StepKind string

const (
	StepRequiresActions     StepKind = "requires_actions"
	StepRequiresOtpChallenge StepKind = "requires_otp_challenge"
	StepSuccess             StepKind = "success"
)

// Step is the result of advancing the state machine one step. AuthSession
// is set on every kind; RequiredActions only on StepRequiresActions. Token carries a short-lived temporary
// JWT on StepRequiresActions/StepRequiresOtpChallenge, letting the client
// resume the pending session via AuthenticateWithExistingToken instead of
// resubmitting credentials (spec §4.E "authenticate", ExistingToken mode).
type Step struct {
	Kind            StepKind
	RequiredActions []domain.RequiredAction
	AuthSession     domain.AuthSession
	Token           string
}

// InitiateParams carries the parameters of an authorization request (spec
// §6 "authorize" endpoint).
type InitiateParams struct {
	Realm        domain.Realm
	ClientID     string `validate:"required"`
	RedirectURI  string `validate:"required,uri"`
	ResponseType string `validate:"required,eq=code"`
	Scope        string
	State        *string
	Nonce        *string
}

// Engine drives the authorization-code flow's state machine.
type Engine struct {
	sessions     ports.AuthSessionRepository
	clients      ports.ClientRepository
	redirectURIs ports.RedirectURIRepository
	users        ports.UserRepository
	verifier     *credential.Verifier
	tokens       *tokenservice.Service
	scopes       *scope.Manager
	clock        ports.Clock
	sessionTTL   time.Duration
}

// New builds an Engine.
func New(
	sessions ports.AuthSessionRepository,
	clients ports.ClientRepository,
	redirectURIs ports.RedirectURIRepository,
	users ports.UserRepository,
	verifier *credential.Verifier,
	tokens *tokenservice.Service,
	scopes *scope.Manager,
	clock ports.Clock,
) *Engine {
	return &Engine{
		sessions:     sessions,
		clients:      clients,
		redirectURIs: redirectURIs,
		users:        users,
		verifier:     verifier,
		tokens:       tokens,
		scopes:       scopes,
		clock:        clock,
		sessionTTL:   DefaultSessionTTL,
	}
}

// Initiate validates the authorization request and opens a new session
// (spec §4.E "initiate").
func (e *Engine) Initiate(ctx context.Context, p InitiateParams) (domain.AuthSession, error) {
	client, err := e.clients.GetByClientID(ctx, p.Realm.ID, p.ClientID)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.AuthSession{}, domain.New(domain.KindInvalidClient, "unknown client")
		}
		return domain.AuthSession{}, domain.Wrap(domain.KindInternalServerError, "load client", err)
	}
	if !client.Enabled {
		return domain.AuthSession{}, domain.New(domain.KindInvalidClient, "client disabled")
	}

	if err := e.validateRedirectURI(ctx, client.ID, p.RedirectURI); err != nil {
		return domain.AuthSession{}, err
	}

	filteredScope := e.scopes.MergeWithDefaults(p.Scope)

	now := e.clock.Now()
	session := domain.AuthSession{
		ID:           uuid.NewString(),
		RealmID:      p.Realm.ID,
		ClientID:     client.ID,
		RedirectURI:  p.RedirectURI,
		ResponseType: p.ResponseType,
		Scope:        filteredScope,
		State:        p.State,
		Nonce:        p.Nonce,
		Authenticated: false,
		CreatedAt:    now,
		ExpiresAt:    now.Add(e.sessionTTL),
	}
	if err := e.sessions.Create(ctx, session); err != nil {
		return domain.AuthSession{}, domain.Wrap(domain.KindSessionCreateError, "persist auth session", err)
	}
	return session, nil
}

// validateRedirectURI checks the requested redirect URI against the
// client's registered, enabled URIs: literal match first, then regex
// (spec §3 RedirectUri invariant).
func (e *Engine) validateRedirectURI(ctx context.Context, clientID, requested string) error {
	registered, err := e.redirectURIs.ListEnabledByClientID(ctx, clientID)
	if err != nil {
		return domain.Wrap(domain.KindInternalServerError, "load redirect uris", err)
	}
	for _, r := range registered {
		if r.Value == requested {
			return nil
		}
	}
	for _, r := range registered {
		re, err := regexp.Compile(r.Value)
		if err != nil {
			continue
		}
		if re.MatchString(requested) {
			return nil
		}
	}
	return domain.New(domain.KindInvalidRedirectURI, "redirect uri not registered for client")
}

// UsingSessionCode loads a session by its opaque session code, rejecting
// expired sessions.
func (e *Engine) UsingSessionCode(ctx context.Context, sessionCode string) (domain.AuthSession, error) {
	session, err := e.sessions.GetBySessionCode(ctx, sessionCode)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.AuthSession{}, domain.New(domain.KindSessionNotFound, "session not found")
		}
		return domain.AuthSession{}, domain.Wrap(domain.KindInternalServerError, "load session", err)
	}
	if e.clock.Now().After(session.ExpiresAt) {
		return domain.AuthSession{}, domain.New(domain.KindSessionNotFound, "session expired")
	}
	return session, nil
}

// AuthenticateWithCredentials verifies username/password against the realm
// and advances the session (spec §4.E "authenticate", UserCredentials
// mode).
func (e *Engine) AuthenticateWithCredentials(ctx context.Context, sessionCode string, realm domain.Realm, username, password string) (Step, error) {
	session, err := e.UsingSessionCode(ctx, sessionCode)
	if err != nil {
		return Step{}, err
	}

	user, err := e.users.GetByUsername(ctx, realm.ID, username)
	if err != nil {
		if err == ports.ErrNotFound {
			return Step{}, domain.New(domain.KindUserNotFound, "user not found")
		}
		return Step{}, domain.Wrap(domain.KindInternalServerError, "load user", err)
	}
	if !user.Enabled {
		return Step{}, domain.New(domain.KindInvalidUser, "user disabled")
	}
	if err := e.verifier.VerifyPassword(ctx, user, password); err != nil {
		return Step{}, err
	}

	return e.determineNextStep(ctx, realm, session, user)
}

// AuthenticateWithExistingToken re-authenticates a session using an
// already-issued access token, used for silent re-auth / prompt=none style
// flows (spec §4.E "authenticate", ExistingToken mode).
func (e *Engine) AuthenticateWithExistingToken(ctx context.Context, sessionCode string, realm domain.Realm, accessToken string) (Step, error) {
	session, err := e.UsingSessionCode(ctx, sessionCode)
	if err != nil {
		return Step{}, err
	}

	// A resumed session presents either the short-lived temporary token
	// this engine minted on the prior RequiresActions/RequiresOtpChallenge
	// step, or (silent re-auth / prompt=none) a full bearer access token.
	claim, err := e.tokens.Verify(ctx, realm, accessToken, domain.TokenTypTemporary)
	if err != nil {
		claim, err = e.tokens.Verify(ctx, realm, accessToken, domain.TokenTypBearer)
		if err != nil {
			return Step{}, err
		}
	}
	if claim.IsServiceAccount() {
		return Step{}, domain.New(domain.KindInvalidUser, "service account cannot drive an interactive session")
	}

	user, err := e.users.GetByID(ctx, claim.Sub)
	if err != nil {
		if err == ports.ErrNotFound {
			return Step{}, domain.New(domain.KindUserNotFound, "user not found")
		}
		return Step{}, domain.Wrap(domain.KindInternalServerError, "load user", err)
	}

	return e.determineNextStep(ctx, realm, session, user)
}

func (e *Engine) determineNextStep(ctx context.Context, realm domain.Realm, session domain.AuthSession, user domain.User) (Step, error) {
	requiredActions := user.RequiredActions
	if len(requiredActions) == 0 && hasTemporaryPassword(ctx, e.verifier, user) {
		requiredActions = []domain.RequiredAction{domain.RequiredActionUpdatePassword}
	}
	if len(requiredActions) > 0 {
		token, err := e.mintTemporaryToken(ctx, realm, session, user)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepRequiresActions, RequiredActions: requiredActions, AuthSession: session, Token: token}, nil
	}
	if hasOTPCredential(ctx, e.verifier, user) {
		token, err := e.mintTemporaryToken(ctx, realm, session, user)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepRequiresOtpChallenge, AuthSession: session, Token: token}, nil
	}

	finalized, err := e.finalizeAuthentication(ctx, session, user.ID)
	if err != nil {
		return Step{}, err
	}
	return Step{Kind: StepSuccess, AuthSession: finalized}, nil
}

// mintTemporaryToken signs a short-lived TokenTypTemporary JWT for user,
// scoped to the pending session's client and scope, so the client can
// resume the flow via AuthenticateWithExistingToken once the pending
// required action or OTP challenge is cleared (spec §4.E "authenticate",
// ExistingToken mode).
func (e *Engine) mintTemporaryToken(ctx context.Context, realm domain.Realm, session domain.AuthSession, user domain.User) (string, error) {
	claim := e.tokens.IdentityClaims(realm, domain.Identity{User: &user}, session.Scope, session.ClientID)
	claim.Typ = domain.TokenTypTemporary
	claim.Exp = e.clock.Now().Add(e.sessionTTL).Unix()
	return e.tokens.Sign(ctx, realm, claim)
}

func hasOTPCredential(ctx context.Context, v *credential.Verifier, user domain.User) bool {
	return v.HasCredential(ctx, user, domain.CredentialTypeOTP)
}

func hasTemporaryPassword(ctx context.Context, v *credential.Verifier, user domain.User) bool {
	return v.HasTemporaryPassword(ctx, user)
}

// ResolveOtpChallenge validates a submitted TOTP code for the user
// identified by username and, on success, finalizes the session. The
// caller resupplies username because the session itself never stores a
// pending (unfinalized) user id — only a finalized session carries one
// (spec §3 AuthSession invariant; this is a supplement, see SPEC_FULL.md
// §4).
func (e *Engine) ResolveOtpChallenge(ctx context.Context, sessionCode, realmID, username, code string) (Step, error) {
	session, err := e.UsingSessionCode(ctx, sessionCode)
	if err != nil {
		return Step{}, err
	}
	user, err := e.users.GetByUsername(ctx, realmID, username)
	if err != nil {
		if err == ports.ErrNotFound {
			return Step{}, domain.New(domain.KindUserNotFound, "user not found")
		}
		return Step{}, domain.Wrap(domain.KindInternalServerError, "load user", err)
	}
	if err := e.verifier.VerifyOTP(ctx, user, code); err != nil {
		return Step{}, err
	}

	finalized, err := e.finalizeAuthentication(ctx, session, user.ID)
	if err != nil {
		return Step{}, err
	}
	return Step{Kind: StepSuccess, AuthSession: finalized}, nil
}

// FinalizeWithUserID finalizes a session directly for a user already
// authenticated by an external means (BrokerEngine, after a successful
// federated callback) — it skips determineNextStep's required-action/OTP
// checks, since those apply to the local credential path only.
func (e *Engine) FinalizeWithUserID(ctx context.Context, sessionID, userID string) (domain.AuthSession, error) {
	session, err := e.UsingSessionCode(ctx, sessionID)
	if err != nil {
		return domain.AuthSession{}, err
	}
	return e.finalizeAuthentication(ctx, session, userID)
}

// finalizeAuthentication mints a one-time authorization code and records it
// against the session alongside the now-known user id, atomically per the
// repository's UpdateCodeAndUserID contract (spec §4.E "finalize_authentication").
func (e *Engine) finalizeAuthentication(ctx context.Context, session domain.AuthSession, userID string) (domain.AuthSession, error) {
	code, err := generateCode()
	if err != nil {
		return domain.AuthSession{}, domain.Wrap(domain.KindInternalServerError, "generate authorization code", err)
	}
	updated, err := e.sessions.UpdateCodeAndUserID(ctx, session.ID, code, userID)
	if err != nil {
		return domain.AuthSession{}, domain.Wrap(domain.KindInternalServerError, "finalize session", err)
	}
	return updated, nil
}

// ConsumeCode loads a finalized session by its single-use authorization
// code (spec §4.E "using_session_code" / token endpoint authorization_code
// grant). Callers must delete the session after use.
func (e *Engine) ConsumeCode(ctx context.Context, code string) (domain.AuthSession, error) {
	session, err := e.sessions.GetByCode(ctx, code)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.AuthSession{}, domain.New(domain.KindMissingAuthorizationCode, "authorization code not found")
		}
		return domain.AuthSession{}, domain.Wrap(domain.KindInternalServerError, "load session by code", err)
	}
	if session.State_() != domain.AuthSessionFinalized {
		return domain.AuthSession{}, domain.New(domain.KindMissingAuthorizationCode, "session not finalized")
	}
	if e.clock.Now().After(session.ExpiresAt) {
		return domain.AuthSession{}, domain.New(domain.KindMissingAuthorizationCode, "authorization code expired")
	}
	return session, nil
}

// Delete removes a session, used once its authorization code has been
// exchanged (single-use) or the session is abandoned.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(ctx, sessionID); err != nil && err != ports.ErrNotFound {
		return domain.Wrap(domain.KindInternalServerError, "delete session", err)
	}
	return nil
}

func generateCode() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
