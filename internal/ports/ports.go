// Package ports names every capability the authentication core depends on
// without committing to an implementation (spec §9 "Design Notes" —
// "Repository pluggability"). Concrete adapters live under
// internal/repository/{memory,postgres,redis}; wiring them is the host's
// concern, exercised here only by cmd/server.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// ErrNotFound is returned by any repository lookup that found nothing. It
// is deliberately generic — components translate it into the specific
// domain.Error kind appropriate to the call site (e.g. UserNotFound vs
// SessionNotFound), since the same sentinel means different things to
// different callers.
var ErrNotFound = errors.New("ports: not found")

// ErrDuplicateKey is returned by a Create call that raced another writer
// for the same unique key. KeyStore relies on this to implement the
// concurrent first-use race described in spec §5.
var ErrDuplicateKey = errors.New("ports: duplicate key")

// Clock is injected everywhere TTLs and expirations are computed, so tests
// can control time without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production Clock, backed by time.Now.
var SystemClock Clock = systemClock{}

// RealmRepository resolves and persists Realm records.
type RealmRepository interface {
	GetByID(ctx context.Context, id string) (domain.Realm, error)
	GetByName(ctx context.Context, name string) (domain.Realm, error)
	Create(ctx context.Context, realm domain.Realm) error
}

// ClientRepository resolves and persists Client records.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (domain.Client, error)
	GetByClientID(ctx context.Context, realmID, clientID string) (domain.Client, error)
	Create(ctx context.Context, client domain.Client) error
}

// RedirectURIRepository lists the redirect URIs registered for a client.
type RedirectURIRepository interface {
	ListEnabledByClientID(ctx context.Context, clientID string) ([]domain.RedirectURI, error)
	Create(ctx context.Context, uri domain.RedirectURI) error
}

// UserRepository resolves and persists User records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, realmID, username string) (domain.User, error)
	GetByEmail(ctx context.Context, realmID, email string) (domain.User, error)
	GetServiceAccountUser(ctx context.Context, clientID string) (domain.User, error)
	Create(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
}

// CredentialRepository resolves and persists per-user credential records.
type CredentialRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]domain.Credential, error)
	Create(ctx context.Context, cred domain.Credential) error
}

// FederationMapping links a local user to a federated (LDAP) provider.
type FederationMapping struct {
	UserID     string
	ProviderID string
	Enabled    bool
}

// LDAPProviderConfig is the parsed form of an LDAP provider's config column
// (spec §6).
type LDAPProviderConfig struct {
	ServerURL               string
	Port                    int
	UseTLS                  bool
	UseStartTLS             bool
	ConnectionTimeoutSeconds int
	BindDN                  string
	BindPasswordEncrypted   string
	BaseDN                  string
	UserSearchFilter        string // may contain "{0}" or "{username}"
	AttrUsername            string
	AttrEmail               string
	AttrFirstName           string
	AttrLastName            string
}

// FederationRepository resolves federation mappings and LDAP provider
// configuration.
type FederationRepository interface {
	GetMappingByUserID(ctx context.Context, userID string) (FederationMapping, error)
	GetLDAPConfig(ctx context.Context, providerID string) (LDAPProviderConfig, error)
}

// AuthSessionRepository persists the authorization-code flow state machine
// (spec §4.E).
type AuthSessionRepository interface {
	Create(ctx context.Context, session domain.AuthSession) error
	GetBySessionCode(ctx context.Context, sessionCode string) (domain.AuthSession, error)
	GetByCode(ctx context.Context, code string) (domain.AuthSession, error)
	UpdateCodeAndUserID(ctx context.Context, sessionCode, code, userID string) (domain.AuthSession, error)
	Delete(ctx context.Context, sessionCode string) error
}

// BrokerAuthSessionRepository persists external-IdP round-trip state (spec
// §4.F). Sessions are single-use: Delete is always called on callback.
type BrokerAuthSessionRepository interface {
	Create(ctx context.Context, session domain.BrokerAuthSession) error
	GetByBrokerState(ctx context.Context, brokerState string) (domain.BrokerAuthSession, error)
	Delete(ctx context.Context, id string) error
}

// IdentityProviderRepository resolves configured external IdPs.
type IdentityProviderRepository interface {
	GetByAlias(ctx context.Context, realmID, alias string) (domain.IdentityProvider, error)
	GetByID(ctx context.Context, id string) (domain.IdentityProvider, error)
}

// IdentityProviderLinkRepository resolves and persists links between
// external identities and local users.
type IdentityProviderLinkRepository interface {
	GetByExternalID(ctx context.Context, idpID, externalUserID string) (domain.IdentityProviderLink, error)
	Create(ctx context.Context, link domain.IdentityProviderLink) error
	UpdateToken(ctx context.Context, id, token string) error
}

// KeyPairRepository resolves and persists per-realm signing keys.
type KeyPairRepository interface {
	GetByRealmID(ctx context.Context, realmID string) (domain.JwtKeyPair, error)
	// Create must return ErrDuplicateKey if realmID already has a row,
	// so KeyStore can re-read the winner of a concurrent first-use race
	// (spec §5).
	Create(ctx context.Context, keyPair domain.JwtKeyPair) error
}

// RefreshTokenRepository backs the refresh-token ledger (spec §3).
type RefreshTokenRepository interface {
	Create(ctx context.Context, entry domain.RefreshTokenEntry) error
	GetByJti(ctx context.Context, jti string) (domain.RefreshTokenEntry, error)
	Delete(ctx context.Context, jti string) error
}

// AccessTokenRepository backs the access-token ledger (spec §3).
type AccessTokenRepository interface {
	Create(ctx context.Context, entry domain.AccessTokenEntry) error
	GetByHash(ctx context.Context, tokenHash string) (domain.AccessTokenEntry, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// RoleRepository resolves and persists realm-level roles. Used by Bootstrap
// to seed the admin role, and by the introspection endpoint to enforce
// required_role='introspect' on the calling client's service-account user
// (spec §4.B); the broader role/permission surface is admin CRUD and out of
// scope per spec §1.
type RoleRepository interface {
	GetByName(ctx context.Context, realmID, name string) (Role, error)
	Create(ctx context.Context, role Role) error
	AssignToUser(ctx context.Context, roleID, userID string) error
	UserHasRole(ctx context.Context, realmID, userID, roleName string) (bool, error)
}

// Role is the minimal role record Bootstrap needs. Permissions is a small
// fixed vocabulary (e.g. "ManageRealm") rather than a full RBAC surface,
// enough to gate the bootstrap admin role without modeling arbitrary
// permission CRUD (out of scope per spec §1).
type Role struct {
	ID          string
	RealmID     string
	Name        string
	Permissions []string
}
