package domain

import "time"

// Realm is the tenant boundary: a scope of users, clients, keys and policy.
type Realm struct {
	ID              string
	Name            string
	SigningAlgorithm string // default "RS256"
	CreatedAt       time.Time
}

// ClientType distinguishes how a client authenticates.
type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential"
	ClientTypePublic       ClientType = "public"
)

// Client is an OAuth client record, scoped to a realm.
type Client struct {
	ID                         string
	RealmID                    string
	ClientID                   string // unique within realm
	Secret                     string // empty when PublicClient
	Enabled                    bool
	PublicClient               bool
	ServiceAccountEnabled      bool
	DirectAccessGrantsEnabled  bool
	ClientType                 ClientType
}

// RequiresSecret reports whether this client must present a valid secret to
// use the password grant (spec §3 Client invariant).
func (c Client) RequiresSecret() bool {
	if c.PublicClient {
		return false
	}
	return !c.DirectAccessGrantsEnabled
}

// RedirectURI is either a literal value or a regular expression; spec §3
// says validation tries literal equality first, then regex.
type RedirectURI struct {
	ID       string
	ClientID string
	Value    string
	Enabled  bool
}

// RequiredAction is an action a user must complete before the interactive
// flow can finalize.
type RequiredAction string

const (
	RequiredActionUpdatePassword RequiredAction = "UpdatePassword"
	RequiredActionConfigureOtp   RequiredAction = "ConfigureOtp"
	RequiredActionVerifyEmail    RequiredAction = "VerifyEmail"
)

// User is a realm-scoped identity, optionally a service account.
type User struct {
	ID              string
	RealmID         string
	Username        string
	Email           string
	EmailVerified   bool
	Enabled         bool
	Firstname       string
	Lastname        string
	ClientID        *string // set iff this user is a service account for that client
	Roles           []string
	RequiredActions []RequiredAction
}

// IsServiceAccount reports whether this user fronts a client's service
// account rather than a human.
func (u User) IsServiceAccount() bool { return u.ClientID != nil }

// CredentialType enumerates the kinds of per-user secret record.
type CredentialType string

const (
	CredentialTypePassword   CredentialType = "password"
	CredentialTypeOTP        CredentialType = "otp"
	CredentialTypeFederated CredentialType = "federated"
)

// CredentialData carries the algorithm-specific hash parameters. Only the
// Hash variant is valid for password credentials; anything else is
// malformed (spec §3 Credential invariant) and must be treated as
// InternalError by the caller.
type CredentialData struct {
	IsHash     bool
	Iterations int
	Algorithm  string
}

// Credential is a per-user secret record.
type Credential struct {
	ID             string
	UserID         string
	Type           CredentialType
	SecretData     string // hash
	Salt           string
	CredentialData CredentialData
	Temporary      bool
}

// AuthSessionState is the logical state of an authorization-code flow, per
// spec §4.E's state machine. It is not persisted as a column; it is derived
// from the session's fields.
type AuthSessionState string

const (
	AuthSessionInitiated  AuthSessionState = "initiated"
	AuthSessionFinalized  AuthSessionState = "finalized"
)

// AuthSession is the server-side state of one interactive authorization-code
// flow (spec §3).
type AuthSession struct {
	ID           string
	RealmID      string
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	State        *string
	Nonce        *string
	UserID       *string
	Code         *string
	Authenticated bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// State_ derives the AuthSessionState from the session's fields.
func (s AuthSession) State_() AuthSessionState {
	if s.Authenticated && s.Code != nil && s.UserID != nil {
		return AuthSessionFinalized
	}
	return AuthSessionInitiated
}

// BrokerAuthSession tracks one external-IdP round trip nested inside an
// AuthSession (spec §3). Single-use: destroyed on callback regardless of
// outcome.
type BrokerAuthSession struct {
	ID                 string
	RealmID            string
	IdentityProviderID string
	ClientID           string
	RedirectURI        string
	ResponseType       string
	Scope              string
	State              *string
	Nonce              *string
	BrokerState        string // CSRF token
	CodeVerifier       *string // PKCE; never echoed to the user agent
	AuthSessionID      *string
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// Expired reports whether the session has passed its TTL relative to now.
func (b BrokerAuthSession) Expired(now time.Time) bool { return now.After(b.ExpiresAt) }

// IdentityProvider is an external IdP configuration, scoped to a realm.
type IdentityProvider struct {
	ID          string
	RealmID     string
	Alias       string // unique per realm
	ProviderID  string
	Enabled     bool
	DisplayName string
	StoreToken  bool
	TrustEmail  bool
	LinkOnly    bool
	Config      OAuthProviderConfig
}

// OAuthProviderConfig is the parsed form of the identity_providers.config
// JSON column (spec §6).
type OAuthProviderConfig struct {
	ClientID        string
	ClientSecret    string
	AuthorizationURL string
	TokenURL        string
	UserinfoURL     string
	JWKSURL         string
	Scopes          string // normalized to a single space-separated string
	UsePKCE         bool
	Issuer          string
}

// IdentityProviderLink ties an external identity to a local user. Uniqueness
// is on (IdentityProviderID, ExternalUserID).
type IdentityProviderLink struct {
	ID                 string
	UserID             string
	IdentityProviderID string
	ExternalUserID     string
	ExternalUsername   string
	Token              string
}

// JwtKeyPair is a realm's asymmetric signing key. Lazily generated, never
// rotated by this core (spec §4.A).
type JwtKeyPair struct {
	ID         string // kid
	RealmID    string
	PrivatePEM string
	PublicPEM  string
}

// JwkKey is the JWK export of a public key (spec §4.A).
type JwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
	X5c []string `json:"x5c,omitempty"`
	X5t string   `json:"x5t,omitempty"`
}

// JwkSet is the array-under-"keys" JWKS document spec §6 names.
type JwkSet struct {
	Keys []JwkKey `json:"keys"`
}

// TokenTyp enumerates the three JWT types this core issues.
type TokenTyp string

const (
	TokenTypBearer    TokenTyp = "Bearer"
	TokenTypRefresh   TokenTyp = "Refresh"
	TokenTypTemporary TokenTyp = "Temporary"
)

// JwtClaim is the claim set carried by every issued JWT (spec §3).
type JwtClaim struct {
	Sub               string
	Iat               int64
	Jti               string
	Iss               string
	Typ               TokenTyp
	Azp               string
	Aud               string
	Scope             string
	Exp               int64
	PreferredUsername string
	Email             string
	ClientID          string // set => service-account token
}

// IsServiceAccount reports whether these claims identify a client, not a
// human user (AuthorizationGate step 4, spec §4 "AuthorizationGate").
func (c JwtClaim) IsServiceAccount() bool { return c.ClientID != "" }

// RefreshTokenEntry is a ledger row backing refresh-token validity (spec
// §3).
type RefreshTokenEntry struct {
	ID        string
	Jti       string
	UserID    string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AccessTokenEntry is a ledger row enabling opaque-token introspection and
// immediate revocation (spec §3). Claims are kept denormalized per the
// Open-Question resolution in SPEC_FULL.md §5.
type AccessTokenEntry struct {
	ID         string
	TokenHash  string // SHA-256 hex
	Jti        string
	UserID     string
	RealmID    string
	Revoked    bool
	ExpiresAt  time.Time
	ClaimsJSON string
	CreatedAt  time.Time
}

// TokenSet is the result of a successful grant: a bearer JWT, its refresh
// JWT, and — iff scope contains "openid" — an ID token (spec §4.B).
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string // "Bearer"
	ExpiresIn    int64
	Scope        string
}

// Identity is the sum type consumed by authorization policies (spec §9
// "Design Notes"): either a full User or a full Client, never just an id.
type Identity struct {
	User   *User
	Client *Client
}

// IsClient reports whether this Identity carries a service-account client.
func (i Identity) IsClient() bool { return i.Client != nil }
