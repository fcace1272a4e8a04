// Package tokenservice implements spec §4.B TokenService: JWT signing and
// verification, refresh-token ledger checks, and opaque-token introspection.
package tokenservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// Default lifetimes; overridden per-realm in a later iteration via
// Realm-level policy, not yet modeled (spec.md is silent on per-realm TTL
// overrides).
const (
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// Service signs and verifies tokens for one authentication core instance. It
// is stateless beyond its dependencies, so a single Service serves every
// realm.
type Service struct {
	keys        *keystore.KeyStore
	clock       ports.Clock
	accessRepo  ports.AccessTokenRepository
	refreshRepo ports.RefreshTokenRepository
	issuerBaseURL string // e.g. "https://auth.example.com"

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// New builds a Service. issuerBaseURL is combined with the realm name to
// build the "iss" claim (spec §6 issuer format: "<base>/realms/<realm>").
func New(keys *keystore.KeyStore, clock ports.Clock, accessRepo ports.AccessTokenRepository, refreshRepo ports.RefreshTokenRepository, issuerBaseURL string) *Service {
	return &Service{
		keys:            keys,
		clock:           clock,
		accessRepo:      accessRepo,
		refreshRepo:     refreshRepo,
		issuerBaseURL:   issuerBaseURL,
		AccessTokenTTL:  DefaultAccessTokenTTL,
		RefreshTokenTTL: DefaultRefreshTokenTTL,
	}
}

func (s *Service) issuer(realmName string) string {
	return fmt.Sprintf("%s/realms/%s", s.issuerBaseURL, realmName)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Typ               string `json:"typ"`
	Azp               string `json:"azp,omitempty"`
	Scope             string `json:"scope,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	ClientID          string `json:"client_id,omitempty"`
}

// Sign produces a compact RS256 JWT for the given claim set, signed with the
// realm's current key (spec §4.A/§4.B).
func (s *Service) Sign(ctx context.Context, realm domain.Realm, claim domain.JwtClaim) (string, error) {
	keyPair, err := s.keys.GetOrGenerateKey(ctx, realm.ID)
	if err != nil {
		return "", err
	}
	privKey, err := keystore.PrivateKey(keyPair)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claim.Sub,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claim.Iat, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claim.Exp, 0)),
			ID:        claim.Jti,
			Issuer:    claim.Iss,
			Audience:  jwt.ClaimStrings{claim.Aud},
		},
		Typ:               string(claim.Typ),
		Azp:               claim.Azp,
		Scope:             claim.Scope,
		PreferredUsername: claim.PreferredUsername,
		Email:             claim.Email,
		ClientID:          claim.ClientID,
	})
	token.Header["kid"] = keyPair.ID

	signed, err := token.SignedString(privKey)
	if err != nil {
		return "", domain.Wrap(domain.KindTokenGenerationError, "sign token", err)
	}
	return signed, nil
}

// Verify parses and validates a JWT against the realm's public key, checking
// signature, expiry and the expected type. It does not consult the ledger —
// callers that need revocation awareness use Introspect or VerifyRefresh.
func (s *Service) Verify(ctx context.Context, realm domain.Realm, tokenString string, expectTyp domain.TokenTyp) (domain.JwtClaim, error) {
	keyPair, err := s.keys.GetOrGenerateKey(ctx, realm.ID)
	if err != nil {
		return domain.JwtClaim{}, err
	}
	pubKey, err := keystore.PublicKey(keyPair)
	if err != nil {
		return domain.JwtClaim{}, err
	}

	var claims jwtClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return pubKey, nil
	})
	if err != nil {
		if isExpiredErr(err) {
			return domain.JwtClaim{}, domain.Wrap(domain.KindExpiredToken, "token expired", err)
		}
		return domain.JwtClaim{}, domain.Wrap(domain.KindTokenValidationError, "parse token", err)
	}
	if !parsed.Valid {
		return domain.JwtClaim{}, domain.New(domain.KindInvalidToken, "token failed validation")
	}
	if domain.TokenTyp(claims.Typ) != expectTyp {
		return domain.JwtClaim{}, domain.New(domain.KindInvalidToken, "unexpected token type")
	}

	return toClaim(claims), nil
}

func isExpiredErr(err error) bool {
	return err != nil && (jwtErrIs(err, jwt.ErrTokenExpired))
}

func jwtErrIs(err error, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func toClaim(c jwtClaims) domain.JwtClaim {
	var exp, iat int64
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		iat = c.IssuedAt.Unix()
	}
	var aud string
	if len(c.Audience) > 0 {
		aud = c.Audience[0]
	}
	return domain.JwtClaim{
		Sub:               c.Subject,
		Iat:               iat,
		Jti:               c.ID,
		Iss:               c.Issuer,
		Typ:               domain.TokenTyp(c.Typ),
		Azp:               c.Azp,
		Aud:               aud,
		Scope:             c.Scope,
		Exp:               exp,
		PreferredUsername: c.PreferredUsername,
		Email:             c.Email,
		ClientID:          c.ClientID,
	}
}

// VerifyRefresh verifies signature, type and expiry, then consults the
// refresh-token ledger: an unknown or revoked jti is rejected even if the
// JWT itself still verifies (spec §3 RefreshTokenEntry, §4.D refresh_token
// grant's reuse-detection requirement).
func (s *Service) VerifyRefresh(ctx context.Context, realm domain.Realm, tokenString string) (domain.JwtClaim, error) {
	claim, err := s.Verify(ctx, realm, tokenString, domain.TokenTypRefresh)
	if err != nil {
		return domain.JwtClaim{}, err
	}
	entry, err := s.refreshRepo.GetByJti(ctx, claim.Jti)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.JwtClaim{}, domain.New(domain.KindInvalidRefreshToken, "refresh token unknown or already used")
		}
		return domain.JwtClaim{}, domain.Wrap(domain.KindInternalServerError, "load refresh token ledger entry", err)
	}
	if entry.Revoked {
		return domain.JwtClaim{}, domain.New(domain.KindInvalidRefreshToken, "refresh token revoked")
	}
	if s.clock.Now().After(entry.ExpiresAt) {
		return domain.JwtClaim{}, domain.New(domain.KindExpiredToken, "refresh token expired")
	}
	return claim, nil
}

// RevokeRefresh deletes a refresh token's ledger row, making it permanently
// unusable (rotation and logout both call this).
func (s *Service) RevokeRefresh(ctx context.Context, jti string) error {
	if err := s.refreshRepo.Delete(ctx, jti); err != nil && err != ports.ErrNotFound {
		return domain.Wrap(domain.KindInternalServerError, "revoke refresh token", err)
	}
	return nil
}

// HashToken returns the SHA-256 hex digest used as the access-token ledger
// key, so the raw bearer token is never stored at rest (spec §3
// AccessTokenEntry).
func HashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// Introspect implements RFC 7662-style introspection (spec §4.B, §6).
// tokenTypeHint == "refresh_token" forces refresh-ledger verification
// instead of the default access-token path. Otherwise it first attempts an
// opaque lookup by SHA-256 hash against the access-token ledger — so a
// ledger-revoked token is reported inactive immediately even though its
// signature still verifies — and falls back to plain JWT signature
// validation on a ledger miss.
func (s *Service) Introspect(ctx context.Context, realm domain.Realm, tokenString, tokenTypeHint string) (active bool, claim domain.JwtClaim, err error) {
	if tokenTypeHint == "refresh_token" {
		refreshClaim, err := s.VerifyRefresh(ctx, realm, tokenString)
		if err != nil {
			return false, domain.JwtClaim{}, nil
		}
		return true, refreshClaim, nil
	}

	entry, err := s.accessRepo.GetByHash(ctx, HashToken(tokenString))
	if err == nil {
		if entry.Revoked || s.clock.Now().After(entry.ExpiresAt) {
			return false, domain.JwtClaim{}, nil
		}
		var c domain.JwtClaim
		if err := json.Unmarshal([]byte(entry.ClaimsJSON), &c); err != nil {
			return false, domain.JwtClaim{}, domain.Wrap(domain.KindInternalServerError, "unmarshal ledger claims", err)
		}
		return true, c, nil
	}
	if err != ports.ErrNotFound {
		return false, domain.JwtClaim{}, domain.Wrap(domain.KindInternalServerError, "load access token ledger entry", err)
	}

	verifiedClaim, verr := s.Verify(ctx, realm, tokenString, domain.TokenTypBearer)
	if verr != nil {
		return false, domain.JwtClaim{}, nil
	}
	return true, verifiedClaim, nil
}

// IdentityClaims builds the base claim set for the given identity, before
// scope or typ is applied. Scope must already be filtered by ScopeManager.
func (s *Service) IdentityClaims(realm domain.Realm, identity domain.Identity, scope, azp string) domain.JwtClaim {
	now := s.clock.Now()
	claim := domain.JwtClaim{
		Jti:   uuid.NewString(),
		Iat:   now.Unix(),
		Iss:   s.issuer(realm.Name),
		Azp:   azp,
		Aud:   azp,
		Scope: scope,
	}
	if identity.IsClient() {
		claim.Sub = identity.Client.ID
		claim.ClientID = identity.Client.ID
	} else {
		claim.Sub = identity.User.ID
		claim.PreferredUsername = identity.User.Username
		claim.Email = identity.User.Email
	}
	return claim
}

// CreateTokenSet mints an access token and a refresh token for the given
// identity and scope, persisting both ledger rows before returning (Open
// Question resolution: refresh-token persistence happens before the token
// reaches the caller, per SPEC_FULL.md §5.1). An ID token is included iff
// includeIDToken is true and the identity is a user, not a client; scope
// itself is not inspected here (the grant dispatcher sets includeIDToken
// when the scope contains "openid").
func (s *Service) CreateTokenSet(ctx context.Context, realm domain.Realm, identity domain.Identity, scope, azp string, includeIDToken bool, nonce *string) (domain.TokenSet, error) {
	now := s.clock.Now()

	accessClaim := s.IdentityClaims(realm, identity, scope, azp)
	accessClaim.Typ = domain.TokenTypBearer
	accessClaim.Exp = now.Add(s.AccessTokenTTL).Unix()

	accessJWT, err := s.Sign(ctx, realm, accessClaim)
	if err != nil {
		return domain.TokenSet{}, err
	}

	claimsJSON, err := json.Marshal(accessClaim)
	if err != nil {
		return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "marshal access claims", err)
	}
	var userID, realmIDForLedger string
	if !identity.IsClient() {
		userID = identity.User.ID
	}
	realmIDForLedger = realm.ID
	if err := s.accessRepo.Create(ctx, domain.AccessTokenEntry{
		ID:         uuid.NewString(),
		TokenHash:  HashToken(accessJWT),
		Jti:        accessClaim.Jti,
		UserID:     userID,
		RealmID:    realmIDForLedger,
		ExpiresAt:  time.Unix(accessClaim.Exp, 0),
		ClaimsJSON: string(claimsJSON),
		CreatedAt:  now,
	}); err != nil {
		return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "persist access token", err)
	}

	refreshClaim := s.IdentityClaims(realm, identity, scope, azp)
	refreshClaim.Typ = domain.TokenTypRefresh
	refreshClaim.Exp = now.Add(s.RefreshTokenTTL).Unix()

	refreshJWT, err := s.Sign(ctx, realm, refreshClaim)
	if err != nil {
		return domain.TokenSet{}, err
	}
	if err := s.refreshRepo.Create(ctx, domain.RefreshTokenEntry{
		ID:        uuid.NewString(),
		Jti:       refreshClaim.Jti,
		UserID:    userID,
		ExpiresAt: time.Unix(refreshClaim.Exp, 0),
		CreatedAt: now,
	}); err != nil {
		return domain.TokenSet{}, domain.Wrap(domain.KindInternalServerError, "persist refresh token", err)
	}

	var idToken string
	if includeIDToken && !identity.IsClient() {
		idClaim := accessClaim
		idClaim.Typ = "ID"
		idToken, err = s.signIDToken(ctx, realm, identity, scope, azp, now, nonce)
		if err != nil {
			return domain.TokenSet{}, err
		}
	}

	expiresIn := int64(s.AccessTokenTTL.Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	return domain.TokenSet{
		AccessToken:  accessJWT,
		RefreshToken: refreshJWT,
		IDToken:      idToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		Scope:        scope,
	}, nil
}

// idTokenClaims mirrors jwtClaims but adds "nonce", present only on ID
// tokens (spec §4.B, §6).
type idTokenClaims struct {
	jwtClaims
	Nonce string `json:"nonce,omitempty"`
}

func (s *Service) signIDToken(ctx context.Context, realm domain.Realm, identity domain.Identity, scope, azp string, now time.Time, nonce *string) (string, error) {
	keyPair, err := s.keys.GetOrGenerateKey(ctx, realm.ID)
	if err != nil {
		return "", err
	}
	privKey, err := keystore.PrivateKey(keyPair)
	if err != nil {
		return "", err
	}

	claim := s.IdentityClaims(realm, identity, scope, azp)
	claim.Exp = now.Add(s.AccessTokenTTL).Unix()

	claims := idTokenClaims{
		jwtClaims: jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   claim.Sub,
				IssuedAt:  jwt.NewNumericDate(time.Unix(claim.Iat, 0)),
				ExpiresAt: jwt.NewNumericDate(time.Unix(claim.Exp, 0)),
				ID:        claim.Jti,
				Issuer:    claim.Iss,
				Audience:  jwt.ClaimStrings{azp},
			},
			Typ:               "ID",
			Azp:               azp,
			PreferredUsername: claim.PreferredUsername,
			Email:             claim.Email,
		},
	}
	if nonce != nil {
		claims.Nonce = *nonce
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyPair.ID

	signed, err := token.SignedString(privKey)
	if err != nil {
		return "", domain.Wrap(domain.KindTokenGenerationError, "sign id token", err)
	}
	return signed, nil
}
