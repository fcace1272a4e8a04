// Package middleware holds the chi middleware stack for the OAuth/OIDC
// HTTP surface: request id/logging, panic recovery, rate limiting, CORS,
// realm resolution and bearer-token authorization.
package middleware

import (
	"context"
	"fmt"

	"github.com/ferriskey/ferriskey/internal/domain"
)

type contextKey string

const (
	RealmKey    contextKey = "realm"
	IdentityKey contextKey = "identity"
	ClaimKey    contextKey = "claim"
)

// GetRealm safely extracts the resolved Realm from context.
func GetRealm(ctx context.Context) (domain.Realm, error) {
	val := ctx.Value(RealmKey)
	if val == nil {
		return domain.Realm{}, fmt.Errorf("realm not found in context")
	}
	realm, ok := val.(domain.Realm)
	if !ok {
		return domain.Realm{}, fmt.Errorf("realm has wrong type: %T", val)
	}
	return realm, nil
}

// MustGetRealm extracts the Realm and panics if not found. Only safe in
// handlers mounted behind RealmContext.
func MustGetRealm(ctx context.Context) domain.Realm {
	realm, err := GetRealm(ctx)
	if err != nil {
		panic(fmt.Sprintf("CRITICAL: %v", err))
	}
	return realm
}

// GetIdentity safely extracts the resolved Identity from context.
func GetIdentity(ctx context.Context) (domain.Identity, error) {
	val := ctx.Value(IdentityKey)
	if val == nil {
		return domain.Identity{}, fmt.Errorf("identity not found in context")
	}
	identity, ok := val.(domain.Identity)
	if !ok {
		return domain.Identity{}, fmt.Errorf("identity has wrong type: %T", val)
	}
	return identity, nil
}

// GetClaim safely extracts the verified JwtClaim from context.
func GetClaim(ctx context.Context) (domain.JwtClaim, error) {
	val := ctx.Value(ClaimKey)
	if val == nil {
		return domain.JwtClaim{}, fmt.Errorf("claim not found in context")
	}
	claim, ok := val.(domain.JwtClaim)
	if !ok {
		return domain.JwtClaim{}, fmt.Errorf("claim has wrong type: %T", val)
	}
	return claim, nil
}
