// Package gate implements the AuthorizationGate spec.md names as a cross-
// cutting component: given a bearer token and an optional required scope,
// resolve the caller's Identity or reject the request.
package gate

import (
	"context"
	"strings"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/scope"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

// Gate authorizes incoming requests against a bearer access token.
type Gate struct {
	tokens *tokenservice.Service
	users  ports.UserRepository
	clients ports.ClientRepository
}

// New builds a Gate.
func New(tokens *tokenservice.Service, users ports.UserRepository, clients ports.ClientRepository) *Gate {
	return &Gate{tokens: tokens, users: users, clients: clients}
}

// AuthorizeRequest verifies bearerToken against realm and, if requiredScope
// is non-empty, checks the token's scope grants it. It resolves the full
// Identity (User or Client, never a bare id) so callers never need a
// second lookup (spec §9 "Design Notes").
func (g *Gate) AuthorizeRequest(ctx context.Context, realm domain.Realm, bearerToken, requiredScope string) (domain.Identity, domain.JwtClaim, error) {
	token := strings.TrimPrefix(bearerToken, "Bearer ")
	if token == "" {
		return domain.Identity{}, domain.JwtClaim{}, domain.New(domain.KindInvalidToken, "missing bearer token")
	}

	claim, err := g.tokens.Verify(ctx, realm, token, domain.TokenTypBearer)
	if err != nil {
		return domain.Identity{}, domain.JwtClaim{}, err
	}

	if requiredScope != "" && !scope.Contains(claim.Scope, requiredScope) {
		return domain.Identity{}, domain.JwtClaim{}, domain.New(domain.KindForbidden, "token missing required scope")
	}

	if claim.IsServiceAccount() {
		client, err := g.clients.GetByID(ctx, claim.ClientID)
		if err != nil {
			return domain.Identity{}, domain.JwtClaim{}, domain.Wrap(domain.KindInternalServerError, "load client for token", err)
		}
		return domain.Identity{Client: &client}, claim, nil
	}

	user, err := g.users.GetByID(ctx, claim.Sub)
	if err != nil {
		if err == ports.ErrNotFound {
			return domain.Identity{}, domain.JwtClaim{}, domain.New(domain.KindUserNotFound, "token subject not found")
		}
		return domain.Identity{}, domain.JwtClaim{}, domain.Wrap(domain.KindInternalServerError, "load user for token", err)
	}
	if !user.Enabled {
		return domain.Identity{}, domain.JwtClaim{}, domain.New(domain.KindForbidden, "user disabled")
	}
	return domain.Identity{User: &user}, claim, nil
}
