// Package postgres is the durable ports adapter: every repository backed
// by a row that must survive a restart (realms, clients, users,
// credentials, federation config, identity providers, signing keys, and
// the refresh/access token ledgers) lives here, on top of pgx/v5. Ephemeral,
// TTL-bearing state (AuthSession, BrokerAuthSession) is NOT here — see
// internal/repository/redis.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ferriskey/ferriskey/internal/ports"
)

// uniqueViolation is Postgres's SQLSTATE for a unique-index conflict.
const uniqueViolation = "23505"

// Store wraps the connection pool every *View type queries against.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds a Store over an already-connected pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Views bundles one adapter per ports interface, the postgres counterpart
// of memory.Views — cmd/server swaps between the two without touching any
// caller.
type Views struct {
	Realms               *RealmView
	Clients              *ClientView
	RedirectURIs         *RedirectURIView
	Users                *UserView
	Credentials          *CredentialView
	Federation           *FederationView
	IdentityProviders    *IdentityProviderView
	IdentityProviderLinks *IdentityProviderLinkView
	KeyPairs             *KeyPairView
	RefreshTokens        *RefreshTokenView
	AccessTokens         *AccessTokenView
	Roles                *RoleView
}

// NewViews builds every adapter over the same pool.
func NewViews(pool *pgxpool.Pool) *Views {
	s := NewStore(pool)
	return &Views{
		Realms:                &RealmView{s},
		Clients:               &ClientView{s},
		RedirectURIs:          &RedirectURIView{s},
		Users:                 &UserView{s},
		Credentials:           &CredentialView{s},
		Federation:            &FederationView{s},
		IdentityProviders:     &IdentityProviderView{s},
		IdentityProviderLinks: &IdentityProviderLinkView{s},
		KeyPairs:              &KeyPairView{s},
		RefreshTokens:         &RefreshTokenView{s},
		AccessTokens:          &AccessTokenView{s},
		Roles:                 &RoleView{s},
	}
}

// mapErr translates pgx/pgconn errors into the sentinel ports errors
// repositories are contracted to return.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ports.ErrDuplicateKey
	}
	return fmt.Errorf("postgres: %w", err)
}
