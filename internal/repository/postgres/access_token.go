package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// AccessTokenView backs ports.AccessTokenRepository: the ledger behind
// opaque-token introspection and immediate revocation (spec §3).
type AccessTokenView struct{ *Store }

func (v *AccessTokenView) Create(ctx context.Context, e domain.AccessTokenEntry) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO access_tokens (id, token_hash, jti, user_id, realm_id, revoked, expires_at, claims_json, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.TokenHash, e.Jti, e.UserID, e.RealmID, e.Revoked, e.ExpiresAt, e.ClaimsJSON, e.CreatedAt)
	return mapErr(err)
}

func (v *AccessTokenView) GetByHash(ctx context.Context, tokenHash string) (domain.AccessTokenEntry, error) {
	row := v.pool.QueryRow(ctx,
		`SELECT id, token_hash, jti, user_id, realm_id, revoked, expires_at, claims_json, created_at
		 FROM access_tokens WHERE token_hash = $1`, tokenHash)

	var e domain.AccessTokenEntry
	err := row.Scan(&e.ID, &e.TokenHash, &e.Jti, &e.UserID, &e.RealmID, &e.Revoked, &e.ExpiresAt, &e.ClaimsJSON, &e.CreatedAt)
	if err != nil {
		return domain.AccessTokenEntry{}, mapErr(err)
	}
	return e, nil
}

func (v *AccessTokenView) Revoke(ctx context.Context, tokenHash string) error {
	_, err := v.pool.Exec(ctx, `UPDATE access_tokens SET revoked = true WHERE token_hash = $1`, tokenHash)
	return mapErr(err)
}
