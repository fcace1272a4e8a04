package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// RefreshTokenView backs ports.RefreshTokenRepository.
type RefreshTokenView struct{ *Store }

func (v *RefreshTokenView) Create(ctx context.Context, e domain.RefreshTokenEntry) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, jti, user_id, revoked, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Jti, e.UserID, e.Revoked, e.ExpiresAt, e.CreatedAt)
	return mapErr(err)
}

func (v *RefreshTokenView) GetByJti(ctx context.Context, jti string) (domain.RefreshTokenEntry, error) {
	row := v.pool.QueryRow(ctx,
		`SELECT id, jti, user_id, revoked, expires_at, created_at FROM refresh_tokens WHERE jti = $1`, jti)

	var e domain.RefreshTokenEntry
	if err := row.Scan(&e.ID, &e.Jti, &e.UserID, &e.Revoked, &e.ExpiresAt, &e.CreatedAt); err != nil {
		return domain.RefreshTokenEntry{}, mapErr(err)
	}
	return e, nil
}

func (v *RefreshTokenView) Delete(ctx context.Context, jti string) error {
	_, err := v.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE jti = $1`, jti)
	return mapErr(err)
}
