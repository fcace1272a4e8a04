package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// RedirectURIView backs ports.RedirectURIRepository.
type RedirectURIView struct{ *Store }

func (v *RedirectURIView) ListEnabledByClientID(ctx context.Context, clientID string) ([]domain.RedirectURI, error) {
	rows, err := v.pool.Query(ctx,
		`SELECT id, client_id, value, enabled FROM redirect_uris WHERE client_id = $1 AND enabled = true`, clientID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.RedirectURI
	for rows.Next() {
		var u domain.RedirectURI
		if err := rows.Scan(&u.ID, &u.ClientID, &u.Value, &u.Enabled); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, u)
	}
	return out, mapErr(rows.Err())
}

func (v *RedirectURIView) Create(ctx context.Context, u domain.RedirectURI) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO redirect_uris (id, client_id, value, enabled) VALUES ($1, $2, $3, $4)`,
		u.ID, u.ClientID, u.Value, u.Enabled)
	return mapErr(err)
}
