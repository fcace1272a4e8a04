package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// CredentialView backs ports.CredentialRepository.
type CredentialView struct{ *Store }

func (v *CredentialView) ListByUserID(ctx context.Context, userID string) ([]domain.Credential, error) {
	rows, err := v.pool.Query(ctx,
		`SELECT id, user_id, type, secret_data, salt, is_hash, iterations, algorithm, temporary
		 FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Credential
	for rows.Next() {
		var c domain.Credential
		if err := rows.Scan(&c.ID, &c.UserID, &c.Type, &c.SecretData, &c.Salt,
			&c.CredentialData.IsHash, &c.CredentialData.Iterations, &c.CredentialData.Algorithm, &c.Temporary); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (v *CredentialView) Create(ctx context.Context, c domain.Credential) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO credentials (id, user_id, type, secret_data, salt, is_hash, iterations, algorithm, temporary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.Type, c.SecretData, c.Salt, c.CredentialData.IsHash, c.CredentialData.Iterations,
		c.CredentialData.Algorithm, c.Temporary)
	return mapErr(err)
}
