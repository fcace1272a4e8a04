package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// IdentityProviderLinkView backs ports.IdentityProviderLinkRepository.
type IdentityProviderLinkView struct{ *Store }

func (v *IdentityProviderLinkView) GetByExternalID(ctx context.Context, idpID, externalUserID string) (domain.IdentityProviderLink, error) {
	row := v.pool.QueryRow(ctx,
		`SELECT id, user_id, identity_provider_id, external_user_id, external_username, token
		 FROM identity_provider_links WHERE identity_provider_id = $1 AND external_user_id = $2`, idpID, externalUserID)

	var l domain.IdentityProviderLink
	err := row.Scan(&l.ID, &l.UserID, &l.IdentityProviderID, &l.ExternalUserID, &l.ExternalUsername, &l.Token)
	if err != nil {
		return domain.IdentityProviderLink{}, mapErr(err)
	}
	return l, nil
}

func (v *IdentityProviderLinkView) Create(ctx context.Context, l domain.IdentityProviderLink) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO identity_provider_links (id, user_id, identity_provider_id, external_user_id, external_username, token)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.UserID, l.IdentityProviderID, l.ExternalUserID, l.ExternalUsername, l.Token)
	return mapErr(err)
}

func (v *IdentityProviderLinkView) UpdateToken(ctx context.Context, id, token string) error {
	_, err := v.pool.Exec(ctx, `UPDATE identity_provider_links SET token = $2 WHERE id = $1`, id, token)
	return mapErr(err)
}
