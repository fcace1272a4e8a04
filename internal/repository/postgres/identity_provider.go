package postgres

import (
	"context"
	"encoding/json"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// IdentityProviderView backs ports.IdentityProviderRepository.
type IdentityProviderView struct{ *Store }

const idpColumns = `id, realm_id, alias, provider_id, enabled, display_name, store_token, trust_email, link_only, config`

func (v *IdentityProviderView) GetByAlias(ctx context.Context, realmID, alias string) (domain.IdentityProvider, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+idpColumns+` FROM identity_providers WHERE realm_id = $1 AND alias = $2`, realmID, alias)
	return scanIdentityProvider(row)
}

func (v *IdentityProviderView) GetByID(ctx context.Context, id string) (domain.IdentityProvider, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+idpColumns+` FROM identity_providers WHERE id = $1`, id)
	return scanIdentityProvider(row)
}

func scanIdentityProvider(r row) (domain.IdentityProvider, error) {
	var idp domain.IdentityProvider
	var rawConfig []byte
	err := r.Scan(&idp.ID, &idp.RealmID, &idp.Alias, &idp.ProviderID, &idp.Enabled, &idp.DisplayName,
		&idp.StoreToken, &idp.TrustEmail, &idp.LinkOnly, &rawConfig)
	if err != nil {
		return domain.IdentityProvider{}, mapErr(err)
	}
	if err := json.Unmarshal(rawConfig, &idp.Config); err != nil {
		return domain.IdentityProvider{}, mapErr(err)
	}
	return idp, nil
}
