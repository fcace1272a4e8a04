package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// ClientView backs ports.ClientRepository.
type ClientView struct{ *Store }

const clientColumns = `id, realm_id, client_id, secret, enabled, public_client, service_account_enabled, direct_access_grants_enabled, client_type`

func (v *ClientView) GetByID(ctx context.Context, id string) (domain.Client, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

func (v *ClientView) GetByClientID(ctx context.Context, realmID, clientID string) (domain.Client, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE realm_id = $1 AND client_id = $2`, realmID, clientID)
	return scanClient(row)
}

func (v *ClientView) Create(ctx context.Context, c domain.Client) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.RealmID, c.ClientID, c.Secret, c.Enabled, c.PublicClient, c.ServiceAccountEnabled, c.DirectAccessGrantsEnabled, c.ClientType)
	return mapErr(err)
}

func scanClient(r row) (domain.Client, error) {
	var c domain.Client
	err := r.Scan(&c.ID, &c.RealmID, &c.ClientID, &c.Secret, &c.Enabled, &c.PublicClient, &c.ServiceAccountEnabled, &c.DirectAccessGrantsEnabled, &c.ClientType)
	if err != nil {
		return domain.Client{}, mapErr(err)
	}
	return c, nil
}
