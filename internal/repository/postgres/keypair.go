package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// KeyPairView backs ports.KeyPairRepository.
//
// Create relies on a unique index on realm_id so that a concurrent
// first-use race (spec §5) is resolved by the database: the loser gets
// ports.ErrDuplicateKey back from mapErr and re-reads the winner's row.
type KeyPairView struct{ *Store }

func (v *KeyPairView) GetByRealmID(ctx context.Context, realmID string) (domain.JwtKeyPair, error) {
	row := v.pool.QueryRow(ctx,
		`SELECT id, realm_id, private_pem, public_pem FROM jwt_key_pairs WHERE realm_id = $1`, realmID)

	var k domain.JwtKeyPair
	if err := row.Scan(&k.ID, &k.RealmID, &k.PrivatePEM, &k.PublicPEM); err != nil {
		return domain.JwtKeyPair{}, mapErr(err)
	}
	return k, nil
}

func (v *KeyPairView) Create(ctx context.Context, k domain.JwtKeyPair) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO jwt_key_pairs (id, realm_id, private_pem, public_pem) VALUES ($1, $2, $3, $4)`,
		k.ID, k.RealmID, k.PrivatePEM, k.PublicPEM)
	return mapErr(err)
}
