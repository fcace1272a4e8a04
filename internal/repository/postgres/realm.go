package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// RealmView backs ports.RealmRepository.
type RealmView struct{ *Store }

func (v *RealmView) GetByID(ctx context.Context, id string) (domain.Realm, error) {
	row := v.pool.QueryRow(ctx, `SELECT id, name, signing_algorithm, created_at FROM realms WHERE id = $1`, id)
	return scanRealm(row)
}

func (v *RealmView) GetByName(ctx context.Context, name string) (domain.Realm, error) {
	row := v.pool.QueryRow(ctx, `SELECT id, name, signing_algorithm, created_at FROM realms WHERE name = $1`, name)
	return scanRealm(row)
}

func (v *RealmView) Create(ctx context.Context, realm domain.Realm) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO realms (id, name, signing_algorithm, created_at) VALUES ($1, $2, $3, $4)`,
		realm.ID, realm.Name, realm.SigningAlgorithm, realm.CreatedAt)
	return mapErr(err)
}

type row interface {
	Scan(dest ...any) error
}

func scanRealm(r row) (domain.Realm, error) {
	var realm domain.Realm
	err := r.Scan(&realm.ID, &realm.Name, &realm.SigningAlgorithm, &realm.CreatedAt)
	if err != nil {
		return domain.Realm{}, mapErr(err)
	}
	return realm, nil
}
