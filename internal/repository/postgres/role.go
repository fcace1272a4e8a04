package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/ports"
)

// RoleView backs ports.RoleRepository — used by Bootstrap and by the
// introspection endpoint's role check.
type RoleView struct{ *Store }

func (v *RoleView) GetByName(ctx context.Context, realmID, name string) (ports.Role, error) {
	row := v.pool.QueryRow(ctx, `SELECT id, realm_id, name, permissions FROM roles WHERE realm_id = $1 AND name = $2`, realmID, name)
	var r ports.Role
	if err := row.Scan(&r.ID, &r.RealmID, &r.Name, &r.Permissions); err != nil {
		return ports.Role{}, mapErr(err)
	}
	return r, nil
}

func (v *RoleView) Create(ctx context.Context, r ports.Role) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO roles (id, realm_id, name, permissions) VALUES ($1, $2, $3, $4)`,
		r.ID, r.RealmID, r.Name, r.Permissions)
	return mapErr(err)
}

func (v *RoleView) AssignToUser(ctx context.Context, roleID, userID string) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO role_assignments (role_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, userID)
	return mapErr(err)
}

// UserHasRole backs required_role checks such as introspection's
// required_role='introspect' (spec §4.B).
func (v *RoleView) UserHasRole(ctx context.Context, realmID, userID, roleName string) (bool, error) {
	row := v.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM role_assignments ra
			JOIN roles r ON r.id = ra.role_id
			WHERE r.realm_id = $1 AND r.name = $2 AND ra.user_id = $3
		)`, realmID, roleName, userID)
	var has bool
	if err := row.Scan(&has); err != nil {
		return false, mapErr(err)
	}
	return has, nil
}
