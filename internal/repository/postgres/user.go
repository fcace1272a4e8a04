package postgres

import (
	"context"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// UserView backs ports.UserRepository.
type UserView struct{ *Store }

const userColumns = `id, realm_id, username, email, email_verified, enabled, firstname, lastname, client_id, roles, required_actions`

func (v *UserView) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (v *UserView) GetByUsername(ctx context.Context, realmID, username string) (domain.User, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE realm_id = $1 AND username = $2`, realmID, username)
	return scanUser(row)
}

func (v *UserView) GetByEmail(ctx context.Context, realmID, email string) (domain.User, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE realm_id = $1 AND email = $2`, realmID, email)
	return scanUser(row)
}

func (v *UserView) GetServiceAccountUser(ctx context.Context, clientID string) (domain.User, error) {
	row := v.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE client_id = $1`, clientID)
	return scanUser(row)
}

func (v *UserView) Create(ctx context.Context, u domain.User) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.RealmID, u.Username, u.Email, u.EmailVerified, u.Enabled, u.Firstname, u.Lastname, u.ClientID,
		u.Roles, requiredActionsToStrings(u.RequiredActions))
	return mapErr(err)
}

func (v *UserView) Update(ctx context.Context, u domain.User) error {
	_, err := v.pool.Exec(ctx,
		`UPDATE users SET username = $2, email = $3, email_verified = $4, enabled = $5, firstname = $6,
		 lastname = $7, client_id = $8, roles = $9, required_actions = $10 WHERE id = $1`,
		u.ID, u.Username, u.Email, u.EmailVerified, u.Enabled, u.Firstname, u.Lastname, u.ClientID,
		u.Roles, requiredActionsToStrings(u.RequiredActions))
	return mapErr(err)
}

func scanUser(r row) (domain.User, error) {
	var u domain.User
	var requiredActions []string
	err := r.Scan(&u.ID, &u.RealmID, &u.Username, &u.Email, &u.EmailVerified, &u.Enabled, &u.Firstname, &u.Lastname,
		&u.ClientID, &u.Roles, &requiredActions)
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	u.RequiredActions = stringsToRequiredActions(requiredActions)
	return u, nil
}

func requiredActionsToStrings(actions []domain.RequiredAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

func stringsToRequiredActions(values []string) []domain.RequiredAction {
	out := make([]domain.RequiredAction, len(values))
	for i, v := range values {
		out[i] = domain.RequiredAction(v)
	}
	return out
}
