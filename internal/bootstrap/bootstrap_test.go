package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferriskey/ferriskey/internal/bootstrap"
	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
)

type fakeRealmRepo struct{ byName map[string]domain.Realm }

func newFakeRealmRepo() *fakeRealmRepo { return &fakeRealmRepo{byName: map[string]domain.Realm{}} }
func (f *fakeRealmRepo) GetByID(_ context.Context, id string) (domain.Realm, error) {
	for _, r := range f.byName {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Realm{}, ports.ErrNotFound
}
func (f *fakeRealmRepo) GetByName(_ context.Context, name string) (domain.Realm, error) {
	r, ok := f.byName[name]
	if !ok {
		return domain.Realm{}, ports.ErrNotFound
	}
	return r, nil
}
func (f *fakeRealmRepo) Create(_ context.Context, r domain.Realm) error {
	f.byName[r.Name] = r
	return nil
}

type fakeClientRepo struct{ byClientID map[string]domain.Client }

func newFakeClientRepo() *fakeClientRepo { return &fakeClientRepo{byClientID: map[string]domain.Client{}} }
func (f *fakeClientRepo) GetByID(_ context.Context, id string) (domain.Client, error) {
	for _, c := range f.byClientID {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Client{}, ports.ErrNotFound
}
func (f *fakeClientRepo) GetByClientID(_ context.Context, realmID, clientID string) (domain.Client, error) {
	c, ok := f.byClientID[clientID]
	if !ok {
		return domain.Client{}, ports.ErrNotFound
	}
	return c, nil
}
func (f *fakeClientRepo) Create(_ context.Context, c domain.Client) error {
	f.byClientID[c.ClientID] = c
	return nil
}

type fakeRedirectRepo struct{ byClientID map[string][]domain.RedirectURI }

func newFakeRedirectRepo() *fakeRedirectRepo {
	return &fakeRedirectRepo{byClientID: map[string][]domain.RedirectURI{}}
}
func (f *fakeRedirectRepo) ListEnabledByClientID(_ context.Context, clientID string) ([]domain.RedirectURI, error) {
	return f.byClientID[clientID], nil
}
func (f *fakeRedirectRepo) Create(_ context.Context, uri domain.RedirectURI) error {
	f.byClientID[uri.ClientID] = append(f.byClientID[uri.ClientID], uri)
	return nil
}

type fakeUserRepo struct {
	byID       map[string]domain.User
	byUsername map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}, byUsername: map[string]domain.User{}}
}
func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, ports.ErrNotFound
	}
	return u, nil
}
func (f *fakeUserRepo) GetByUsername(_ context.Context, realmID, username string) (domain.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return domain.User{}, ports.ErrNotFound
	}
	return u, nil
}
func (f *fakeUserRepo) GetByEmail(_ context.Context, realmID, email string) (domain.User, error) {
	return domain.User{}, ports.ErrNotFound
}
func (f *fakeUserRepo) GetServiceAccountUser(_ context.Context, clientID string) (domain.User, error) {
	return domain.User{}, ports.ErrNotFound
}
func (f *fakeUserRepo) Create(_ context.Context, u domain.User) error {
	f.byID[u.ID] = u
	f.byUsername[u.Username] = u
	return nil
}
func (f *fakeUserRepo) Update(_ context.Context, u domain.User) error {
	f.byID[u.ID] = u
	f.byUsername[u.Username] = u
	return nil
}

type fakeCredentialRepo struct{ byUserID map[string][]domain.Credential }

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{byUserID: map[string][]domain.Credential{}}
}
func (f *fakeCredentialRepo) ListByUserID(_ context.Context, userID string) ([]domain.Credential, error) {
	return f.byUserID[userID], nil
}
func (f *fakeCredentialRepo) Create(_ context.Context, c domain.Credential) error {
	f.byUserID[c.UserID] = append(f.byUserID[c.UserID], c)
	return nil
}

type fakeRoleRepo struct {
	byName     map[string]ports.Role
	assignedTo map[string][]string
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{byName: map[string]ports.Role{}, assignedTo: map[string][]string{}}
}
func (f *fakeRoleRepo) GetByName(_ context.Context, realmID, name string) (ports.Role, error) {
	r, ok := f.byName[name]
	if !ok {
		return ports.Role{}, ports.ErrNotFound
	}
	return r, nil
}
func (f *fakeRoleRepo) Create(_ context.Context, r ports.Role) error {
	f.byName[r.Name] = r
	return nil
}
func (f *fakeRoleRepo) AssignToUser(_ context.Context, roleID, userID string) error {
	f.assignedTo[roleID] = append(f.assignedTo[roleID], userID)
	return nil
}
func (f *fakeRoleRepo) UserHasRole(_ context.Context, realmID, userID, roleName string) (bool, error) {
	r, ok := f.byName[roleName]
	if !ok {
		return false, nil
	}
	for _, assigned := range f.assignedTo[r.ID] {
		if assigned == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeKeyPairRepo struct{ byRealmID map[string]domain.JwtKeyPair }

func newFakeKeyPairRepo() *fakeKeyPairRepo { return &fakeKeyPairRepo{byRealmID: map[string]domain.JwtKeyPair{}} }
func (f *fakeKeyPairRepo) GetByRealmID(_ context.Context, realmID string) (domain.JwtKeyPair, error) {
	kp, ok := f.byRealmID[realmID]
	if !ok {
		return domain.JwtKeyPair{}, ports.ErrNotFound
	}
	return kp, nil
}
func (f *fakeKeyPairRepo) Create(_ context.Context, keyPair domain.JwtKeyPair) error {
	if _, ok := f.byRealmID[keyPair.RealmID]; ok {
		return ports.ErrDuplicateKey
	}
	f.byRealmID[keyPair.RealmID] = keyPair
	return nil
}

func TestRun_SeedsMasterRealmAdminAndIsIdempotent(t *testing.T) {
	realms := newFakeRealmRepo()
	clients := newFakeClientRepo()
	redirects := newFakeRedirectRepo()
	users := newFakeUserRepo()
	creds := newFakeCredentialRepo()
	roles := newFakeRoleRepo()
	keys := keystore.New(newFakeKeyPairRepo())
	hasher := credential.NewBcryptHasher()

	b := bootstrap.New(realms, clients, redirects, users, creds, roles, keys, hasher)

	cfg := bootstrap.DefaultConfig()
	cfg.AdminPassword = "changeit"
	cfg.AdminEmail = "admin@example.com"

	require.NoError(t, b.Run(context.Background(), cfg))

	realm, err := realms.GetByName(context.Background(), "master")
	require.NoError(t, err)

	console, err := clients.GetByClientID(context.Background(), realm.ID, cfg.ConsoleClientID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClientTypeConfidential, console.ClientType)
	assert.False(t, console.PublicClient)
	assert.NotEmpty(t, console.Secret)

	realmManagement, err := clients.GetByClientID(context.Background(), realm.ID, "master-realm")
	require.NoError(t, err)
	assert.Equal(t, domain.ClientTypeConfidential, realmManagement.ClientType)
	assert.True(t, realmManagement.DirectAccessGrantsEnabled)
	assert.NotEmpty(t, realmManagement.Secret)

	consoleRedirects := redirects.byClientID[console.ID]
	require.Len(t, consoleRedirects, 2)
	assert.Equal(t, cfg.ConsoleRedirectURI, consoleRedirects[0].Value)
	assert.Equal(t, `^http://localhost:[0-9]+/.*`, consoleRedirects[1].Value)

	role, err := roles.GetByName(context.Background(), realm.ID, "master-realm")
	require.NoError(t, err)
	assert.Contains(t, role.Permissions, "ManageRealm")

	admin, err := users.GetByUsername(context.Background(), realm.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.Contains(t, admin.Roles, "master-realm")
	assert.Contains(t, roles.assignedTo[role.ID], admin.ID)
	assert.Len(t, creds.byUserID[admin.ID], 1)

	kp, err := keys.GetOrGenerateKey(context.Background(), realm.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, kp.PrivatePEM)

	// Re-running must not duplicate anything.
	require.NoError(t, b.Run(context.Background(), cfg))
	adminUserAgain, err := users.GetByUsername(context.Background(), realm.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, adminUserAgain.ID)
}
