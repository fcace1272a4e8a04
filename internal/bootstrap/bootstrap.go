// Package bootstrap implements spec.md's Bootstrap component: idempotent
// creation of the master realm, its signing key, a default admin user and
// console client, so a freshly provisioned deployment has something to log
// into.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// manageRealmPermission is the permission carried by the realm-management
// role bootstrap grants the admin user (spec.md's `{realm_name}-realm` role).
const manageRealmPermission = "ManageRealm"

// localhostRedirectPattern additionally admits any localhost port during
// setup, alongside the literal console redirect URI.
const localhostRedirectPattern = `^http://localhost:[0-9]+/.*`

// Config parameterizes what Bootstrap creates on first run.
type Config struct {
	MasterRealmName    string
	AdminUsername      string
	AdminPassword      string
	AdminEmail         string
	ConsoleClientID    string
	ConsoleRedirectURI string // a regex pattern, e.g. ".*" for "any origin during setup"
}

// DefaultConfig mirrors the teacher's convention of a single bootstrapped
// admin realm rather than per-environment seed data.
func DefaultConfig() Config {
	return Config{
		MasterRealmName:    "master",
		AdminUsername:      "admin",
		ConsoleClientID:    "security-admin-console",
		ConsoleRedirectURI: ".*",
	}
}

// Bootstrap wires together the repositories needed to seed a deployment.
type Bootstrap struct {
	realms       ports.RealmRepository
	clients      ports.ClientRepository
	redirectURIs ports.RedirectURIRepository
	users        ports.UserRepository
	credentials  ports.CredentialRepository
	roles        ports.RoleRepository
	keys         *keystore.KeyStore
	hasher       ports.PasswordHasher
}

// New builds a Bootstrap.
func New(
	realms ports.RealmRepository,
	clients ports.ClientRepository,
	redirectURIs ports.RedirectURIRepository,
	users ports.UserRepository,
	credentials ports.CredentialRepository,
	roles ports.RoleRepository,
	keys *keystore.KeyStore,
	hasher ports.PasswordHasher,
) *Bootstrap {
	return &Bootstrap{
		realms:       realms,
		clients:      clients,
		redirectURIs: redirectURIs,
		users:        users,
		credentials:  credentials,
		roles:        roles,
		keys:         keys,
		hasher:       hasher,
	}
}

// Run seeds the master realm if it doesn't already exist. Every step is
// guarded by a lookup first, so re-running Run against an already-seeded
// deployment is a no-op.
func (b *Bootstrap) Run(ctx context.Context, cfg Config) error {
	realm, err := b.ensureRealm(ctx, cfg.MasterRealmName)
	if err != nil {
		return fmt.Errorf("ensure master realm: %w", err)
	}

	if _, err := b.keys.GetOrGenerateKey(ctx, realm.ID); err != nil {
		return fmt.Errorf("ensure realm signing key: %w", err)
	}

	client, err := b.ensureConsoleClient(ctx, realm, cfg)
	if err != nil {
		return fmt.Errorf("ensure console client: %w", err)
	}

	if _, err := b.ensureRealmManagementClient(ctx, realm); err != nil {
		return fmt.Errorf("ensure realm-management client: %w", err)
	}

	if _, err := b.ensureAdminRole(ctx, realm); err != nil {
		return fmt.Errorf("ensure admin role: %w", err)
	}

	if err := b.ensureAdminUser(ctx, realm, client, cfg); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	return nil
}

func (b *Bootstrap) ensureRealm(ctx context.Context, name string) (domain.Realm, error) {
	realm, err := b.realms.GetByName(ctx, name)
	if err == nil {
		return realm, nil
	}
	if err != ports.ErrNotFound {
		return domain.Realm{}, err
	}
	realm = domain.Realm{ID: uuid.NewString(), Name: name, SigningAlgorithm: "RS256"}
	if err := b.realms.Create(ctx, realm); err != nil {
		return domain.Realm{}, err
	}
	return realm, nil
}

func generateClientSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (b *Bootstrap) ensureConsoleClient(ctx context.Context, realm domain.Realm, cfg Config) (domain.Client, error) {
	client, err := b.clients.GetByClientID(ctx, realm.ID, cfg.ConsoleClientID)
	if err == nil {
		return client, nil
	}
	if err != ports.ErrNotFound {
		return domain.Client{}, err
	}
	secret, err := generateClientSecret()
	if err != nil {
		return domain.Client{}, fmt.Errorf("generate console client secret: %w", err)
	}
	client = domain.Client{
		ID:                        uuid.NewString(),
		RealmID:                   realm.ID,
		ClientID:                  cfg.ConsoleClientID,
		Enabled:                   true,
		Secret:                    secret,
		PublicClient:              false,
		DirectAccessGrantsEnabled: true,
		ClientType:                domain.ClientTypeConfidential,
	}
	if err := b.clients.Create(ctx, client); err != nil {
		return domain.Client{}, err
	}
	if err := b.registerAdminRedirectURIs(ctx, client, cfg.ConsoleRedirectURI); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// registerAdminRedirectURIs registers the configured literal redirect URI
// alongside the localhost regex pattern, so the console works against both a
// fixed deployment origin and an arbitrary local dev port.
func (b *Bootstrap) registerAdminRedirectURIs(ctx context.Context, client domain.Client, literal string) error {
	for _, value := range []string{literal, localhostRedirectPattern} {
		if err := b.redirectURIs.Create(ctx, domain.RedirectURI{
			ID:       uuid.NewString(),
			ClientID: client.ID,
			Value:    value,
			Enabled:  true,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ensureRealmManagementClient creates the {realm_name}-realm confidential
// client used for direct (resource-owner-password) admin API access.
func (b *Bootstrap) ensureRealmManagementClient(ctx context.Context, realm domain.Realm) (domain.Client, error) {
	clientID := realm.Name + "-realm"
	client, err := b.clients.GetByClientID(ctx, realm.ID, clientID)
	if err == nil {
		return client, nil
	}
	if err != ports.ErrNotFound {
		return domain.Client{}, err
	}
	secret, err := generateClientSecret()
	if err != nil {
		return domain.Client{}, fmt.Errorf("generate realm-management client secret: %w", err)
	}
	client = domain.Client{
		ID:                        uuid.NewString(),
		RealmID:                   realm.ID,
		ClientID:                  clientID,
		Enabled:                   true,
		Secret:                    secret,
		PublicClient:              false,
		DirectAccessGrantsEnabled: true,
		ClientType:                domain.ClientTypeConfidential,
	}
	if err := b.clients.Create(ctx, client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// adminRoleName is the role granted to the bootstrapped admin user, named
// after the realm-management client it pairs with (spec.md's `{realm_name}-realm`).
func adminRoleName(realm domain.Realm) string {
	return realm.Name + "-realm"
}

func (b *Bootstrap) ensureAdminRole(ctx context.Context, realm domain.Realm) (ports.Role, error) {
	name := adminRoleName(realm)
	role, err := b.roles.GetByName(ctx, realm.ID, name)
	if err == nil {
		return role, nil
	}
	if err != ports.ErrNotFound {
		return ports.Role{}, err
	}
	role = ports.Role{ID: uuid.NewString(), RealmID: realm.ID, Name: name, Permissions: []string{manageRealmPermission}}
	if err := b.roles.Create(ctx, role); err != nil {
		return ports.Role{}, err
	}
	return role, nil
}

func (b *Bootstrap) ensureAdminUser(ctx context.Context, realm domain.Realm, client domain.Client, cfg Config) error {
	_, err := b.users.GetByUsername(ctx, realm.ID, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if err != ports.ErrNotFound {
		return err
	}

	roleName := adminRoleName(realm)
	user := domain.User{
		ID:              uuid.NewString(),
		RealmID:         realm.ID,
		Username:        cfg.AdminUsername,
		Email:           cfg.AdminEmail,
		EmailVerified:   true,
		Enabled:         true,
		Roles:           []string{roleName},
		RequiredActions: nil,
	}
	if err := b.users.Create(ctx, user); err != nil {
		return err
	}

	role, err := b.roles.GetByName(ctx, realm.ID, roleName)
	if err != nil {
		return err
	}
	if err := b.roles.AssignToUser(ctx, role.ID, user.ID); err != nil {
		return err
	}

	hashed, err := b.hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return b.credentials.Create(ctx, domain.Credential{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Type:           domain.CredentialTypePassword,
		SecretData:     hashed,
		CredentialData: domain.CredentialData{IsHash: true},
	})
}
