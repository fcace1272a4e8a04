package authsession_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/scope"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type fakeSessionRepo struct {
	byID   map[string]domain.AuthSession
	byCode map[string]string // code -> session id
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: map[string]domain.AuthSession{}, byCode: map[string]string{}}
}
func (f *fakeSessionRepo) Create(_ context.Context, s domain.AuthSession) error {
	f.byID[s.ID] = s
	return nil
}
func (f *fakeSessionRepo) GetBySessionCode(_ context.Context, sessionCode string) (domain.AuthSession, error) {
	s, ok := f.byID[sessionCode]
	if !ok {
		return domain.AuthSession{}, ports.ErrNotFound
	}
	return s, nil
}
func (f *fakeSessionRepo) GetByCode(_ context.Context, code string) (domain.AuthSession, error) {
	id, ok := f.byCode[code]
	if !ok {
		return domain.AuthSession{}, ports.ErrNotFound
	}
	return f.byID[id], nil
}
func (f *fakeSessionRepo) UpdateCodeAndUserID(_ context.Context, sessionCode, code, userID string) (domain.AuthSession, error) {
	s, ok := f.byID[sessionCode]
	if !ok {
		return domain.AuthSession{}, ports.ErrNotFound
	}
	s.Code = &code
	s.UserID = &userID
	s.Authenticated = true
	f.byID[sessionCode] = s
	f.byCode[code] = sessionCode
	return s, nil
}
func (f *fakeSessionRepo) Delete(_ context.Context, sessionCode string) error {
	delete(f.byID, sessionCode)
	return nil
}

type fakeClientRepo struct{ byClientID map[string]domain.Client }

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

type fakeFederationRepo struct{}

func (fakeFederationRepo) GetMappingByUserID(_ context.Context, userID string) (ports.FederationMapping, error) {
	return ports.FederationMapping{}, ports.ErrNotFound
}
func (fakeFederationRepo) GetLDAPConfig(_ context.Context, providerID string) (ports.LDAPProviderConfig, error) {
	return ports.LDAPProviderConfig{}, nil
}

type fakeKeyPairRepo struct{ byRealmID map[string]domain.JwtKeyPair }

func newFakeKeyPairRepo() *fakeKeyPairRepo {
	return &fakeKeyPairRepo{byRealmID: map[string]domain.JwtKeyPair{}}
}
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

type fakeAccessRepo struct{ byHash map[string]domain.AccessTokenEntry }

func newFakeAccessRepo() *fakeAccessRepo { return &fakeAccessRepo{byHash: map[string]domain.AccessTokenEntry{}} }
func (f *fakeAccessRepo) Create(_ context.Context, e domain.AccessTokenEntry) error {
	f.byHash[e.TokenHash] = e
	return nil
}
func (f *fakeAccessRepo) GetByHash(_ context.Context, hash string) (domain.AccessTokenEntry, error) {
	e, ok := f.byHash[hash]
	if !ok {
		return domain.AccessTokenEntry{}, ports.ErrNotFound
	}
	return e, nil
}
func (f *fakeAccessRepo) Revoke(_ context.Context, hash string) error { return nil }

type fakeRefreshRepo struct{ byJti map[string]domain.RefreshTokenEntry }

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{byJti: map[string]domain.RefreshTokenEntry{}}
}
func (f *fakeRefreshRepo) Create(_ context.Context, e domain.RefreshTokenEntry) error {
	f.byJti[e.Jti] = e
	return nil
}
func (f *fakeRefreshRepo) GetByJti(_ context.Context, jti string) (domain.RefreshTokenEntry, error) {
	e, ok := f.byJti[jti]
	if !ok {
		return domain.RefreshTokenEntry{}, ports.ErrNotFound
	}
	return e, nil
}
func (f *fakeRefreshRepo) Delete(_ context.Context, jti string) error {
	delete(f.byJti, jti)
	return nil
}

func testRealm() domain.Realm { return domain.Realm{ID: "realm-1", Name: "acme"} }

func newTestEngine(t *testing.T) (*authsession.Engine, *fakeClientRepo, *fakeRedirectRepo, *fakeUserRepo, *fakeCredentialRepo) {
	t.Helper()
	clients := &fakeClientRepo{byClientID: map[string]domain.Client{
		"web-app": {ID: "client-1", RealmID: "realm-1", ClientID: "web-app", Enabled: true, PublicClient: true},
	}}
	redirects := &fakeRedirectRepo{byClientID: map[string][]domain.RedirectURI{
		"client-1": {{ClientID: "client-1", Value: "https://app.example.com/callback", Enabled: true}},
	}}
	users := newFakeUserRepo()
	creds := newFakeCredentialRepo()
	hasher := credential.NewBcryptHasher()
	verifier := credential.New(creds, fakeFederationRepo{}, hasher, nil)

	keys := keystore.New(newFakeKeyPairRepo())
	clock := fixedClock{t: time.Now()}
	tokens := tokenservice.New(keys, clock, newFakeAccessRepo(), newFakeRefreshRepo(), "https://auth.example.com")

	engine := authsession.New(newFakeSessionRepo(), clients, redirects, users, verifier, tokens, scope.DefaultManager(), clock)
	return engine, clients, redirects, users, creds
}

func TestInitiate_RejectsUnregisteredRedirectURI(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	_, err := engine.Initiate(context.Background(), authsession.InitiateParams{
		Realm:        testRealm(),
		ClientID:     "web-app",
		RedirectURI:  "https://evil.example.com/callback",
		ResponseType: "code",
		Scope:        "openid",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidRedirectURI, domain.KindOf(err))
}

func TestInitiate_AcceptsRegisteredRedirectURI(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	session, err := engine.Initiate(context.Background(), authsession.InitiateParams{
		Realm:        testRealm(),
		ClientID:     "web-app",
		RedirectURI:  "https://app.example.com/callback",
		ResponseType: "code",
		Scope:        "openid",
	})
	require.NoError(t, err)
	assert.Equal(t, "openid email profile", session.Scope)
	assert.False(t, session.Authenticated)
	assert.Nil(t, session.Code)
}

func TestAuthenticateWithCredentials_SuccessFinalizes(t *testing.T) {
	engine, _, _, users, creds := newTestEngine(t)
	hasher := credential.NewBcryptHasher()
	hashed, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	require.NoError(t, users.Create(context.Background(), domain.User{ID: "user-1", RealmID: "realm-1", Username: "alice", Enabled: true}))
	require.NoError(t, creds.Create(context.Background(), domain.Credential{
		UserID: "user-1", Type: domain.CredentialTypePassword, SecretData: hashed,
		CredentialData: domain.CredentialData{IsHash: true},
	}))

	session, err := engine.Initiate(context.Background(), authsession.InitiateParams{
		Realm: testRealm(), ClientID: "web-app", RedirectURI: "https://app.example.com/callback", ResponseType: "code", Scope: "openid",
	})
	require.NoError(t, err)

	step, err := engine.AuthenticateWithCredentials(context.Background(), session.ID, testRealm(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, authsession.StepSuccess, step.Kind)
	require.NotNil(t, step.AuthSession.Code)
	require.NotNil(t, step.AuthSession.UserID)
	assert.Equal(t, "user-1", *step.AuthSession.UserID)

	consumed, err := engine.ConsumeCode(context.Background(), *step.AuthSession.Code)
	require.NoError(t, err)
	assert.Equal(t, session.ID, consumed.ID)
}

func TestAuthenticateWithCredentials_RequiresActions(t *testing.T) {
	engine, _, _, users, creds := newTestEngine(t)
	hasher := credential.NewBcryptHasher()
	hashed, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	require.NoError(t, users.Create(context.Background(), domain.User{
		ID: "user-1", RealmID: "realm-1", Username: "alice", Enabled: true,
		RequiredActions: []domain.RequiredAction{domain.RequiredActionUpdatePassword},
	}))
	require.NoError(t, creds.Create(context.Background(), domain.Credential{
		UserID: "user-1", Type: domain.CredentialTypePassword, SecretData: hashed,
		CredentialData: domain.CredentialData{IsHash: true},
	}))

	session, err := engine.Initiate(context.Background(), authsession.InitiateParams{
		Realm: testRealm(), ClientID: "web-app", RedirectURI: "https://app.example.com/callback", ResponseType: "code", Scope: "openid",
	})
	require.NoError(t, err)

	step, err := engine.AuthenticateWithCredentials(context.Background(), session.ID, testRealm(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, authsession.StepRequiresActions, step.Kind)
	assert.Contains(t, step.RequiredActions, domain.RequiredActionUpdatePassword)
	assert.NotEmpty(t, step.Token)

	resumed, err := engine.AuthenticateWithExistingToken(context.Background(), session.ID, testRealm(), step.Token)
	require.NoError(t, err)
	assert.Equal(t, authsession.StepRequiresActions, resumed.Kind)
}

func TestAuthenticateWithCredentials_TemporaryPasswordForcesUpdatePassword(t *testing.T) {
	engine, _, _, users, creds := newTestEngine(t)
	hasher := credential.NewBcryptHasher()
	hashed, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	require.NoError(t, users.Create(context.Background(), domain.User{
		ID: "user-1", RealmID: "realm-1", Username: "alice", Enabled: true,
	}))
	require.NoError(t, creds.Create(context.Background(), domain.Credential{
		UserID: "user-1", Type: domain.CredentialTypePassword, SecretData: hashed,
		CredentialData: domain.CredentialData{IsHash: true}, Temporary: true,
	}))

	session, err := engine.Initiate(context.Background(), authsession.InitiateParams{
		Realm: testRealm(), ClientID: "web-app", RedirectURI: "https://app.example.com/callback", ResponseType: "code", Scope: "openid",
	})
	require.NoError(t, err)

	step, err := engine.AuthenticateWithCredentials(context.Background(), session.ID, testRealm(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, authsession.StepRequiresActions, step.Kind)
	assert.Equal(t, []domain.RequiredAction{domain.RequiredActionUpdatePassword}, step.RequiredActions)
	assert.NotEmpty(t, step.Token)
}

func TestAuthenticateWithCredentials_WrongPassword(t *testing.T) {
	engine, _, _, users, creds := newTestEngine(t)
	hasher := credential.NewBcryptHasher()
	hashed, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), domain.User{ID: "user-1", RealmID: "realm-1", Username: "alice", Enabled: true}))
	require.NoError(t, creds.Create(context.Background(), domain.Credential{
		UserID: "user-1", Type: domain.CredentialTypePassword, SecretData: hashed,
		CredentialData: domain.CredentialData{IsHash: true},
	}))

	session, err := engine.Initiate(context.Background(), authsession.InitiateParams{
		Realm: testRealm(), ClientID: "web-app", RedirectURI: "https://app.example.com/callback", ResponseType: "code", Scope: "openid",
	})
	require.NoError(t, err)

	_, err = engine.AuthenticateWithCredentials(context.Background(), session.ID, testRealm(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidPassword, domain.KindOf(err))
}
