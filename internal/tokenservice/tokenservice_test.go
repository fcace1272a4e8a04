package tokenservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

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
func (f *fakeAccessRepo) Revoke(_ context.Context, hash string) error {
	e, ok := f.byHash[hash]
	if !ok {
		return ports.ErrNotFound
	}
	e.Revoked = true
	f.byHash[hash] = e
	return nil
}

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
	if _, ok := f.byJti[jti]; !ok {
		return ports.ErrNotFound
	}
	delete(f.byJti, jti)
	return nil
}

func newTestService(now time.Time) (*tokenservice.Service, *fakeRefreshRepo, *fakeAccessRepo) {
	keys := keystore.New(newFakeKeyPairRepo())
	accessRepo := newFakeAccessRepo()
	refreshRepo := newFakeRefreshRepo()
	svc := tokenservice.New(keys, fixedClock{t: now}, accessRepo, refreshRepo, "https://auth.example.com")
	return svc, refreshRepo, accessRepo
}

func testRealm() domain.Realm { return domain.Realm{ID: "realm-1", Name: "acme"} }

func testUserIdentity() domain.Identity {
	return domain.Identity{User: &domain.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}}
}

func TestCreateTokenSet_IssuesAccessAndRefresh(t *testing.T) {
	now := time.Now()
	svc, refreshRepo, accessRepo := newTestService(now)
	realm := testRealm()

	set, err := svc.CreateTokenSet(context.Background(), realm, testUserIdentity(), "openid profile", "client-1", true, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, set.AccessToken)
	assert.NotEmpty(t, set.RefreshToken)
	assert.NotEmpty(t, set.IDToken)
	assert.Equal(t, "Bearer", set.TokenType)
	assert.Equal(t, int64(tokenservice.DefaultAccessTokenTTL.Seconds()), set.ExpiresIn)
	assert.Len(t, refreshRepo.byJti, 1)
	assert.Len(t, accessRepo.byHash, 1)
}

func TestVerify_RoundTrip(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(now)
	realm := testRealm()

	set, err := svc.CreateTokenSet(context.Background(), realm, testUserIdentity(), "openid", "client-1", false, nil)
	require.NoError(t, err)

	claim, err := svc.Verify(context.Background(), realm, set.AccessToken, domain.TokenTypBearer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claim.Sub)
	assert.Equal(t, "openid", claim.Scope)
}

func TestVerify_RejectsWrongType(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(now)
	realm := testRealm()

	set, err := svc.CreateTokenSet(context.Background(), realm, testUserIdentity(), "openid", "client-1", false, nil)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), realm, set.AccessToken, domain.TokenTypRefresh)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidToken, domain.KindOf(err))
}

func TestVerifyRefresh_RejectsRevoked(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(now)
	realm := testRealm()

	set, err := svc.CreateTokenSet(context.Background(), realm, testUserIdentity(), "openid", "client-1", false, nil)
	require.NoError(t, err)

	claim, err := svc.Verify(context.Background(), realm, set.RefreshToken, domain.TokenTypRefresh)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeRefresh(context.Background(), claim.Jti))

	_, err = svc.VerifyRefresh(context.Background(), realm, set.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidRefreshToken, domain.KindOf(err))
}

func TestIntrospect_ActiveAndRevoked(t *testing.T) {
	now := time.Now()
	svc, _, accessRepo := newTestService(now)
	realm := testRealm()

	set, err := svc.CreateTokenSet(context.Background(), realm, testUserIdentity(), "openid", "client-1", false, nil)
	require.NoError(t, err)

	active, claim, err := svc.Introspect(context.Background(), realm, set.AccessToken, "")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "user-1", claim.Sub)

	require.NoError(t, accessRepo.Revoke(context.Background(), tokenservice.HashToken(set.AccessToken)))

	active, _, err = svc.Introspect(context.Background(), realm, set.AccessToken, "")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestIntrospect_UnknownTokenIsInactiveNotError(t *testing.T) {
	svc, _, _ := newTestService(time.Now())
	active, _, err := svc.Introspect(context.Background(), testRealm(), "not-a-real-token", "")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestIntrospect_FallsBackToJWTValidationOnLedgerMiss(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(now)
	realm := testRealm()

	// Sign a Bearer-typed JWT directly, bypassing CreateTokenSet so it is
	// never persisted to the access-token ledger — the ledger lookup misses,
	// but the token is still validly signed and unexpired.
	claim := svc.IdentityClaims(realm, testUserIdentity(), "openid", "client-1")
	claim.Typ = domain.TokenTypBearer
	claim.Exp = now.Add(time.Minute).Unix()
	jwt, err := svc.Sign(context.Background(), realm, claim)
	require.NoError(t, err)

	active, resolved, err := svc.Introspect(context.Background(), realm, jwt, "")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "user-1", resolved.Sub)
}

func TestIntrospect_RefreshTokenHintForcesLedgerVerification(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(now)
	realm := testRealm()

	set, err := svc.CreateTokenSet(context.Background(), realm, testUserIdentity(), "openid", "client-1", false, nil)
	require.NoError(t, err)

	active, claim, err := svc.Introspect(context.Background(), realm, set.RefreshToken, "refresh_token")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "user-1", claim.Sub)

	require.NoError(t, svc.RevokeRefresh(context.Background(), claim.Jti))

	active, _, err = svc.Introspect(context.Background(), realm, set.RefreshToken, "refresh_token")
	require.NoError(t, err)
	assert.False(t, active)
}
