package keystore_test

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// fakeKeyPairRepo is a flat-struct test double (spec §9 "Design Notes").
type fakeKeyPairRepo struct {
	mu        sync.Mutex
	byRealmID map[string]domain.JwtKeyPair
	// blockFirstCreate makes the first Create call race-lose, to exercise
	// KeyStore's duplicate-key re-read path.
	blockFirstCreate bool
	createCalls      int
}

func newFakeKeyPairRepo() *fakeKeyPairRepo {
	return &fakeKeyPairRepo{byRealmID: map[string]domain.JwtKeyPair{}}
}

func (f *fakeKeyPairRepo) GetByRealmID(_ context.Context, realmID string) (domain.JwtKeyPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kp, ok := f.byRealmID[realmID]
	if !ok {
		return domain.JwtKeyPair{}, ports.ErrNotFound
	}
	return kp, nil
}

func (f *fakeKeyPairRepo) Create(_ context.Context, keyPair domain.JwtKeyPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.blockFirstCreate && f.createCalls == 1 {
		// Simulate another writer having already won the race and
		// persisted a different key for this realm.
		f.byRealmID[keyPair.RealmID] = domain.JwtKeyPair{
			ID:         "winner-kid",
			RealmID:    keyPair.RealmID,
			PrivatePEM: keyPair.PrivatePEM,
			PublicPEM:  keyPair.PublicPEM,
		}
		return ports.ErrDuplicateKey
	}
	if _, exists := f.byRealmID[keyPair.RealmID]; exists {
		return ports.ErrDuplicateKey
	}
	f.byRealmID[keyPair.RealmID] = keyPair
	return nil
}

func TestGetOrGenerateKey_GeneratesOnFirstUse(t *testing.T) {
	repo := newFakeKeyPairRepo()
	ks := keystore.New(repo)

	kp, err := ks.GetOrGenerateKey(context.Background(), "realm-1")
	require.NoError(t, err)
	assert.Equal(t, "realm-1", kp.RealmID)
	assert.NotEmpty(t, kp.PrivatePEM)
	assert.NotEmpty(t, kp.PublicPEM)
}

func TestGetOrGenerateKey_ReusesExistingKey(t *testing.T) {
	repo := newFakeKeyPairRepo()
	ks := keystore.New(repo)

	first, err := ks.GetOrGenerateKey(context.Background(), "realm-1")
	require.NoError(t, err)

	second, err := ks.GetOrGenerateKey(context.Background(), "realm-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PrivatePEM, second.PrivatePEM)
}

func TestGetOrGenerateKey_ConcurrentFirstUseRaceReReadsWinner(t *testing.T) {
	repo := newFakeKeyPairRepo()
	repo.blockFirstCreate = true
	ks := keystore.New(repo)

	kp, err := ks.GetOrGenerateKey(context.Background(), "realm-1")
	require.NoError(t, err)
	assert.Equal(t, "winner-kid", kp.ID)
}

func TestToJWK_ExportsPublicKeyOnly(t *testing.T) {
	repo := newFakeKeyPairRepo()
	ks := keystore.New(repo)

	kp, err := ks.GetOrGenerateKey(context.Background(), "realm-1")
	require.NoError(t, err)

	jwk, err := keystore.ToJWK(kp)
	require.NoError(t, err)
	assert.Equal(t, "RSA", jwk.Kty)
	assert.Equal(t, kp.ID, jwk.Kid)
	assert.Equal(t, "sig", jwk.Use)
	assert.Equal(t, "RS256", jwk.Alg)
	assert.NotEmpty(t, jwk.N)
	assert.NotEmpty(t, jwk.E)

	require.Len(t, jwk.X5c, 1)
	decoded, err := base64.RawURLEncoding.DecodeString(jwk.X5c[0])
	require.NoError(t, err)
	assert.Equal(t, kp.PublicPEM, string(decoded))

	sum := sha1.Sum([]byte(jwk.X5c[0]))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), jwk.X5t)
}

func TestPrivateKeyPublicKey_RoundTrip(t *testing.T) {
	repo := newFakeKeyPairRepo()
	ks := keystore.New(repo)

	kp, err := ks.GetOrGenerateKey(context.Background(), "realm-1")
	require.NoError(t, err)

	priv, err := keystore.PrivateKey(kp)
	require.NoError(t, err)
	pub, err := keystore.PublicKey(kp)
	require.NoError(t, err)

	assert.Equal(t, &priv.PublicKey, pub)
}
