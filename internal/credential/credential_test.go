package credential_test

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
)

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

type fakeFederationRepo struct {
	mapping ports.FederationMapping
	hasMapping bool
	ldapConfig ports.LDAPProviderConfig
}

func (f *fakeFederationRepo) GetMappingByUserID(_ context.Context, userID string) (ports.FederationMapping, error) {
	if !f.hasMapping {
		return ports.FederationMapping{}, ports.ErrNotFound
	}
	return f.mapping, nil
}
func (f *fakeFederationRepo) GetLDAPConfig(_ context.Context, providerID string) (ports.LDAPProviderConfig, error) {
	return f.ldapConfig, nil
}

type fakeLDAPClient struct {
	dn          string
	validPasswords map[string]string
}

func (f *fakeLDAPClient) SearchUserDN(_ ports.LDAPProviderConfig, username string) (string, error) {
	return f.dn, nil
}
func (f *fakeLDAPClient) Bind(_ ports.LDAPProviderConfig, dn, password string) error {
	if f.validPasswords[dn] != password {
		return assertErr("bad credentials")
	}
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func testUser() domain.User {
	return domain.User{ID: "user-1", Username: "alice"}
}

func TestVerifyPassword_LocalSuccess(t *testing.T) {
	hasher := credential.NewBcryptHasher()
	hashed, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	creds := newFakeCredentialRepo()
	creds.byUserID["user-1"] = []domain.Credential{{
		UserID:         "user-1",
		Type:           domain.CredentialTypePassword,
		SecretData:     hashed,
		CredentialData: domain.CredentialData{IsHash: true},
	}}

	v := credential.New(creds, &fakeFederationRepo{}, hasher, nil)
	err = v.VerifyPassword(context.Background(), testUser(), "correct-horse")
	require.NoError(t, err)
}

func TestVerifyPassword_LocalWrongPassword(t *testing.T) {
	hasher := credential.NewBcryptHasher()
	hashed, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	creds := newFakeCredentialRepo()
	creds.byUserID["user-1"] = []domain.Credential{{
		UserID:         "user-1",
		Type:           domain.CredentialTypePassword,
		SecretData:     hashed,
		CredentialData: domain.CredentialData{IsHash: true},
	}}

	v := credential.New(creds, &fakeFederationRepo{}, hasher, nil)
	err = v.VerifyPassword(context.Background(), testUser(), "wrong")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidPassword, domain.KindOf(err))
}

func TestVerifyPassword_MalformedCredentialIsInternalError(t *testing.T) {
	hasher := credential.NewBcryptHasher()
	creds := newFakeCredentialRepo()
	creds.byUserID["user-1"] = []domain.Credential{{
		UserID:         "user-1",
		Type:           domain.CredentialTypePassword,
		SecretData:     "not-a-hash",
		CredentialData: domain.CredentialData{IsHash: false},
	}}

	v := credential.New(creds, &fakeFederationRepo{}, hasher, nil)
	err := v.VerifyPassword(context.Background(), testUser(), "anything")
	require.Error(t, err)
	assert.Equal(t, domain.KindInternalServerError, domain.KindOf(err))
}

func TestVerifyPassword_FederatedDelegatesToLDAP(t *testing.T) {
	federation := &fakeFederationRepo{
		hasMapping: true,
		mapping:    ports.FederationMapping{UserID: "user-1", ProviderID: "ldap-1", Enabled: true},
	}
	ldap := &fakeLDAPClient{dn: "uid=alice,ou=people,dc=example,dc=com", validPasswords: map[string]string{
		"uid=alice,ou=people,dc=example,dc=com": "directory-secret",
	}}

	v := credential.New(newFakeCredentialRepo(), federation, credential.NewBcryptHasher(), ldap)
	err := v.VerifyPassword(context.Background(), testUser(), "directory-secret")
	require.NoError(t, err)

	err = v.VerifyPassword(context.Background(), testUser(), "wrong")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidPassword, domain.KindOf(err))
}

func TestVerifyOTP(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	creds := newFakeCredentialRepo()
	creds.byUserID["user-1"] = []domain.Credential{{
		UserID:     "user-1",
		Type:       domain.CredentialTypeOTP,
		SecretData: secret,
	}}

	v := credential.New(creds, &fakeFederationRepo{}, credential.NewBcryptHasher(), nil)
	err = v.VerifyOTP(context.Background(), testUser(), code)
	require.NoError(t, err)

	err = v.VerifyOTP(context.Background(), testUser(), "000000")
	if err == nil {
		t.Skip("generated code collided with a guessed invalid code")
	}
	assert.Equal(t, domain.KindInvalidPassword, domain.KindOf(err))
}
