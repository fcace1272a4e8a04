// Package keystore implements spec §4.A KeyStore: lazy per-realm RSA key
// generation and JWK export.
package keystore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	josejwk "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
)

const rsaKeySize = 2048

// KeyStore resolves a realm's signing key, generating one on first use. It
// never rotates a key once created (spec §4.A).
type KeyStore struct {
	repo ports.KeyPairRepository
}

// New builds a KeyStore over the given repository.
func New(repo ports.KeyPairRepository) *KeyStore {
	return &KeyStore{repo: repo}
}

// GetOrGenerateKey returns the realm's key pair, generating and persisting
// one if none exists yet. Two callers racing to create the first key for a
// realm are both expected to succeed: the loser's Create fails with
// ports.ErrDuplicateKey and re-reads the winner's row instead of erroring.
func (k *KeyStore) GetOrGenerateKey(ctx context.Context, realmID string) (domain.JwtKeyPair, error) {
	existing, err := k.repo.GetByRealmID(ctx, realmID)
	if err == nil {
		return existing, nil
	}
	if err != ports.ErrNotFound {
		return domain.JwtKeyPair{}, domain.Wrap(domain.KindInternalServerError, "load signing key", err)
	}

	keyPair, genErr := generateKeyPair(realmID)
	if genErr != nil {
		return domain.JwtKeyPair{}, domain.Wrap(domain.KindInvalidKey, "generate signing key", genErr)
	}

	if createErr := k.repo.Create(ctx, keyPair); createErr != nil {
		if createErr == ports.ErrDuplicateKey {
			winner, readErr := k.repo.GetByRealmID(ctx, realmID)
			if readErr != nil {
				return domain.JwtKeyPair{}, domain.Wrap(domain.KindInternalServerError, "re-read signing key after race", readErr)
			}
			return winner, nil
		}
		return domain.JwtKeyPair{}, domain.Wrap(domain.KindInternalServerError, "persist signing key", createErr)
	}
	return keyPair, nil
}

func generateKeyPair(realmID string) (domain.JwtKeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return domain.JwtKeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return domain.JwtKeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return domain.JwtKeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return domain.JwtKeyPair{
		ID:         uuid.NewString(),
		RealmID:    realmID,
		PrivatePEM: string(privPEM),
		PublicPEM:  string(pubPEM),
	}, nil
}

// PrivateKey parses the stored PEM back into an *rsa.PrivateKey for signing.
func PrivateKey(keyPair domain.JwtKeyPair) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(keyPair.PrivatePEM))
	if block == nil {
		return nil, domain.New(domain.KindInvalidKey, "malformed private key PEM")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidKey, "parse private key", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, domain.New(domain.KindInvalidKey, "signing key is not RSA")
	}
	return rsaKey, nil
}

// PublicKey parses the stored PEM back into an *rsa.PublicKey for
// verification.
func PublicKey(keyPair domain.JwtKeyPair) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(keyPair.PublicPEM))
	if block == nil {
		return nil, domain.New(domain.KindInvalidKey, "malformed public key PEM")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidKey, "parse public key", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, domain.New(domain.KindInvalidKey, "signing key is not RSA")
	}
	return rsaKey, nil
}

// ToJWK exports the realm's public key as a JWK suitable for the JWKS
// endpoint (spec §6 "certs").
func ToJWK(keyPair domain.JwtKeyPair) (domain.JwkKey, error) {
	pub, err := PublicKey(keyPair)
	if err != nil {
		return domain.JwkKey{}, err
	}

	jwk := josejwk.JSONWebKey{
		Key:       pub,
		KeyID:     keyPair.ID,
		Algorithm: "RS256",
		Use:       "sig",
	}
	raw, err := jwk.MarshalJSON()
	if err != nil {
		return domain.JwkKey{}, domain.Wrap(domain.KindInternalServerError, "marshal jwk", err)
	}

	var out domain.JwkKey
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.JwkKey{}, domain.Wrap(domain.KindInternalServerError, "unmarshal jwk", err)
	}

	x5c := base64.RawURLEncoding.EncodeToString([]byte(keyPair.PublicPEM))
	sum := sha1.Sum([]byte(x5c))
	out.X5c = []string{x5c}
	out.X5t = base64.RawURLEncoding.EncodeToString(sum[:])

	return out, nil
}
