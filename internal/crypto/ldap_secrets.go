// Package crypto provides AES-256-GCM encryption for LDAP bind passwords
// at rest (ports.LDAPProviderConfig.BindPasswordEncrypted, spec §6).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// bindSecretKeyEnv names the env var holding the 32-byte (64 hex char)
// master key this package's functions encrypt/decrypt under.
const bindSecretKeyEnv = "LDAP_BIND_SECRET_KEY"

// EncryptBindSecret encrypts an LDAP service-account bind password with
// AES-256-GCM, returning base64 ciphertext prefixed with "enc:" for storage
// in ldap_provider_configs.bind_password_encrypted.
func EncryptBindSecret(plaintext string) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return "enc:" + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptBindSecret reverses EncryptBindSecret. It rejects anything not
// bearing the "enc:" prefix, so a plaintext value accidentally stored
// un-encrypted fails loudly instead of being bound against as-is.
func DecryptBindSecret(ciphertextB64 string) (string, error) {
	if len(ciphertextB64) < 4 || ciphertextB64[:4] != "enc:" {
		return "", fmt.Errorf("invalid encrypted bind secret: missing \"enc:\" prefix")
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64[4:])
	if err != nil {
		return "", fmt.Errorf("invalid base64 encoding: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: possible corruption or tampering")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: invalid key or tampered data: %w", err)
	}
	return string(plaintext), nil
}

// GenerateBindSecretKey generates a new 32-byte AES key in hex, suitable
// for LDAP_BIND_SECRET_KEY.
func GenerateBindSecretKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func newGCM() (cipher.AEAD, error) {
	keyHex := os.Getenv(bindSecretKeyEnv)
	if len(keyHex) != 64 {
		return nil, fmt.Errorf("%s must be exactly 32 bytes (64 hex characters)", bindSecretKeyEnv)
	}

	key := make([]byte, 32)
	if _, err := hex.Decode(key, []byte(keyHex)); err != nil {
		return nil, fmt.Errorf("invalid %s format: must be hex: %w", bindSecretKeyEnv, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create aes cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
