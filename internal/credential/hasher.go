package credential

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// BcryptHasher is the default PasswordHasher (spec §4.C), matching the
// teacher's bcrypt-backed implementation.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher builds a BcryptHasher with bcrypt's default cost.
func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", domain.Wrap(domain.KindHashPasswordError, "hash password", err)
	}
	return string(hashed), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.New(domain.KindInvalidPassword, "password does not match")
	}
	return nil
}
