// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/threatgate/internal/model"
)

// ProvisioningCost is the bcrypt cost used for newly provisioned accounts.
const ProvisioningCost = 12

// Bcrypt verifies passwords against bcrypt hashes.
type Bcrypt struct {
	cost  int
	dummy []byte
}

var _ model.PasswordVerifier = (*Bcrypt)(nil)

// NewBcrypt creates a verifier. Lookups for unknown accounts are compared
// against a throwaway hash of the same cost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("threatgate-unknown-account"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Bcrypt{cost: cost, dummy: dummy}, nil
}

// Verify reports whether plain matches hash. Malformed hashes never match.
func (b *Bcrypt) Verify(plain, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Hash returns a bcrypt hash of plain at the verifier's cost.
func (b *Bcrypt) Hash(plain string) (string, error) {
	return Hash(plain, b.cost)
}

// Hash returns a bcrypt hash of plain at the given cost.
func Hash(plain string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}
