// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest plaintext bcrypt takes into account.
const MaxBytes = 72

// ErrPasswordTooLong is returned for inputs bcrypt cannot hash (over MaxBytes).
var ErrPasswordTooLong = errors.New("password is too long")

type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify never errors: a wrong password and a corrupt digest both report false.
// Plaintexts over MaxBytes never match, since bcrypt would only compare their
// first MaxBytes bytes.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if len(plaintext) > MaxBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
