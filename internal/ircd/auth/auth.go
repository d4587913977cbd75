// Package auth provides the opaque password-hash primitive the
// protocol core treats as an external collaborator (spec §1, §4.6):
// a verify/hash callable. The core never compares plaintext passwords
// itself.
package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords. The default implementation
// wraps golang.org/x/crypto/bcrypt, the way
// sandia-minimega-minimega/src/miniweb/auth.go checks stored password
// hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Bcrypt is the default Hasher.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a Bcrypt hasher using bcrypt.DefaultCost.
func NewBcrypt() Bcrypt {
	return Bcrypt{Cost: bcrypt.DefaultCost}
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(out), nil
}

func (b Bcrypt) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
