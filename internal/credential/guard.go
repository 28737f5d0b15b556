// Package credential keeps plaintext passwords out of storage.
//
// The Guard sits in the write path of the user store: BeforeCreate and
// BeforeUpdate run right before the INSERT / UPDATE statement and swap the
// plaintext for a salted bcrypt hash. Verify compares a candidate against
// the stored hash.
package credential

import (
	"errors"
	"fmt"

	"user_accounts/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches bcrypt's default of 10 rounds.
const DefaultCost = bcrypt.DefaultCost

var (
	// ErrHashFailed wraps any failure of the hashing primitive.
	ErrHashFailed = errors.New("password hashing failed")
	// ErrInvalidCost is returned by NewGuard for a cost outside bcrypt's range.
	ErrInvalidCost = errors.New("invalid bcrypt cost")
)

// Guard hashes passwords on write and verifies them on read.
// It holds no mutable state and is safe for concurrent use.
type Guard struct {
	cost int
}

// NewGuard returns a Guard hashing with the given bcrypt cost.
func NewGuard(cost int) (*Guard, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Guard{cost: cost}, nil
}

// Cost returns the configured bcrypt cost.
func (g *Guard) Cost() int { return g.cost }

// BeforeCreate replaces u.Password with its hash. u is untouched on error.
func (g *Guard) BeforeCreate(u *models.User) error {
	hash, err := g.hash(u.Password)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// BeforeUpdate hashes the password only when the update supplies one.
// A nil Password means the stored hash stays as it is.
func (g *Guard) BeforeUpdate(u *models.UserUpdate) error {
	if !u.PasswordChanged() {
		return nil
	}
	hash, err := g.hash(*u.Password)
	if err != nil {
		return err
	}
	u.Password = &hash
	return nil
}

// Verify reports whether candidate matches the hash stored on u.
func (g *Guard) Verify(candidate string, u *models.User) bool {
	if u == nil || u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

func (g *Guard) hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: empty password", ErrHashFailed)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), g.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashFailed, err)
	}
	return string(b), nil
}
