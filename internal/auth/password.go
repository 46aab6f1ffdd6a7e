// Package auth provides the stateless security primitives: password hashing
// and strength rules, and the signer for access/refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when configuration does not set
// one. Cost 12 keeps a single hash around 250ms on current hardware: slow
// enough against offline brute force, fast enough for interactive login.
const DefaultBcryptCost = 12

// specialChars is the fixed set a password must draw at least one symbol from.
const specialChars = "@$!%*?#&"

// ErrWeakPassword is returned by ValidateStrength with a human-readable
// reason wrapped around it.
var ErrWeakPassword = errors.New("weak password")

// HashPassword returns a bcrypt hash using the given cost. A cost outside
// bcrypt's supported range falls back to DefaultBcryptCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password. A
// malformed digest is reported as a mismatch, never as an error.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidateStrength checks the password rules: 8 to 72 characters with at
// least one uppercase letter, one lowercase letter, one digit and one of
// @$!%*?#&. It returns the password unchanged on success.
func ValidateStrength(password string) (string, error) {
	if len(password) < 8 {
		return "", werr("must contain at least 8 characters")
	}
	if len(password) > 72 {
		return "", werr("must not exceed 72 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return "", werr("must contain at least one uppercase letter")
	case !lower:
		return "", werr("must contain at least one lowercase letter")
	case !digit:
		return "", werr("must contain at least one digit")
	case !special:
		return "", werr("must contain at least one special character: @, $, !, %, *, ?, #, &")
	}
	return password, nil
}

func werr(reason string) error {
	return fmt.Errorf("%w: password %s", ErrWeakPassword, reason)
}
