package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidInput is returned when the password to hash is empty. Anything
// else, whitespace included, is a valid password; length policy belongs to
// the form schemas.
var ErrInvalidInput = errors.New("password must not be empty")

// HashPassword derives a one-way salted digest from a plaintext password.
// bcrypt embeds a fresh salt per call, so two digests of the same input
// differ but both verify.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored digest. Empty
// input never verifies.
func VerifyPassword(plain, digest string) bool {
	if plain == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
