package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a plaintext password does not match
// its stored hash.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	// Compare returns ErrPasswordMismatch on a wrong password and a
	// different error when the hash itself is unusable.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier verifies bcrypt hashes.
type BcryptVerifier struct{}

// NewBcryptVerifier returns a bcrypt PasswordVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("unusable password hash: %w", err)
	}
}
