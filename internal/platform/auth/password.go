package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any username or password mismatch.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// HashPassword returns a bcrypt hash suitable for FAB_ADMIN_PASSWORD_HASH.
func HashPassword(password string, cost int) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("auth: password is required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Credentials holds the single back-office account.
type Credentials struct {
	Username     string
	PasswordHash string
}

// Verify compares the submitted username and password. The bcrypt comparison runs even when the
// username is wrong so both failures take the same time.
func (c Credentials) Verify(username, password string) error {
	if c.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(c.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
