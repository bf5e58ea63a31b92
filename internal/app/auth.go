package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthDisabled       = errors.New("admin authentication is not configured")
)

// AdminRole is the only role the back office knows.
const AdminRole = "admin"

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(plain string) (string, error) {
	if len(plain) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *appService) AuthEnabled() bool {
	return s.adminPasswordHash != ""
}

func (s *appService) AuthenticateAdmin(ctx context.Context, username, password string) (*AdminSession, error) {
	if !s.AuthEnabled() {
		return nil, ErrAuthDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUsername)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	pwErr := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password))
	if !userOK || pwErr != nil {
		return nil, ErrInvalidCredentials
	}
	return &AdminSession{Username: s.adminUsername, Role: AdminRole, IssuedAt: s.now()}, nil
}
