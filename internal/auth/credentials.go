// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/genoscope/internal/config"
)

// CredentialStore validates the admin user's login credentials. The password
// is configured as a bcrypt hash; a plaintext password never lives in config.
type CredentialStore struct {
	username     string
	passwordHash []byte
}

// NewCredentialStore creates the store from the security configuration.
func NewCredentialStore(cfg config.SecurityConfig) (*CredentialStore, error) {
	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("admin username is required in jwt mode")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("admin password hash is required in jwt mode")
	}
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a valid bcrypt hash: %w", err)
	}
	return &CredentialStore{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
	}, nil
}

// Validate checks a username and password pair. Both comparisons are
// constant-time.
func (s *CredentialStore) Validate(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil

	if !usernameMatch || !passwordMatch {
		return fmt.Errorf("invalid username or password")
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
// Cost 12 balances verification latency against brute-force resistance.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
