package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned for a missing or wrong machine key
var ErrInvalidAPIKey = errors.New("invalid api key")

// minAPIKeyLength rejects keys too short to resist guessing
const minAPIKeyLength = 24

// APIKeyVerifier checks the machine key presented by internal callers
// (external cron, the billing bridge) against a bcrypt hash.
type APIKeyVerifier struct {
	hash []byte
}

// NewAPIKeyVerifier creates a verifier. An empty hash disables every
// internal endpoint.
func NewAPIKeyVerifier(hash string) (*APIKeyVerifier, error) {
	if hash == "" {
		return &APIKeyVerifier{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("internal api key hash is not a bcrypt hash: %w", err)
	}
	return &APIKeyVerifier{hash: []byte(hash)}, nil
}

// Enabled reports whether a key hash is configured
func (v *APIKeyVerifier) Enabled() bool {
	return v != nil && len(v.hash) > 0
}

// Verify returns nil when key matches the configured hash
func (v *APIKeyVerifier) Verify(key string) error {
	if !v.Enabled() || key == "" {
		return ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}

// HashAPIKey produces the value for jwt.internal_api_key_hash
func HashAPIKey(key string) (string, error) {
	if len(key) < minAPIKeyLength {
		return "", fmt.Errorf("api key must be at least %d characters", minAPIKeyLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}
