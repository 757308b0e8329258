package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretVerifier checks the shared secret clients send with mutating
// requests. Only a bcrypt hash of the secret is kept in memory.
type SecretVerifier struct {
	hash []byte
}

// NewSecretVerifier hashes secret with the given bcrypt cost. A secret that
// already is a bcrypt hash is used as is.
func NewSecretVerifier(secret string, cost int) (*SecretVerifier, error) {
	if secret == "" {
		return nil, errors.New("empty secret")
	}
	if _, err := bcrypt.Cost([]byte(secret)); err == nil {
		return &SecretVerifier{hash: []byte(secret)}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	return &SecretVerifier{hash: hash}, nil
}

func (v *SecretVerifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
}
