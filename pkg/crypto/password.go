package crypto

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrKeyNotConfigured is returned when no operator key hash is available.
var ErrKeyNotConfigured = errors.New("operator access key not configured")

// HashAccessKey hashes a plaintext operator access key using bcrypt.
func HashAccessKey(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// CompareAccessKey compares a plaintext key against a bcrypt hash.
func CompareAccessKey(hash, plain string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return ErrKeyNotConfigured
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
