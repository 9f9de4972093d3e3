// Package secrets resolves API keys and connection strings from the
// environment and keeps them out of logs.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

// Provider resolves named secrets
type Provider interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (*Secret, error)

	// GetSecrets retrieves the keys that exist; missing keys are omitted
	GetSecrets(ctx context.Context, keys []string) (map[string]*Secret, error)
}

// Secret is a resolved secret value
type Secret struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	Value  []byte `json:"-"` // never serialized
}

// String returns the secret value
func (s *Secret) String() string {
	return string(s.Value)
}

// ErrSecretNotFound is matched by every NotFoundError
var ErrSecretNotFound = errors.New("secret not found")

// NotFoundError names the missing key and the provider asked
type NotFoundError struct {
	Key      string
	Provider string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret '%s' not found in provider '%s'", e.Key, e.Provider)
}

// Is lets errors.Is match ErrSecretNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrSecretNotFound
}
