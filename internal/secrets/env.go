package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables named
// <PREFIX>_<KEY>, upper-cased
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an environment secret provider
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix, lookup: os.LookupEnv}
}

// GetSecret retrieves a secret from the environment
func (p *EnvProvider) GetSecret(_ context.Context, key string) (*Secret, error) {
	envKey := p.EnvKey(key)
	value, ok := p.lookup(envKey)
	if !ok || value == "" {
		return nil, &NotFoundError{Key: key, Provider: "environment"}
	}
	return &Secret{Key: key, Source: envKey, Value: []byte(value)}, nil
}

// GetSecrets retrieves the keys that are set
func (p *EnvProvider) GetSecrets(ctx context.Context, keys []string) (map[string]*Secret, error) {
	results := make(map[string]*Secret, len(keys))
	for _, key := range keys {
		if secret, err := p.GetSecret(ctx, key); err == nil {
			results[key] = secret
		}
	}
	return results, nil
}

// EnvKey returns the variable name consulted for key
func (p *EnvProvider) EnvKey(key string) string {
	if p.prefix == "" {
		return strings.ToUpper(key)
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(p.prefix), strings.ToUpper(key))
}
