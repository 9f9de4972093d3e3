package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("STOCKMENTOR_RAPIDAPI_KEY", "abc123")
	p := NewEnvProvider("stockmentor")

	assert.Equal(t, "STOCKMENTOR_RAPIDAPI_KEY", p.EnvKey("rapidapi_key"))

	s, err := p.GetSecret(context.Background(), "rapidapi_key")
	require.NoError(t, err)
	assert.Equal(t, "abc123", s.String())
	assert.Equal(t, "STOCKMENTOR_RAPIDAPI_KEY", s.Source)

	_, err = p.GetSecret(context.Background(), "openai_api_key")
	assert.True(t, errors.Is(err, ErrSecretNotFound))

	all, err := p.GetSecrets(context.Background(), []string{"rapidapi_key", "openai_api_key"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "abc123", all["rapidapi_key"].String())

	t.Setenv("STOCKMENTOR_OPENAI_API_KEY", "")
	all, err = p.GetSecrets(context.Background(), []string{"openai_api_key"})
	require.NoError(t, err)
	assert.Empty(t, all, "empty variables count as unset")
}

func TestRedactor(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("f00dfeedcafe")

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"dsn", "dial postgres://app:hunter2@db:5432/stocks failed", "hunter2"},
		{"header", "X-RapidAPI-Key: 0123456789abcdef", "0123456789abcdef"},
		{"openai", "using sk-abcdefghijklmnopqrstuvwxyz123456", "sk-abcdefghijklmnopqrstuvwxyz123456"},
		{"bearer", "Authorization: Bearer tok.en-value", "tok.en-value"},
		{"exact", "key f00dfeedcafe rejected", "f00dfeedcafe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.RedactString(tt.input)
			assert.NotContains(t, out, tt.leak)
			assert.Contains(t, out, "[REDACTED]")
		})
	}

	assert.Equal(t, "ticker AAPL period 1mo", r.RedactString("ticker AAPL period 1mo"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "****6789", Mask("0123456789"))
}
