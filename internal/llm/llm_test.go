package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/client"
)

func noRetryPool() *client.Pool {
	cfg := client.DefaultConfig("openai")
	cfg.MaxRetries = 0
	return client.NewPool(cfg)
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "explain AAPL", req.Messages[0].Content)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Apple makes phones.  "}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL}, noRetryPool())
	require.NoError(t, err)

	answer, err := c.Complete(context.Background(), "explain AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple makes phones.", answer)
	assert.Equal(t, "openai", c.Name())
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"empty choices", http.StatusOK, `{"choices":[]}`, ErrNoCompletion},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, ErrNoCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL}, noRetryPool())
			require.NoError(t, err)
			_, err = c.Complete(context.Background(), "hi")
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestOpenAI_APIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL}, noRetryPool())
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNew_Factory(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{Provider: "static"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "static", c.Name())

	_, err = New(ctx, Config{Provider: "openai"}, nil)
	assert.Error(t, err, "missing key")

	_, err = New(ctx, Config{Provider: "gemini"}, nil)
	assert.Error(t, err, "missing key")

	g, err := New(ctx, Config{Provider: "gemini", APIKey: "test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())

	_, err = New(ctx, Config{Provider: "llama"}, nil)
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := NewStatic().
		Answer("stock-market fact", "Stocks trade in lots.").
		Answer("fact", "generic")

	got, err := s.Complete(context.Background(), "Give me one short stock-market fact")
	require.NoError(t, err)
	assert.Equal(t, "Stocks trade in lots.", got)

	got, err = s.Complete(context.Background(), "unrelated")
	require.NoError(t, err)
	assert.Equal(t, s.Fallback, got)
	assert.Len(t, s.Prompts(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Complete(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
