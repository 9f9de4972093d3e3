// Package llm wraps the chat-completion backends used to explain market
// data to beginners.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/client"
)

var (
	// ErrNoCompletion is returned when the backend answers without content
	ErrNoCompletion = errors.New("no completion returned")
	// ErrRateLimited is returned when the backend answers 429
	ErrRateLimited = errors.New("LLM rate limit exceeded (HTTP 429)")
)

// Client completes a single prompt
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and configures a backend
type Config struct {
	Provider string // openai, gemini or static
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the configured backend. The pool is used by HTTP backends.
func New(ctx context.Context, cfg Config, pool *client.Pool) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAI(cfg, pool)
	case "gemini":
		return NewGemini(ctx, cfg, pool)
	case "static":
		return NewStatic(), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// IsBenign reports errors caused by the request rather than the backend's
// health, such as 4xx answers
func IsBenign(err error) bool {
	return client.IsClientError(err)
}
