package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/client"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini generates answers with Google's Gemini API
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini backend. Requests go through pool when one is
// given so its limiter, breaker and budget apply.
func NewGemini(ctx context.Context, cfg Config, pool *client.Pool) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if pool != nil {
		clientCfg.HTTPClient = &http.Client{Transport: pool.Transport()}
	}
	c, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: c, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Name identifies the backend in logs and metrics
func (g *Gemini) Name() string { return "gemini" }

// Complete sends prompt as a single user turn
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", ErrNoCompletion
	}
	log.Debug().
		Str("model", g.model).
		Int("response_len", len(answer)).
		Dur("duration", time.Since(start)).
		Msg("Gemini completion")
	return answer, nil
}
