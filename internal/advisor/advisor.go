// Package advisor turns market data into beginner-friendly explanations
// using an LLM, caching the answers that are stable for an hour.
package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/llm"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
)

// ObserveFunc receives the outcome of every LLM call
type ObserveFunc func(kind, backend string, d time.Duration, err error)

// Advisor asks the LLM for explanations
type Advisor struct {
	llm     llm.Client
	loader  *cache.Loader
	observe ObserveFunc
}

// New creates an advisor. Answers are cached through loader.
func New(client llm.Client, loader *cache.Loader) *Advisor {
	return &Advisor{llm: client, loader: loader}
}

// OnCompletion registers an observer for LLM calls
func (a *Advisor) OnCompletion(fn ObserveFunc) {
	a.observe = fn
}

// Backend names the LLM in use
func (a *Advisor) Backend() string {
	return a.llm.Name()
}

func (a *Advisor) complete(ctx context.Context, kind, prompt string) (string, error) {
	start := time.Now()
	answer, err := a.llm.Complete(ctx, prompt)
	d := time.Since(start)
	if a.observe != nil {
		a.observe(kind, a.llm.Name(), d, err)
	}
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Str("backend", a.llm.Name()).Msg("LLM completion failed")
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	return answer, nil
}

// ExplainMetrics explains each key metric in simple terms, with the metric
// names bolded
func (a *Advisor) ExplainMetrics(ctx context.Context, ticker string, metrics market.KeyMetrics) (string, error) {
	key := fmt.Sprintf("explain:%s:%s", ticker, digest(metrics))
	answer, err := cache.GetOrLoad(ctx, a.loader, key, cache.AnswerTTL, func(ctx context.Context) (string, error) {
		return a.complete(ctx, "explain", explainPrompt(ticker, metrics))
	})
	if err != nil {
		return "", err
	}
	return BoldTerms(answer), nil
}

// SummarizeTrend describes the short-term trend and risks in 2-3 sentences
func (a *Advisor) SummarizeTrend(ctx context.Context, ticker string, history *market.History) (string, error) {
	recent := market.RecentPrices(history, market.RecentRows)
	key := fmt.Sprintf("summary:%s:%s", ticker, digest(recent))
	return cache.GetOrLoad(ctx, a.loader, key, cache.AnswerTTL, func(ctx context.Context) (string, error) {
		return a.complete(ctx, "summary", summaryPrompt(ticker, recent))
	})
}

// Sentiment gives a casual should-I-buy reaction. It is never cached so
// each lookup gets a fresh take.
func (a *Advisor) Sentiment(ctx context.Context, ticker string, history *market.History) (string, error) {
	recent := market.RecentPrices(history, market.RecentRows)
	return a.complete(ctx, "sentiment", sentimentPrompt(ticker, recent))
}

// RandomFact returns a fun stock-market fact for beginners
func (a *Advisor) RandomFact(ctx context.Context) (string, error) {
	return cache.GetOrLoad(ctx, a.loader, "fact", cache.AnswerTTL, func(ctx context.Context) (string, error) {
		return a.complete(ctx, "fact", factPrompt)
	})
}

func digest(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "0"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
