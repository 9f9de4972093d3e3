package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/advisor"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/config"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/infrastructure/db"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/llm"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market/rapidapi"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/metrics"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/circuit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/client"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/ratelimit"
)

// app is the wired application graph
type app struct {
	cfg      *config.Config
	svc      *insights.Service
	metrics  *metrics.Registry
	db       *db.Manager
	breakers []*circuit.Breaker
	budgets  []*budget.Tracker
	limiters []*ratelimit.Limiter
	closers  []func() error
}

// unconfiguredSource stands in for the provider when no RapidAPI key is set,
// so commands that need no market data still run
type unconfiguredSource struct{ err error }

func (s unconfiguredSource) History(context.Context, string, market.Period) (*market.History, error) {
	return nil, s.err
}

func (s unconfiguredSource) Quote(context.Context, string) (*market.Quote, error) {
	return nil, s.err
}

// unconfiguredLLM answers every prompt with err when no API key is set
type unconfiguredLLM struct {
	name string
	err  error
}

func (u unconfiguredLLM) Complete(context.Context, string) (string, error) { return "", u.err }

func (u unconfiguredLLM) Name() string { return u.name }

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.NewRegistry()}

	c, err := a.newCache(ctx)
	if err != nil {
		return nil, err
	}
	loader := cache.NewLoader(c)
	loader.OnLookup(a.metrics.ObserveLookup)

	source, err := a.newSource()
	if err != nil {
		a.Close()
		return nil, err
	}

	backend, err := a.newLLM(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	adv := advisor.New(backend, loader)
	adv.OnCompletion(a.metrics.ObserveCompletion)

	opts := []insights.Option{insights.WithReportHook(a.metrics.ObserveReport)}
	manager, err := db.NewManager(ctx, cfg.Database)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("report archive: %w", err)
	}
	a.db = manager
	a.closers = append(a.closers, manager.Close)
	if manager.IsEnabled() {
		opts = append(opts, insights.WithArchive(manager.Reports()))
	}

	a.svc = insights.NewService(source, loader, adv, opts...)
	log.Debug().
		Str("cache", c.Stats().Backend).
		Str("llm", backend.Name()).
		Bool("archive", manager.IsEnabled()).
		Msg("Application wired")
	return a, nil
}

func (a *app) newCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.Cache.Backend != "redis" {
		return cache.NewMemory(a.cfg.Cache.MaxEntries), nil
	}
	r := cache.NewRedis(a.cfg.Cache.Redis)
	if err := r.Ping(ctx); err != nil {
		r.Close()
		log.Warn().Err(err).Str("addr", a.cfg.Cache.Redis.Addr).Msg("Redis unavailable, using in-memory cache")
		return cache.NewMemory(a.cfg.Cache.MaxEntries), nil
	}
	a.closers = append(a.closers, r.Close)
	return r, nil
}

// newPool builds an HTTP pool with its own limiter, breaker and budget
func (a *app) newPool(name string, rps float64, burst int, daily int64, cc config.CircuitConfig,
	benign func(error) bool, base client.Config) *client.Pool {

	breaker := circuit.NewBreaker(circuit.Config{
		Name:             name,
		FailureThreshold: cc.FailureThreshold,
		HalfOpenRequests: 1,
		Timeout:          config.Duration(cc.TimeoutMS),
		Benign:           benign,
	})
	tracker := budget.NewTracker(name, daily, a.cfg.Budget.ResetHour, a.cfg.Budget.WarnThreshold)
	limiter := ratelimit.NewLimiter(rps, burst)
	a.breakers = append(a.breakers, breaker)
	a.budgets = append(a.budgets, tracker)
	a.limiters = append(a.limiters, limiter)

	return client.NewPool(base,
		client.WithLimiter(limiter),
		client.WithBreaker(breaker),
		client.WithBudget(tracker),
		client.WithObserver(a.metrics.ObserveRequest),
	)
}

func (a *app) newSource() (market.Source, error) {
	rc := a.cfg.RapidAPI
	if rc.APIKey == "" {
		return unconfiguredSource{err: fmt.Errorf("RapidAPI key not configured: set %s_RAPIDAPI_KEY", config.EnvPrefix)}, nil
	}

	base := client.DefaultConfig("rapidapi")
	base.MaxConcurrency = rc.MaxConcurrency
	base.RequestTimeout = config.Duration(rc.TimeoutMS)
	base.BackoffBase = config.Duration(rc.Backoff.Base)
	base.BackoffMax = config.Duration(rc.Backoff.Max)

	pool := a.newPool("rapidapi", rc.RPS, rc.Burst, rc.DailyBudget, rc.Circuit, rapidapi.IsBenign, base)
	return rapidapi.New(rapidapi.Config{BaseURL: rc.BaseURL, Host: rc.Host, APIKey: rc.APIKey}, pool)
}

func (a *app) newLLM(ctx context.Context) (llm.Client, error) {
	lc := a.cfg.LLM
	if lc.APIKey == "" && !strings.EqualFold(lc.Provider, "static") {
		env := config.EnvPrefix + "_OPENAI_API_KEY"
		if strings.EqualFold(lc.Provider, "gemini") {
			env = config.EnvPrefix + "_GEMINI_API_KEY"
		}
		return unconfiguredLLM{name: lc.Provider, err: fmt.Errorf("LLM API key not configured: set %s", env)}, nil
	}

	base := client.DefaultConfig("llm")
	base.RequestTimeout = config.Duration(lc.TimeoutMS)
	base.MaxConcurrency = 3
	base.MaxRetries = 1

	pool := a.newPool("llm", lc.RPS, 3, lc.DailyBudget, a.cfg.RapidAPI.Circuit, llm.IsBenign, base)
	backend, err := llm.New(ctx, llm.Config{
		Provider: lc.Provider,
		APIKey:   lc.APIKey,
		Model:    lc.Model,
		BaseURL:  lc.BaseURL,
		Timeout:  config.Duration(lc.TimeoutMS),
	}, pool)
	if err != nil {
		return nil, fmt.Errorf("llm backend: %w", err)
	}
	return backend, nil
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Debug().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
