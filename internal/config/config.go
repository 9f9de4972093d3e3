// Package config loads stockmentor settings from YAML with secrets taken
// from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/infrastructure/db"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market/rapidapi"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/secrets"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "STOCKMENTOR"

// DefaultPath is read when no --config flag is given
const DefaultPath = "config/stockmentor.yaml"

// Config is the complete application configuration
type Config struct {
	LogLevel string         `yaml:"log_level"`
	RapidAPI ProviderConfig `yaml:"rapidapi"`
	LLM      LLMConfig      `yaml:"llm"`
	Budget   BudgetConfig   `yaml:"budget"`
	Cache    CacheConfig    `yaml:"cache"`
	Database db.Config      `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ProviderConfig represents configuration for the market data provider
type ProviderConfig struct {
	Host           string        `yaml:"host"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	RPS            float64       `yaml:"rps"`          // Requests per second
	Burst          int           `yaml:"burst"`        // Burst capacity
	DailyBudget    int64         `yaml:"daily_budget"` // Max requests per UTC day, 0 for unlimited
	TimeoutMS      int           `yaml:"timeout_ms"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	Backoff        BackoffConfig `yaml:"backoff_ms"`
	Circuit        CircuitConfig `yaml:"circuit"`
}

// LLMConfig selects and tunes the completion backend
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini or static
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	TimeoutMS   int     `yaml:"timeout_ms"`
	RPS         float64 `yaml:"rps"`
	DailyBudget int64   `yaml:"daily_budget"`
}

// BackoffConfig represents exponential backoff configuration
type BackoffConfig struct {
	Base int `yaml:"base"` // Base backoff in milliseconds
	Max  int `yaml:"max"`  // Maximum backoff in milliseconds
}

// CircuitConfig represents circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"` // Consecutive failures to open circuit
	TimeoutMS        int    `yaml:"timeout_ms"`        // Open duration before a trial request
}

// BudgetConfig represents daily budget management
type BudgetConfig struct {
	WarnThreshold float64 `yaml:"warn_threshold"` // Warn at this fraction of daily budget
	ResetHour     int     `yaml:"reset_hour"`     // UTC hour to reset budgets (0-23)
}

// CacheConfig selects the cache backend
type CacheConfig struct {
	Backend    string            `yaml:"backend"` // memory or redis
	MaxEntries int               `yaml:"max_entries"`
	Redis      cache.RedisConfig `yaml:"redis"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	WatchInterval  time.Duration `yaml:"watch_interval"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel: "info",
		RapidAPI: ProviderConfig{
			Host:           rapidapi.DefaultHost,
			BaseURL:        rapidapi.DefaultBaseURL,
			RPS:            2,
			Burst:          2,
			DailyBudget:    500,
			TimeoutMS:      10000,
			MaxConcurrency: 4,
			Backoff:        BackoffConfig{Base: 250, Max: 4000},
			Circuit:        CircuitConfig{FailureThreshold: 5, TimeoutMS: 30000},
		},
		LLM: LLMConfig{
			Provider:  "openai",
			TimeoutMS: 60000,
			RPS:       1,
		},
		Budget: BudgetConfig{WarnThreshold: 0.8, ResetHour: 0},
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 1024,
			Redis:      cache.RedisConfig{Addr: "localhost:6379", Prefix: cache.DefaultPrefix},
		},
		Database: db.DefaultConfig(),
		HTTP: HTTPConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   90 * time.Second,
			RequestTimeout: 75 * time.Second,
			WatchInterval:  time.Minute,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file at DefaultPath is not an error.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.ApplyEnv(ctx, secrets.NewEnvProvider(EnvPrefix)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from p. A Postgres DSN enables
// the archive and a Redis address selects the Redis cache.
func (c *Config) ApplyEnv(ctx context.Context, p secrets.Provider) error {
	overrides := []struct {
		key string
		dst *string
	}{
		{"rapidapi_key", &c.RapidAPI.APIKey},
		{"llm_provider", &c.LLM.Provider},
		{"redis_addr", &c.Cache.Redis.Addr},
		{"pg_dsn", &c.Database.DSN},
	}
	keys := []string{"openai_api_key", "gemini_api_key"}
	for _, o := range overrides {
		keys = append(keys, o.key)
	}

	found, err := p.GetSecrets(ctx, keys)
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}
	for _, o := range overrides {
		if s, ok := found[o.key]; ok && len(s.Value) > 0 {
			*o.dst = s.String()
		}
	}

	// the key matching the selected backend wins over the file
	llmKey := "openai_api_key"
	if strings.EqualFold(c.LLM.Provider, "gemini") {
		llmKey = "gemini_api_key"
	}
	if s, ok := found[llmKey]; ok && len(s.Value) > 0 {
		c.LLM.APIKey = s.String()
	}

	if _, ok := found["redis_addr"]; ok {
		c.Cache.Backend = "redis"
	}
	if _, ok := found["pg_dsn"]; ok {
		c.Database.Enabled = true
	}
	return nil
}

// Validate ensures the configuration is valid and consistent
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.RapidAPI.BaseURL == "" || c.RapidAPI.Host == "" {
		return fmt.Errorf("rapidapi: host and base_url are required")
	}
	if c.RapidAPI.RPS <= 0 {
		return fmt.Errorf("rapidapi: rps must be positive")
	}
	if c.RapidAPI.Burst < 1 {
		return fmt.Errorf("rapidapi: burst must be at least 1")
	}
	if c.RapidAPI.DailyBudget < 0 || c.LLM.DailyBudget < 0 {
		return fmt.Errorf("daily_budget cannot be negative")
	}
	if c.RapidAPI.Backoff.Base > c.RapidAPI.Backoff.Max {
		return fmt.Errorf("rapidapi: backoff base (%d) cannot exceed max (%d)", c.RapidAPI.Backoff.Base, c.RapidAPI.Backoff.Max)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini", "static":
	default:
		return fmt.Errorf("llm: unknown provider %q", c.LLM.Provider)
	}

	if c.Budget.WarnThreshold <= 0 || c.Budget.WarnThreshold > 1 {
		return fmt.Errorf("budget: warn_threshold must be in (0, 1]")
	}
	if c.Budget.ResetHour < 0 || c.Budget.ResetHour > 23 {
		return fmt.Errorf("budget: reset_hour must be 0-23")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache: redis backend requires an address")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}

	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database: dsn is required when enabled")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http: invalid port %d", c.HTTP.Port)
	}
	if c.HTTP.WatchInterval < time.Second {
		return fmt.Errorf("http: watch_interval must be at least 1s")
	}
	return nil
}

// Redacted returns a copy safe to log
func (c *Config) Redacted() Config {
	out := *c
	out.RapidAPI.APIKey = secrets.Mask(c.RapidAPI.APIKey)
	out.LLM.APIKey = secrets.Mask(c.LLM.APIKey)
	out.Cache.Redis.Password = secrets.Mask(c.Cache.Redis.Password)
	out.Database.DSN = secrets.NewRedactor().RedactString(c.Database.DSN)
	return out
}

// Secrets lists the configured secret values for log redaction
func (c *Config) Secrets() []string {
	return []string{c.RapidAPI.APIKey, c.LLM.APIKey, c.Cache.Redis.Password}
}

// Duration converts a millisecond setting
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
