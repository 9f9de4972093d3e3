package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/config"
	applog "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/log"
)

const (
	appName = "stockmentor"
	version = "v1.0.0"
)

// cli holds the state shared by every subcommand
type cli struct {
	configPath string
	logLevel   string
	jsonOut    bool
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Beginner-friendly stock insights powered by an LLM",
		Version: version,
		Long: `stockmentor looks up a stock ticker, pulls its recent prices and key
metrics from Yahoo Finance (via RapidAPI) and asks an LLM to explain them
in plain language.

Set STOCKMENTOR_RAPIDAPI_KEY and STOCKMENTOR_OPENAI_API_KEY (or configure
llm.provider: gemini with STOCKMENTOR_GEMINI_API_KEY) before use.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	addGlobalFlags(rootCmd.PersistentFlags(), c)

	insightsCmd := &cobra.Command{
		Use:   "insights TICKER",
		Short: "Full report: chart, key metrics, explanation, trend and sentiment",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runInsights,
	}
	insightsCmd.Flags().String("period", "1mo", "History period (1d,5d,1mo,3mo,6mo,1y,2y,5y,10y,ytd,max)")

	quoteCmd := &cobra.Command{
		Use:   "quote TICKER",
		Short: "Show the eight key metrics for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runQuote,
	}

	factCmd := &cobra.Command{
		Use:   "fact",
		Short: "Print a fun stock-market fact",
		Args:  cobra.NoArgs,
		RunE:  c.runFact,
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache maintenance",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop all cached prices, quotes and answers",
		Args:  cobra.NoArgs,
		RunE:  c.runCacheClear,
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		Long:  "Serves /health, /metrics and the /api/v1 endpoints, including the /api/v1/watch/{ticker} websocket stream",
		Args:  cobra.NoArgs,
		RunE:  c.runServe,
	}
	serveCmd.Flags().String("host", "", "Listen host (defaults to http.host from config)")
	serveCmd.Flags().Int("port", 0, "Listen port (defaults to http.port from config)")

	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "List archived reports (requires database)",
		Args:  cobra.NoArgs,
		RunE:  c.runReports,
	}
	reportsCmd.Flags().Int("limit", 20, "Number of reports to list")
	reportsCmd.Flags().String("ticker", "", "Show the newest archived report for one ticker")
	reportsCmd.Flags().String("since", "", "Window start (RFC3339 or YYYY-MM-DD, default 7 days ago)")
	reportsCmd.Flags().String("until", "", "Window end (RFC3339 or YYYY-MM-DD, default now)")
	reportsCmd.Flags().Int("top", 0, "Rank the N most requested tickers in the window")

	rootCmd.AddCommand(insightsCmd, quoteCmd, factCmd, cacheCmd, serveCmd, reportsCmd)
	return rootCmd
}

func addGlobalFlags(fs *pflag.FlagSet, c *cli) {
	fs.StringVar(&c.configPath, "config", "", "Config file (default "+config.DefaultPath+" if present)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides config")
	fs.BoolVar(&c.jsonOut, "json", false, "Print JSON instead of formatted text")
}

// setup loads configuration and installs the logger
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context(), c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := applog.Setup(applog.Options{
		Level:   cfg.LogLevel,
		Out:     cmd.ErrOrStderr(),
		Secrets: cfg.Secrets(),
	}); err != nil {
		return err
	}
	c.cfg = cfg

	log.Debug().Interface("config", cfg.Redacted()).Msg("Configuration loaded")
	return nil
}
