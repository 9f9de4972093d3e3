package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	httpapi "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/interfaces/http"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/interfaces/http/handlers"
	applog "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/log"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

// withApp wires the application for one command and tears it down after
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, r *renderer) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, newRenderer(cmd.OutOrStdout(), c.jsonOut))
}

// spin shows a spinner on an interactive stderr while fn runs
func spin(cmd *cobra.Command, message string, fn func() error) error {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s := applog.NewSpinner(f, message)
		s.Start()
		defer s.Stop()
	}
	return fn()
}

func (c *cli) runInsights(cmd *cobra.Command, args []string) error {
	period, _ := cmd.Flags().GetString("period")
	return c.withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
		var rep *insights.Report
		err := spin(cmd, "Fetching "+args[0]+" and asking the AI", func() error {
			var err error
			rep, err = a.svc.Insights(ctx, args[0], period)
			return err
		})
		if err != nil {
			return err
		}
		return r.report(rep)
	})
}

func (c *cli) runQuote(cmd *cobra.Command, args []string) error {
	return c.withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
		snap, err := a.svc.Quote(ctx, args[0])
		if err != nil {
			return err
		}
		return r.snapshot(snap)
	})
}

func (c *cli) runFact(cmd *cobra.Command, _ []string) error {
	return c.withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
		fact, err := a.svc.Fact(ctx)
		if err != nil {
			return err
		}
		return r.fact(fact)
	})
}

func (c *cli) runCacheClear(cmd *cobra.Command, _ []string) error {
	return c.withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
		n, err := a.svc.ClearCache(ctx)
		if err != nil {
			return err
		}
		return r.cleared(n)
	})
}

func (c *cli) runReports(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	limit, _ := flags.GetInt("limit")
	ticker, _ := flags.GetString("ticker")
	since, _ := flags.GetString("since")
	until, _ := flags.GetString("until")
	top, _ := flags.GetInt("top")

	var tr persistence.TimeRange
	ranged := since != "" || until != "" || top > 0
	if ranged {
		var err error
		if tr, err = persistence.ParseTimeRange(since, until, time.Now()); err != nil {
			return err
		}
	}

	return c.withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
		err := c.listReports(ctx, a, r, ticker, limit, top, ranged, tr)
		if errors.Is(err, persistence.ErrDisabled) {
			return fmt.Errorf("%w: set %s or enable database in the config", err, "STOCKMENTOR_PG_DSN")
		}
		return err
	})
}

func (c *cli) listReports(ctx context.Context, a *app, r *renderer, ticker string, limit, top int,
	ranged bool, tr persistence.TimeRange) error {

	switch {
	case ticker != "":
		rec, err := a.svc.LatestReport(ctx, ticker)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no archived report for %s", ticker)
		}
		return r.archived(rec)
	case top > 0:
		ranked, err := a.svc.PopularTickers(ctx, tr, top)
		if err != nil {
			return err
		}
		return r.popular(tr, ranked)
	case ranged:
		recs, err := a.svc.ReportsBetween(ctx, tr)
		if err != nil {
			return err
		}
		if len(recs) > limit {
			recs = recs[:limit]
		}
		return r.reports(recs)
	default:
		recs, err := a.svc.Reports(ctx, limit)
		if err != nil {
			return err
		}
		return r.reports(recs)
	}
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	hc := c.cfg.HTTP
	if host != "" {
		hc.Host = host
	}
	if port != 0 {
		hc.Port = port
	}

	return c.withApp(cmd, func(ctx context.Context, a *app, _ *renderer) error {
		opts := handlers.Options{
			Version:       version,
			WatchInterval: hc.WatchInterval,
			Breakers:      a.breakers,
			Budgets:       a.budgets,
			Limiters:      a.limiters,
			OnWatch:       a.metrics.ActiveWatchers.Add,
		}
		if a.db.IsEnabled() {
			opts.Database = a.db.Health()
		}

		server := httpapi.NewServer(httpapi.ServerConfig{
			Host:           hc.Host,
			Port:           hc.Port,
			ReadTimeout:    hc.ReadTimeout,
			WriteTimeout:   hc.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: hc.RequestTimeout,
		}, handlers.NewHandlers(a.svc, opts), a.metrics.Handler())
		if err := server.Listen(); err != nil {
			return err
		}

		serverErr := make(chan error, 1)
		go func() {
			log.Info().
				Str("health", fmt.Sprintf("http://%s/health", server.Address())).
				Str("metrics", fmt.Sprintf("http://%s/metrics", server.Address())).
				Str("insights", fmt.Sprintf("http://%s/api/v1/insights/{ticker}", server.Address())).
				Msg("API endpoints available")
			serverErr <- server.Start()
		}()

		select {
		case err := <-serverErr:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-serverErr
	})
}
