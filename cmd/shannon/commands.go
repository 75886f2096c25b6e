package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"shannon/internal/config"
	"shannon/internal/database"
	"shannon/internal/database/migration"
	handlers "shannon/internal/http/handler"
	"shannon/internal/http/middleware"
	"shannon/internal/logger"
	"shannon/internal/model"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "shannon",
		Short:        "Find DCA buy/sell signals for Binance spot pairs.",
		SilenceUsage: true,
	}
	root.AddCommand(
		newSignalsCmd(),
		newPairsCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newPruneCmd(),
	)
	return root
}

// withApp loads configuration, lets mutate adjust it, wires the app and runs fn.
func withApp(cmd *cobra.Command, opts appOptions, mutate func(*config.AppConfig), fn func(context.Context, *app) error) error {
	cfg := config.Load()
	if mutate != nil {
		mutate(cfg)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			a.log.Warn("shutdown failed", "error", err)
		}
	}()
	return fn(ctx, a)
}

func newSignalsCmd() *cobra.Command {
	var (
		pairs    []string
		interval string
		limit    int
	)
	cmd := &cobra.Command{
		Use:     "dca-signals",
		Aliases: []string{"dca_signals"},
		Short:   "Check every configured pair for DCA signals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mutate := func(cfg *config.AppConfig) {
				if len(pairs) > 0 {
					cfg.Strategy.Pairs = model.ParsePairs(pairs)
				}
				if interval != "" {
					cfg.Binance.KlineInterval = model.KlineInterval(interval)
				}
				if limit > 0 {
					cfg.Binance.KlineLimit = limit
				}
			}
			return withApp(cmd, appOptions{withDatabase: true}, mutate, func(ctx context.Context, a *app) error {
				return printSignals(ctx, cmd.OutOrStdout(), a)
			})
		},
	}
	cmd.Flags().StringSliceVar(&pairs, "pairs", nil, "pairs to check (default: configured universe)")
	cmd.Flags().StringVar(&interval, "interval", "", "kline interval, e.g. 1d or 4h")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of candles to evaluate")
	return cmd
}

func printSignals(ctx context.Context, w io.Writer, a *app) error {
	fmt.Fprintln(w, "Checking signals...")

	report, err := a.signals.Scan(ctx, nil)
	if err != nil {
		return err
	}

	if len(report.Signals) > 0 {
		fmt.Fprintln(w, "\nFound signals:")
		for _, sig := range report.Signals {
			fmt.Fprintln(w, sig)
		}
	} else {
		fmt.Fprintln(w, "\nNo signals found.")
	}
	fmt.Fprintln(w, "Done")
	return nil
}

func newPairsCmd() *cobra.Command {
	var quote string
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "List exchange pairs for a quote asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, appOptions{}, nil, func(ctx context.Context, a *app) error {
				symbols, err := a.signals.Pairs(ctx, quote)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, s := range symbols {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.Symbol, s.BaseAsset, s.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&quote, "quote", "USDT", "quote asset")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history PAIR...",
		Short: "Download the historic candles for pairs into the prices cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, appOptions{}, nil, func(ctx context.Context, a *app) error {
				w := cmd.OutOrStdout()
				for _, p := range model.ParsePairs(args) {
					candles, err := a.market.HistoricCandles(ctx, p)
					if err != nil {
						return err
					}
					if len(candles) == 0 {
						fmt.Fprintf(w, "%s: no candles\n", p)
						continue
					}
					fmt.Fprintf(w, "%s: %d candles from %s to %s\n", p, len(candles),
						candles[0].Date().Format(time.DateOnly),
						candles[len(candles)-1].Date().Format(time.DateOnly))
				}
				return nil
			})
		},
	}
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the signals schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if !cfg.Database.Enabled() {
				return errors.New("no database configured: set DB_HOST")
			}
			log, _ := logger.Setup(cfg.Log.Level, cfg.Log.Timezone)

			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return migration.EnsureMigrated(cmd.Context(), db, log, cfg.Database.Host)
		},
	}
}

func newPruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete persisted signals older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, appOptions{withDatabase: true}, nil, func(ctx context.Context, a *app) error {
				n, err := a.signals.Prune(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d signals\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "age cutoff")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, appOptions{withDatabase: true}, nil, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	prom, err := middleware.NewPrometheusMiddleware(a.registry, "/healthz")
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	srv := newServer(a, prom)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info("http server listening", "addr", addr)
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info("http server shutting down")
		return srv.ShutdownWithTimeout(shutdownTimeout)
	}
}

func newServer(a *app, prom *middleware.PrometheusMiddleware) *fiber.App {
	srv := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
		AppName:               "shannon",
	})

	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	srv.Use(middleware.RequestID())
	srv.Use(otelfiber.Middleware())
	srv.Use(prom.Handler())
	srv.Use(middleware.Logger(a.loc))

	handlers.RegisterRoutes(srv, a.db, a.signals, a.registry)
	return srv
}
