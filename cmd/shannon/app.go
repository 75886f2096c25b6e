package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"shannon/internal/cache"
	"shannon/internal/config"
	"shannon/internal/database"
	"shannon/internal/exchange/binance"
	"shannon/internal/logger"
	"shannon/internal/metrics"
	"shannon/internal/model"
	"shannon/internal/otel"
	"shannon/internal/repository/postgres"
	"shannon/internal/service"
	"shannon/internal/storage"
	"shannon/internal/strategy"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.AppConfig
	log      *slog.Logger
	loc      *time.Location
	registry *prometheus.Registry
	db       *sql.DB
	market   *binance.SignalClient
	signals  service.SignalService
	shutdown otel.ShutdownFunc
}

type appOptions struct {
	// withDatabase opens (and migrates) the database when one is configured.
	withDatabase bool
}

func newApp(ctx context.Context, cfg *config.AppConfig, opts appOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, loc := logger.Setup(cfg.Log.Level, cfg.Log.Timezone)

	shutdown, err := otel.Init(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store, archive, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	api := binance.NewClient(cfg.Binance, binance.WithMetrics(m), binance.WithLogger(log))
	market := binance.NewSignalClient(api, store, cfg.Binance, cfg.Cache, m, log)

	stratOpts := []strategy.Option{
		strategy.WithMaxParallelRequests(cfg.Strategy.MaxParallelRequests),
		strategy.WithRSILength(cfg.Strategy.RSILength),
		strategy.WithBandPct(cfg.Strategy.BandPct),
		strategy.WithLogger(log),
	}
	if ttl := cfg.Strategy.TaskCacheTTLSec; ttl > 0 && time.Duration(ttl)*time.Second != strategy.DefaultTaskTTL {
		stratOpts = append(stratOpts, strategy.WithTaskCache(
			cache.NewGroup[*model.PairSignal]("dca_pair_checks", 1024, time.Duration(ttl)*time.Second, cache.Quiet()),
		))
	}
	strat := strategy.NewDCAStrategy(market, stratOpts...)

	svcOpts := []service.Option{service.WithMetrics(m), service.WithLogger(log)}
	if archive != nil {
		svcOpts = append(svcOpts, service.WithArchive(archive))
	}

	var db *sql.DB
	if opts.withDatabase {
		db, err = database.OpenMigrated(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if db != nil {
			svcOpts = append(svcOpts, service.WithRepository(postgres.NewSignalPostgres(db)))
		}
	}

	return &app{
		cfg:      cfg,
		log:      log,
		loc:      loc,
		registry: reg,
		db:       db,
		market:   market,
		signals:  service.NewSignalService(strat, market, cfg.Strategy.Pairs, svcOpts...),
		shutdown: shutdown,
	}, nil
}

// openStorage returns the kline cache store and, when an object store is
// configured, the report archive. Stale cache entries are pruned on startup:
// the local prices directory is wiped once it is older than the max age, a
// bucket loses the individual objects past it.
func openStorage(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (storage.Storage, storage.Storage, error) {
	if cfg.MinIO.Enabled() {
		store, err := storage.NewMinIO(ctx, cfg.MinIO, cfg.Cache.PricesDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init object storage: %w", err)
		}
		archive, err := storage.NewMinIO(ctx, cfg.MinIO, "")
		if err != nil {
			return nil, nil, fmt.Errorf("init report archive: %w", err)
		}
		pruneStore(ctx, store, cfg, log)
		return store, archive, nil
	}

	store, err := storage.NewFile(cfg.Cache.PricesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init prices dir: %w", err)
	}
	pruneStore(ctx, store, cfg, log)
	return store, nil, nil
}

func pruneStore(ctx context.Context, store storage.Storage, cfg *config.AppConfig, log *slog.Logger) {
	if cfg.Cache.PricesMaxAgeSec <= 0 {
		return
	}
	n, err := store.Prune(ctx, time.Duration(cfg.Cache.PricesMaxAgeSec)*time.Second)
	if err != nil {
		log.Warn("prices cache prune failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("prices cache pruned", "deleted", n)
	}
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	return errors.Join(errs...)
}
