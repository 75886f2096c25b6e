// Package service holds the signal use cases shared by the CLI and the HTTP API.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"shannon/internal/metrics"
	"shannon/internal/model"
	"shannon/internal/repository"
	"shannon/internal/storage"
	"shannon/internal/strategy"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	defaultQuoteAsset   = "USDT"
	reportsPrefix       = "reports"
)

var (
	ErrPairRequired     = errors.New("pair is required")
	ErrNotFound         = errors.New("signal not found")
	ErrHistoryDisabled  = errors.New("signal history is disabled: no database configured")
	ErrPairsUnavailable = errors.New("pair listing is unavailable")
)

var tracer = otel.Tracer("shannon/service")

// PairLister lists tradable symbols on the exchange.
type PairLister interface {
	Pairs(ctx context.Context, quoteAsset string) ([]model.SymbolInfo, error)
}

// ScanReport is the outcome of one scan. ReportKey is set when the report was
// archived.
type ScanReport struct {
	ID         string             `json:"id"`
	Pairs      []model.Pair       `json:"pairs"`
	Signals    []model.PairSignal `json:"signals"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	ReportKey  string             `json:"report_key,omitempty"`
}

// SignalListResult is a page of persisted signals.
type SignalListResult struct {
	Items []model.PairSignal `json:"data"`
	Total int                `json:"total"`
}

// SignalService defines the signal use cases.
type SignalService interface {
	// Scan checks pairs, or the configured defaults when pairs is empty, and
	// records every signal found.
	Scan(ctx context.Context, pairs []model.Pair) (*ScanReport, error)

	// History pages persisted signals, newest first. An empty pair matches all.
	History(ctx context.Context, pair string, limit, offset int) (*SignalListResult, error)

	// Latest returns the most recent persisted signal for pair.
	Latest(ctx context.Context, pair string) (*model.PairSignal, error)

	// Pairs lists exchange symbols quoted in quoteAsset.
	Pairs(ctx context.Context, quoteAsset string) ([]model.SymbolInfo, error)

	// Prune deletes persisted signals older than maxAge.
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

type signalService struct {
	strategy strategy.SignalStrategy
	lister   PairLister
	defaults []model.Pair
	repo     repository.SignalRepository
	archive  storage.Storage
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures the signal service.
type Option func(*signalService)

// WithRepository enables persistence of emitted signals.
func WithRepository(r repository.SignalRepository) Option {
	return func(s *signalService) { s.repo = r }
}

// WithArchive stores a JSON report of every scan under reports/.
func WithArchive(st storage.Storage) Option {
	return func(s *signalService) { s.archive = st }
}

// WithMetrics records emitted signals and scan durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *signalService) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *signalService) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *signalService) { s.logger = l }
}

// NewSignalService constructs a SignalService. lister may be nil, in which
// case Pairs returns ErrPairsUnavailable.
func NewSignalService(strat strategy.SignalStrategy, lister PairLister, defaults []model.Pair, opts ...Option) SignalService {
	s := &signalService{
		strategy: strat,
		lister:   lister,
		defaults: defaults,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "signal_service")
	return s
}

func (s *signalService) Scan(ctx context.Context, pairs []model.Pair) (*ScanReport, error) {
	if len(pairs) == 0 {
		pairs = s.defaults
	}

	ctx, span := tracer.Start(ctx, "signals.scan")
	defer span.End()
	span.SetAttributes(attribute.Int("scan.pairs", len(pairs)))

	report := &ScanReport{
		ID:        uuid.NewString(),
		Pairs:     pairs,
		StartedAt: s.now().UTC(),
	}

	signals, err := s.strategy.CheckSignals(ctx, pairs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("check signals: %w", err)
	}

	for i := range signals {
		sig := &signals[i]
		sig.ID = uuid.NewString()
		sig.CreatedAt = s.now().UTC()
		if s.repo != nil {
			if _, err := s.repo.Create(ctx, sig); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("persist signal %s: %w", sig.Pair, err)
			}
		}
		s.metrics.Signal(sig.Pair, sig.Action())
	}

	report.Signals = signals
	report.FinishedAt = s.now().UTC()
	s.metrics.ScanFinished(report.FinishedAt.Sub(report.StartedAt))
	span.SetAttributes(attribute.Int("scan.signals", len(signals)))

	if s.archive != nil {
		if key, err := s.archiveReport(ctx, report); err != nil {
			s.logger.Warn("scan report archive failed", "scan_id", report.ID, "error", err)
		} else {
			report.ReportKey = key
		}
	}

	s.logger.Info("scan finished",
		"scan_id", report.ID,
		"pairs", len(pairs),
		"signals", len(signals),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

func (s *signalService) archiveReport(ctx context.Context, report *ScanReport) (string, error) {
	b, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	key := path.Join(reportsPrefix, report.StartedAt.Format(time.DateOnly), report.ID+".json")
	info, err := s.archive.Put(ctx, key, bytes.NewReader(b), storage.PutObjectOptions{
		Size:        int64(len(b)),
		ContentType: "application/json",
		Metadata:    map[string]string{"signals": fmt.Sprint(len(report.Signals))},
	})
	if err != nil {
		return "", err
	}
	return info.Key, nil
}

func (s *signalService) History(ctx context.Context, pair string, limit, offset int) (*SignalListResult, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{
		Pair:   strings.ToUpper(strings.TrimSpace(pair)),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return &SignalListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *signalService) Latest(ctx context.Context, pair string) (*model.PairSignal, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if pair == "" {
		return nil, ErrPairRequired
	}
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	sig, err := s.repo.LatestByPair(ctx, pair)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sig, nil
}

func (s *signalService) Pairs(ctx context.Context, quoteAsset string) ([]model.SymbolInfo, error) {
	if s.lister == nil {
		return nil, ErrPairsUnavailable
	}
	quoteAsset = strings.ToUpper(strings.TrimSpace(quoteAsset))
	if quoteAsset == "" {
		quoteAsset = defaultQuoteAsset
	}
	return s.lister.Pairs(ctx, quoteAsset)
}

func (s *signalService) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, ErrHistoryDisabled
	}
	n, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("prune signals: %w", err)
	}
	s.logger.Info("signals pruned", "deleted", n, "max_age", maxAge.String())
	return n, nil
}
