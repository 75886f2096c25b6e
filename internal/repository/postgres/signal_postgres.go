package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"shannon/internal/model"
	"shannon/internal/repository"
)

// SignalPostgres is a PostgreSQL implementation of repository.SignalRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type SignalPostgres struct {
	db *sql.DB
}

// NewSignalPostgres creates a new SignalPostgres repository.
func NewSignalPostgres(db *sql.DB) *SignalPostgres {
	return &SignalPostgres{db: db}
}

var _ repository.SignalRepository = (*SignalPostgres)(nil)

const signalColumns = `id, pair, action, close_price, rsi, metadata, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*model.PairSignal, error) {
	var (
		s      model.PairSignal
		action string
		meta   []byte
	)
	if err := row.Scan(&s.ID, &s.Pair, &action, &s.ClosePrice, &s.RSI, &meta, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &s.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for signal %s: %w", s.ID, err)
	}
	s.ShouldBuy = action == model.ActionBuy
	s.ShouldSell = action == model.ActionSell
	return &s, nil
}

// Create inserts a new signal row and returns the stored record.
func (r *SignalPostgres) Create(ctx context.Context, sig *model.PairSignal) (*model.PairSignal, error) {
	meta, err := json.Marshal(sig.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	const q = `
		INSERT INTO signals (id, pair, action, close_price, rsi, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + signalColumns
	row := r.db.QueryRowContext(ctx, q,
		sig.ID,
		sig.Pair,
		sig.Action(),
		sig.ClosePrice,
		sig.RSI,
		meta,
		sig.CreatedAt,
	)
	return scanSignal(row)
}

// LatestByPair fetches the newest signal recorded for pair.
func (r *SignalPostgres) LatestByPair(ctx context.Context, pair string) (*model.PairSignal, error) {
	const q = `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE pair = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return scanSignal(r.db.QueryRowContext(ctx, q, pair))
}

// List returns signals using LIMIT/OFFSET pagination and a total count.
// An empty pair matches every pair.
func (r *SignalPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.PairSignal], error) {
	const qCount = `SELECT COUNT(*) FROM signals WHERE ($1 = '' OR pair = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, pq.Pair).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE ($1 = '' OR pair = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Pair, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.PairSignal, 0)
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.PairSignal]{
		Items: items,
		Total: total,
	}, nil
}

// DeleteOlderThan removes signals created before cutoff.
func (r *SignalPostgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM signals WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
