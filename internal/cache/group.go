// Package cache provides an in-process memoizing cache that coalesces
// concurrent calls for the same key and keeps successful results for a fixed
// time to live.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"shannon/internal/metrics"
)

// Group memoizes the results of keyed loads. Concurrent callers of Do with the
// same key share one load; a successful value is served from memory until its
// ttl elapses or it is evicted as least recently used. Errors are never cached.
type Group[V any] struct {
	name    string
	lru     *expirable.LRU[string, V]
	flight  singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	quiet   bool
}

// Option configures a Group.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	quiet   bool
}

// WithLogger sets the logger used for hit/miss debug records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records hits and misses under the group name.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Quiet disables hit/miss logging.
func Quiet() Option {
	return func(o *options) { o.quiet = true }
}

// NewGroup creates a Group holding at most size entries for ttl each.
func NewGroup[V any](name string, size int, ttl time.Duration, opts ...Option) *Group[V] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if size <= 0 {
		size = 1
	}
	return &Group[V]{
		name:    name,
		lru:     expirable.NewLRU[string, V](size, nil, ttl),
		logger:  o.logger.With("component", "cache", "cache", name),
		metrics: o.metrics,
		quiet:   o.quiet,
	}
}

// Do returns the cached value for key or runs load to produce it.
//
// The load runs detached from the caller's cancellation so that one caller
// giving up does not fail the others waiting on the same key; each caller still
// returns as soon as its own ctx is done.
func (g *Group[V]) Do(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := g.lru.Get(key); ok {
		g.record(key, true)
		return v, nil
	}
	g.record(key, false)

	ch := g.flight.DoChan(key, func() (any, error) {
		if v, ok := g.lru.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		g.lru.Add(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Peek returns a cached value without refreshing its recency.
func (g *Group[V]) Peek(key string) (V, bool) {
	return g.lru.Peek(key)
}

// Forget drops key from the cache.
func (g *Group[V]) Forget(key string) {
	g.lru.Remove(key)
	g.flight.Forget(key)
}

// Len returns the number of live entries.
func (g *Group[V]) Len() int {
	return g.lru.Len()
}

// Purge drops every entry.
func (g *Group[V]) Purge() {
	g.lru.Purge()
}

func (g *Group[V]) record(key string, hit bool) {
	g.metrics.CacheResult(g.name, hit)
	if g.quiet {
		return
	}
	if hit {
		g.logger.Debug("cache hit", "key", key)
	} else {
		g.logger.Debug("cache miss", "key", key)
	}
}
