package worker

import (
	"context"
	"log/slog"
	"time"
)

// SizeSource reports how many entries the query cache holds.
// *querycache.Cache and *querycache.Store satisfy it.
type SizeSource interface {
	Len() int
}

// Gauge receives the sampled entry count. prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
}

// CacheStatsWorker periodically publishes the query cache size. It only
// reads; expired entries are still removed lazily by the cache itself.
type CacheStatsWorker struct {
	source   SizeSource
	gauge    Gauge
	interval time.Duration
}

// NewCacheStatsWorker creates a CacheStatsWorker sampling every interval.
func NewCacheStatsWorker(source SizeSource, gauge Gauge, interval time.Duration) *CacheStatsWorker {
	return &CacheStatsWorker{source: source, gauge: gauge, interval: interval}
}

// Name returns the worker identifier.
func (w *CacheStatsWorker) Name() string { return "cache_stats" }

// Run samples once immediately, then on every tick until ctx is cancelled.
func (w *CacheStatsWorker) Run(ctx context.Context) error {
	w.sample(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sample(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *CacheStatsWorker) sample(ctx context.Context) {
	size := w.source.Len()
	w.gauge.Set(float64(size))
	slog.LogAttrs(ctx, slog.LevelDebug, "cache stats sampled",
		slog.Int("entries", size),
	)
}
