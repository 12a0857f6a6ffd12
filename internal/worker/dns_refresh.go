package worker

import (
	"context"
	"time"
)

// Refresher re-resolves cached DNS entries. *dnscache.Resolver satisfies it.
type Refresher interface {
	Refresh(clearUnused bool)
}

// DNSRefreshWorker keeps the edge client's DNS cache current and drops
// hosts that were not looked up since the previous refresh.
type DNSRefreshWorker struct {
	resolver Refresher
	interval time.Duration
}

// NewDNSRefreshWorker creates a DNSRefreshWorker.
func NewDNSRefreshWorker(resolver Refresher, interval time.Duration) *DNSRefreshWorker {
	return &DNSRefreshWorker{resolver: resolver, interval: interval}
}

// Name returns the worker identifier.
func (w *DNSRefreshWorker) Name() string { return "dns_refresh" }

// Run refreshes on every tick until ctx is cancelled.
func (w *DNSRefreshWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.resolver.Refresh(true)
		case <-ctx.Done():
			return nil
		}
	}
}
