// Package aggregator implements the per-worker sub-threshold aggregation
// buffer (spec §4.4, C5): coalescing of small same-side trades on the
// same market until a time window elapses, then flushing as one
// synthetic order or dropping if it never reached the minimum notional.
package aggregator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polymirror/copytrader/internal/domain"
)

// MinTotalUSD is the compile-time exchange minimum (spec §6): only
// BUYs below this notional are aggregation candidates, and a record
// below this total at window expiry is dropped rather than submitted.
const MinTotalUSD = 1.00

// DefaultCheckInterval is how often the flusher wakes to check for ready
// records (spec §4.4 default 500ms).
const DefaultCheckInterval = 500 * time.Millisecond

// Flush is what a ready record turns into: either a synthetic activity to
// submit, or nothing (dropped below minimum).
type Flush struct {
	Activity domain.Activity
	Dropped  bool
}

// Buffer owns one worker's aggregation state. It is not safe for
// concurrent use from multiple goroutines — per spec §5 each worker owns
// exactly one buffer, touched only by that worker's own goroutines (the
// dequeue loop and its flusher timer).
type Buffer struct {
	windowMs int64
	records  map[string]*domain.AggregatedTrade // aggregation key -> record

	flushing sync.Mutex // serialises flush ticks per spec §4.4
}

// New creates a buffer with the given aggregation window.
func New(window time.Duration) *Buffer {
	return &Buffer{
		windowMs: window.Milliseconds(),
		records:  make(map[string]*domain.AggregatedTrade),
	}
}

// Eligible reports whether an activity is an aggregation candidate: only
// BUYs below MinTotalUSD (spec §4.4). All SELLs and above-threshold BUYs
// skip the buffer entirely.
func Eligible(a domain.Activity) bool {
	return a.Side == domain.Buy && a.UsdcSize < MinTotalUSD
}

// Add folds an eligible activity into its aggregation record, creating
// one on first contribution.
func (b *Buffer) Add(a domain.Activity, nowMs int64) {
	key := a.AggregationKey()
	if rec, ok := b.records[key]; ok {
		rec.Add(a, nowMs)
		return
	}
	b.records[key] = domain.NewAggregatedTrade(a, nowMs)
}

// Len returns the number of open aggregation records, for the operator
// dashboard.
func (b *Buffer) Len() int { return len(b.records) }

// CheckReady scans for records whose window has elapsed and removes
// them, returning one Flush per ready record (spec §4.4 readiness rule:
// now - firstTradeTime >= windowSeconds*1000, boundary inclusive). A
// second call that overlaps an in-progress one is a no-op (serialised
// flush, per spec).
func (b *Buffer) CheckReady(nowMs int64) []Flush {
	if !b.flushing.TryLock() {
		return nil
	}
	defer b.flushing.Unlock()

	var flushes []Flush
	for key, rec := range b.records {
		if !rec.Ready(nowMs, b.windowMs) {
			continue
		}
		delete(b.records, key)
		if rec.TotalUsdcSize >= MinTotalUSD {
			flushes = append(flushes, Flush{Activity: rec.SyntheticActivity()})
		} else {
			flushes = append(flushes, Flush{Dropped: true})
		}
	}
	return flushes
}

// RunFlusher ticks every interval until ctx is cancelled, calling
// onFlush for each ready (non-dropped) record and logging drops.
// Cancellable in O(1) via ctx — the ticker itself is stopped on return.
func (b *Buffer) RunFlusher(ctx context.Context, interval time.Duration, nowMs func() int64, onFlush func(domain.Activity)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, f := range b.CheckReady(nowMs()) {
				if f.Dropped {
					slog.Info("aggregation window expired below minimum — dropped")
					continue
				}
				onFlush(f.Activity)
			}
		}
	}
}
