// Package monitor implements the poll-based leader activity monitor
// (spec §4.3, C4): periodic HTTP poll, timestamp normalisation, age
// filtering, deduplication, and publish to the distributor.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/polymirror/copytrader/internal/dedup"
	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/ports"
)

// Publisher is the downstream sink for accepted activities — satisfied
// by *distributor.Distributor in production, a fake in tests.
type Publisher interface {
	Publish(domain.QueueActivity) error
}

// Config controls monitor cadence and filtering.
type Config struct {
	Addresses         []string
	FetchInterval     time.Duration
	TooOldSeconds     int
	DedupTTL          time.Duration
	DedupMaxEntries   int
	PositionsRefresh  time.Duration // 0 disables the positions cache refresh
}

// Monitor runs the poll loop on a single cooperative execution context
// (Tier A, spec §5). It owns the dedup cache and is the only component
// that touches it.
type Monitor struct {
	cfg       Config
	feed      ports.ActivityFeed
	positions ports.PositionsProvider
	publisher Publisher
	cache     *dedup.Cache

	posCache map[string]posCacheEntry // "address|asset|conditionID" -> snapshot

	nowFn func() time.Time // overridable for tests
}

type posCacheEntry struct {
	pos       domain.Position
	refreshed time.Time
}

// New creates a monitor. feed and publisher are required; positions may
// be nil to disable the best-effort positions cache refresh (spec §4.3
// step 6).
func New(cfg Config, feed ports.ActivityFeed, positions ports.PositionsProvider, publisher Publisher) *Monitor {
	return &Monitor{
		cfg:       cfg,
		feed:      feed,
		positions: positions,
		publisher: publisher,
		cache:     dedup.New(cfg.DedupTTL, cfg.DedupMaxEntries),
		posCache:  make(map[string]posCacheEntry),
		nowFn:     time.Now,
	}
}

// Run loops until ctx is cancelled, sleeping FetchInterval between
// cycles (spec §4.3 step 7).
func (m *Monitor) Run(ctx context.Context) error {
	for {
		m.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.FetchInterval):
		}
	}
}

// RunCycle executes one poll cycle across every configured address, in
// order (spec §4.3 steps 1-6). Per-address transport errors are logged
// and skipped; they never abort the cycle.
func (m *Monitor) RunCycle(ctx context.Context) {
	for _, addr := range m.cfg.Addresses {
		m.pollAddress(ctx, addr)
	}
	m.refreshPositions(ctx)
}

func (m *Monitor) pollAddress(ctx context.Context, addr string) {
	activities, err := m.feed.FetchActivity(ctx, addr)
	if err != nil {
		slog.Warn("monitor: fetch activity failed, skipping address this cycle", "address", addr, "err", err)
		return
	}

	now := m.nowFn()
	nowMs := now.UnixMilli()

	for _, a := range activities {
		m.processActivity(a, addr, nowMs)
	}
}

func (m *Monitor) processActivity(a domain.Activity, addr string, nowMs int64) {
	a.UserAddress = addr

	if a.TimestampMs == 0 {
		slog.Debug("monitor: dropping activity with unparseable timestamp", "address", addr)
		return
	}

	age := nowMs - a.TimestampMs
	tooOldMs := int64(m.cfg.TooOldSeconds) * 1000
	if age > tooOldMs {
		slog.Debug("monitor: dropping too-old activity", "address", addr, "age_ms", age)
		return
	}

	if !m.cache.CheckAndRemember(a.DedupKey()) {
		slog.Debug("monitor: dropping duplicate activity", "address", addr, "tx", a.TransactionHash)
		return
	}

	qa := domain.QueueActivity{Activity: a, DetectedAtMs: nowMs}

	if err := m.publisher.Publish(qa); err != nil {
		slog.Warn("monitor: publish failed", "address", addr, "err", err)
	}
}

// refreshPositions is best-effort: failures never affect publishing
// (spec §4.3 step 6). It skips redundant updates via a deep-equality
// check against the cached snapshot.
func (m *Monitor) refreshPositions(ctx context.Context) {
	if m.positions == nil || m.cfg.PositionsRefresh <= 0 {
		return
	}

	now := m.nowFn()
	for _, addr := range m.cfg.Addresses {
		positions, err := m.positions.FetchPositions(ctx, addr)
		if err != nil {
			slog.Debug("monitor: positions refresh failed, skipping", "address", addr, "err", err)
			continue
		}

		for _, p := range positions {
			key := addr + "|" + p.Asset + "|" + p.ConditionID
			if existing, ok := m.posCache[key]; ok && now.Sub(existing.refreshed) < m.cfg.PositionsRefresh && existing.pos == p {
				continue
			}
			m.posCache[key] = posCacheEntry{pos: p, refreshed: now}
		}
	}
}

// CachedPosition returns the last refreshed snapshot for a key, for
// callers (e.g. the executor) that want a cheap best-effort read.
func (m *Monitor) CachedPosition(key string) (domain.Position, bool) {
	entry, ok := m.posCache[key]
	return entry.pos, ok
}

// DedupCacheSize exposes the cache size for the operator dashboard.
func (m *Monitor) DedupCacheSize() int { return m.cache.Size() }
