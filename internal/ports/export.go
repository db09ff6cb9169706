package ports

import (
	"context"

	"github.com/polymirror/copytrader/internal/domain"
)

// ExecutedTrade is one record handed to the historical exporter / audit
// sink after an order attempt, successful or not.
type ExecutedTrade struct {
	Activity     domain.QueueActivity
	Order        domain.PlacedOrder
	Paper        bool
	Aggregated   bool
	Err          error
	SubmittedAtMs int64
}

// TradeExporter is the historical CSV exporter named (but not specified)
// in spec §1/§9: an append-only sink for reconciling submitted trades
// against the exchange's own fill history. Out of the hot path — the
// executor calls it fire-and-forget and logs, never fails, on error.
type TradeExporter interface {
	ExportTrade(ctx context.Context, trade ExecutedTrade) error
}

// AuditStore is the optional persistent store named in spec §1. The core
// never reads it back; the pipeline's memory-resident state (dedup cache,
// aggregation buffer) stays non-durable regardless of whether an
// AuditStore is wired (spec §1 Non-goals).
type AuditStore interface {
	RecordExecution(ctx context.Context, trade ExecutedTrade) error
	Close() error
}

// NoopAuditStore discards every record. The pipeline runs identically
// whether an AuditStore is configured or not.
type NoopAuditStore struct{}

func (NoopAuditStore) RecordExecution(ctx context.Context, trade ExecutedTrade) error { return nil }
func (NoopAuditStore) Close() error                                                   { return nil }
