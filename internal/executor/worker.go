// Package executor implements the per-worker dequeue loop and order
// submission path (spec §4.5, C6), including the aggregation hand-off
// and paper-trading short-circuit (spec §4.6, C7).
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polymirror/copytrader/internal/aggregator"
	"github.com/polymirror/copytrader/internal/distributor"
	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/papertrader"
	"github.com/polymirror/copytrader/internal/ports"
)

// IdleNap is how long the dequeue loop waits before re-checking an empty
// queue (spec §4.5 default 200ms).
const IdleNap = 200 * time.Millisecond

// Config controls one worker's behavior.
type Config struct {
	AggregationEnabled bool
	AggregationWindow  time.Duration
	AggCheckInterval   time.Duration // default aggregator.DefaultCheckInterval
	PaperTrading       bool
	PaperBalance       float64
	ProxyWallet        string
}

// Worker owns one local queue, one aggregation buffer, and (if enabled)
// one paper trader. It shares no mutable state with any other worker or
// with the monitor (spec §5).
type Worker struct {
	id     string
	cfg    Config
	sink   *distributor.ChannelSink
	buffer *aggregator.Buffer
	paper  *papertrader.Trader

	positions ports.PositionsProvider
	balance   ports.BalanceProvider
	submitter ports.OrderSubmitter
	exporter  ports.TradeExporter
	audit     ports.AuditStore

	nowMs func() int64
}

// New creates a worker with a fresh ChannelSink of the given queue depth.
// exporter/audit may be nil/NoopAuditStore.
func New(
	id string,
	queueDepth int,
	cfg Config,
	positions ports.PositionsProvider,
	balance ports.BalanceProvider,
	submitter ports.OrderSubmitter,
	exporter ports.TradeExporter,
	audit ports.AuditStore,
) *Worker {
	if id == "" {
		id = uuid.NewString()
	}
	w := &Worker{
		id:        id,
		cfg:       cfg,
		sink:      distributor.NewChannelSink(id, queueDepth),
		buffer:    aggregator.New(cfg.AggregationWindow),
		positions: positions,
		balance:   balance,
		submitter: submitter,
		exporter:  exporter,
		audit:     audit,
		nowMs:     func() int64 { return time.Now().UnixMilli() },
	}
	if cfg.PaperTrading {
		w.paper = papertrader.New(cfg.PaperBalance)
	}
	return w
}

// Sink exposes the worker's registration capability to the distributor.
func (w *Worker) Sink() *distributor.ChannelSink { return w.sink }

// ID returns the worker's registry identity.
func (w *Worker) ID() string { return w.id }

// Run is the cooperative dequeue loop (spec §4.5): pop non-blocking, nap
// if empty, route to aggregation or immediate execution, and exit once a
// shutdown message arrives (finishing whatever is already in flight
// first). The aggregation flusher ticks on its own goroutine, cancelled
// together with this loop via ctx.
func (w *Worker) Run(ctx context.Context) {
	flusherCtx, cancelFlusher := context.WithCancel(ctx)
	defer cancelFlusher()

	if w.cfg.AggregationEnabled {
		interval := w.cfg.AggCheckInterval
		if interval <= 0 {
			interval = aggregator.DefaultCheckInterval
		}
		go w.buffer.RunFlusher(flusherCtx, interval, w.nowMs, func(a domain.Activity) {
			w.Execute(ctx, domain.QueueActivity{Activity: a, DetectedAtMs: w.nowMs()}, true)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.sink.Messages():
			switch msg.Kind {
			case ports.MessageShutdown:
				slog.Info("executor: shutdown received", "worker", w.id)
				return
			case ports.MessageActivity:
				qa := msg.Payload.(domain.QueueActivity)
				w.handle(ctx, qa)
			}
		case <-time.After(IdleNap):
			// queue empty, cooperative nap — spec §4.5 step.
		}
	}
}

func (w *Worker) handle(ctx context.Context, qa domain.QueueActivity) {
	if w.cfg.AggregationEnabled && aggregator.Eligible(qa.Activity) {
		w.buffer.Add(qa.Activity, w.nowMs())
		return
	}
	w.Execute(ctx, qa, false)
}
