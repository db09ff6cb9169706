package executor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/ports"
)

// Execute runs the order-submission path for a single activity (spec
// §4.5.execute): latency logging, paper-trading short-circuit or live
// submission, and non-fatal error handling throughout. aggregated marks
// whether this came from the aggregation buffer (spec §4.4) purely for
// logging/export.
func (w *Worker) Execute(ctx context.Context, qa domain.QueueActivity, aggregated bool) {
	receivedAt := w.nowMs()
	w.logLatency(qa, receivedAt)

	sideWord := strings.ToLower(string(qa.Side))

	if w.cfg.PaperTrading {
		w.executePaper(ctx, qa, sideWord, aggregated, receivedAt)
		return
	}

	w.executeLive(ctx, qa, sideWord, aggregated, receivedAt)
}

func (w *Worker) logLatency(qa domain.QueueActivity, receivedAt int64) {
	slog.Info("executor: latency",
		"worker", w.id,
		"activity_to_received_ms", receivedAt-qa.TimestampMs,
		"detected_to_received_ms", receivedAt-qa.DetectedAtMs,
	)
}

func (w *Worker) executePaper(ctx context.Context, qa domain.QueueActivity, sideWord string, aggregated bool, receivedAt int64) {
	ok := w.paper.ExecuteTrade(qa.ConditionID, qa.Activity)
	if !ok {
		slog.Info("executor: paper trade refused, skipping", "worker", w.id, "side", sideWord, "condition_id", qa.ConditionID)
		return
	}

	order := domain.PlacedOrder{OrderID: "paper", Status: "FILLED"}
	w.recordOutcome(ctx, qa, order, nil, true, aggregated, receivedAt)
}

func (w *Worker) executeLive(ctx context.Context, qa domain.QueueActivity, sideWord string, aggregated bool, receivedAt int64) {
	ownPos, leaderPos, ownBalance, userBalance := w.fetchExecutionContext(ctx, qa)

	order, err := w.submitter.SubmitOrder(ctx, sideWord, ownPos, leaderPos, qa, ownBalance, userBalance, qa.UserAddress)
	if err != nil {
		slog.Error("executor: order submission failed, continuing", "worker", w.id, "err", err)
	}
	w.recordOutcome(ctx, qa, order, err, false, aggregated, receivedAt)
}

// fetchExecutionContext fetches own positions, leader positions, and own
// balance in parallel (spec §4.5.3). Any individual fetch failure yields
// a zero value for that input rather than aborting the trade — the
// submitter collaborator decides how to treat missing context.
func (w *Worker) fetchExecutionContext(ctx context.Context, qa domain.QueueActivity) (ownPos, leaderPos domain.Position, ownBalance, userBalance float64) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		positions, err := w.positions.FetchPositions(ctx, w.cfg.ProxyWallet)
		if err != nil {
			slog.Warn("executor: own positions fetch failed", "worker", w.id, "err", err)
			return
		}
		ownPos = findPosition(positions, qa.ConditionID)
	}()

	go func() {
		defer wg.Done()
		positions, err := w.positions.FetchPositions(ctx, qa.UserAddress)
		if err != nil {
			slog.Warn("executor: leader positions fetch failed", "worker", w.id, "err", err)
			return
		}
		leaderPos = findPosition(positions, qa.ConditionID)
		for _, p := range positions {
			userBalance += p.CurrentValue
		}
	}()

	go func() {
		defer wg.Done()
		bal, err := w.balance.GetBalance(ctx, w.cfg.ProxyWallet)
		if err != nil {
			slog.Warn("executor: own balance fetch failed", "worker", w.id, "err", err)
			return
		}
		ownBalance = bal
	}()

	wg.Wait()
	return
}

func findPosition(positions []domain.Position, conditionID string) domain.Position {
	for _, p := range positions {
		if p.ConditionID == conditionID {
			return p
		}
	}
	return domain.Position{}
}

func (w *Worker) recordOutcome(ctx context.Context, qa domain.QueueActivity, order domain.PlacedOrder, err error, paper, aggregated bool, receivedAt int64) {
	trade := ports.ExecutedTrade{
		Activity:      qa,
		Order:         order,
		Paper:         paper,
		Aggregated:    aggregated,
		Err:           err,
		SubmittedAtMs: time.Now().UnixMilli(),
	}

	if w.exporter != nil {
		if exportErr := w.exporter.ExportTrade(ctx, trade); exportErr != nil {
			slog.Warn("executor: trade export failed", "worker", w.id, "err", exportErr)
		}
	}
	if w.audit != nil {
		if auditErr := w.audit.RecordExecution(ctx, trade); auditErr != nil {
			slog.Warn("executor: audit record failed", "worker", w.id, "err", auditErr)
		}
	}
}
