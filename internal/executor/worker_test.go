package executor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/executor"
	"github.com/polymirror/copytrader/internal/ports"
)

type fakePositions struct{ positions []domain.Position }

func (f *fakePositions) FetchPositions(context.Context, string) ([]domain.Position, error) {
	return f.positions, nil
}

type fakeBalance struct{ balance float64 }

func (f *fakeBalance) GetBalance(context.Context, string) (float64, error) { return f.balance, nil }

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSubmitter) SubmitOrder(_ context.Context, side string, _ domain.Position, _ domain.Position, a domain.QueueActivity, _ float64, _ float64, _ string) (domain.PlacedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, side+":"+a.ConditionID)
	return domain.PlacedOrder{OrderID: "ord-1", Status: "FILLED"}, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestWorker(t *testing.T, cfg executor.Config, sub *fakeSubmitter) *executor.Worker {
	t.Helper()
	return executor.New("w1", 10, cfg, &fakePositions{}, &fakeBalance{balance: 100}, sub, nil, nil)
}

func TestWorker_ImmediateExecutionWhenAggregationDisabled(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWorker(t, executor.Config{}, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Sink().Send(ports.Message{
		Kind:    ports.MessageActivity,
		Payload: domain.QueueActivity{Activity: domain.Activity{ConditionID: "cond1", Side: domain.Buy, UsdcSize: 50}},
	}))

	require.Eventually(t, func() bool { return sub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWorker_SubThresholdBuyGoesToAggregationNotSubmitter(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWorker(t, executor.Config{AggregationEnabled: true, AggregationWindow: time.Hour}, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Sink().Send(ports.Message{
		Kind:    ports.MessageActivity,
		Payload: domain.QueueActivity{Activity: domain.Activity{ConditionID: "cond1", Side: domain.Buy, UsdcSize: 0.2}},
	}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sub.count(), "sub-threshold BUY must not reach the submitter directly")
}

func TestWorker_ShutdownStopsLoop(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWorker(t, executor.Config{}, sub)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, w.Sink().Send(ports.Message{Kind: ports.MessageShutdown}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after shutdown")
	}
}

func TestWorker_PaperTradingSkipsSubmitterEntirely(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWorker(t, executor.Config{PaperTrading: true, PaperBalance: 100}, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Sink().Send(ports.Message{
		Kind:    ports.MessageActivity,
		Payload: domain.QueueActivity{Activity: domain.Activity{ConditionID: "cond1", Side: domain.Buy, UsdcSize: 10, Size: 20, Price: 0.5}},
	}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sub.count(), "paper trading must never call the live submitter")
}

