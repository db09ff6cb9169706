package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/monitor"
)

type fakeFeed struct {
	byAddr map[string][]domain.Activity
	err    error
}

func (f *fakeFeed) FetchActivity(_ context.Context, addr string) ([]domain.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byAddr[addr], nil
}

type fakePublisher struct {
	published []domain.QueueActivity
}

func (p *fakePublisher) Publish(a domain.QueueActivity) error {
	p.published = append(p.published, a)
	return nil
}

func baseConfig(addr string) monitor.Config {
	return monitor.Config{
		Addresses:       []string{addr},
		FetchInterval:   time.Hour,
		TooOldSeconds:   60,
		DedupTTL:        time.Minute,
		DedupMaxEntries: 100,
	}
}

func TestRunCycle_PublishesFreshActivity(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{byAddr: map[string][]domain.Activity{
		"leader1": {{TransactionHash: "0xABC", TimestampMs: now.UnixMilli()}},
	}}
	pub := &fakePublisher{}

	m := monitor.New(baseConfig("leader1"), feed, nil, pub)
	m.RunCycle(context.Background())

	require.Len(t, pub.published, 1)
	assert.Equal(t, "leader1", pub.published[0].UserAddress)
}

// TestRunCycle_DropsDuplicateAcrossCycles mirrors spec §8 scenario 2: the same tx published
// twice across cycles is delivered once.
func TestRunCycle_DropsDuplicateAcrossCycles(t *testing.T) {
	now := time.Now().UnixMilli()
	feed := &fakeFeed{byAddr: map[string][]domain.Activity{
		"leader1": {{TransactionHash: "0xABC", TimestampMs: now}},
	}}
	pub := &fakePublisher{}
	m := monitor.New(baseConfig("leader1"), feed, nil, pub)

	m.RunCycle(context.Background())
	m.RunCycle(context.Background())

	assert.Len(t, pub.published, 1)
}

func TestRunCycle_DropsTooOldActivity(t *testing.T) {
	stale := time.Now().Add(-2 * time.Minute).UnixMilli()
	feed := &fakeFeed{byAddr: map[string][]domain.Activity{
		"leader1": {{TransactionHash: "0xOLD", TimestampMs: stale}},
	}}
	pub := &fakePublisher{}
	m := monitor.New(baseConfig("leader1"), feed, nil, pub)

	m.RunCycle(context.Background())
	assert.Empty(t, pub.published)
}

func TestRunCycle_FeedErrorSkipsAddressWithoutAborting(t *testing.T) {
	feed := &fakeFeed{err: assertErr("boom")}
	pub := &fakePublisher{}
	m := monitor.New(baseConfig("leader1"), feed, nil, pub)

	assert.NotPanics(t, func() { m.RunCycle(context.Background()) })
	assert.Empty(t, pub.published)
}

func TestRunCycle_NoTransactionHashStillDeduplicates(t *testing.T) {
	now := time.Now().UnixMilli()
	a := domain.Activity{
		UserAddress: "leader1",
		ConditionID: "cond1",
		Side:        domain.Buy,
		Price:       0.5,
		UsdcSize:    10,
		TimestampMs: now,
	}
	feed := &fakeFeed{byAddr: map[string][]domain.Activity{"leader1": {a, a}}}
	pub := &fakePublisher{}
	m := monitor.New(baseConfig("leader1"), feed, nil, pub)

	m.RunCycle(context.Background())
	assert.Len(t, pub.published, 1)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
