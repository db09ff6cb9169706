package aggregator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/copytrader/internal/aggregator"
	"github.com/polymirror/copytrader/internal/domain"
)

func buy(usd, price float64) domain.Activity {
	return domain.Activity{
		UserAddress: "leader1",
		ConditionID: "cond1",
		Asset:       "asset1",
		Side:        domain.Buy,
		UsdcSize:    usd,
		Price:       price,
	}
}

func TestEligible_OnlySubThresholdBuys(t *testing.T) {
	assert.True(t, aggregator.Eligible(buy(0.5, 0.5)))
	assert.False(t, aggregator.Eligible(buy(1.0, 0.5)), "at-threshold BUY is not eligible")
	sell := buy(0.5, 0.5)
	sell.Side = domain.Sell
	assert.False(t, aggregator.Eligible(sell))
}

// TestAggregationCoalesces_SubThresholdBuys mirrors spec §8 scenario 5.
func TestAggregationCoalesces_SubThresholdBuys(t *testing.T) {
	b := aggregator.New(2 * time.Second)

	b.Add(buy(0.40, 0.5), 0)
	b.Add(buy(0.30, 0.6), 0)
	b.Add(buy(0.40, 0.5), 0)

	require.Equal(t, 1, b.Len())
	assert.Empty(t, b.CheckReady(1999), "not ready before the window elapses")

	flushes := b.CheckReady(2000)
	require.Len(t, flushes, 1)
	require.False(t, flushes[0].Dropped)

	synthetic := flushes[0].Activity
	assert.InDelta(t, 1.10, synthetic.UsdcSize, 0.0001)
	assert.InDelta(t, 0.5273, synthetic.Price, 0.001)
	assert.Equal(t, domain.Buy, synthetic.Side)
	assert.Equal(t, 0, b.Len(), "record is destroyed on flush")
}

// TestAggregationDropsUnderThreshold mirrors spec §8 scenario 6.
func TestAggregationDropsUnderThreshold(t *testing.T) {
	b := aggregator.New(2 * time.Second)
	b.Add(buy(0.30, 0.6), 0)

	flushes := b.CheckReady(2000)
	require.Len(t, flushes, 1)
	assert.True(t, flushes[0].Dropped)
	assert.Equal(t, 0, b.Len())
}

func TestCheckReady_FlushesReadyRecordOnlyOnce(t *testing.T) {
	b := aggregator.New(time.Second)
	b.Add(buy(0.5, 0.5), 0)

	// Two back-to-back (non-overlapping) CheckReady calls: the first
	// flushes the ready record, the second finds nothing left to flush.
	flushes := b.CheckReady(1000)
	assert.Len(t, flushes, 1)
	assert.Empty(t, b.CheckReady(1000))
}

func TestAdd_FirstTradeTimeNeverChanges(t *testing.T) {
	b := aggregator.New(5 * time.Second)
	b.Add(buy(0.2, 0.5), 100)  // firstTradeTime = 100
	b.Add(buy(0.2, 0.5), 200)  // must not push firstTradeTime to 200

	assert.Empty(t, b.CheckReady(100+4999), "window measured from first contribution, not last")
	assert.NotEmpty(t, b.CheckReady(100+5000))
}
