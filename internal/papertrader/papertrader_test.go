package papertrader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/papertrader"
)

func TestExecuteTrade_BuyInsufficientBalance(t *testing.T) {
	tr := papertrader.New(10)
	ok := tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Buy, UsdcSize: 20, Size: 40})
	assert.False(t, ok)
	assert.Equal(t, 10.0, tr.GetBalance())
}

func TestExecuteTrade_BuyUpdatesBalanceAndPosition(t *testing.T) {
	tr := papertrader.New(100)
	ok := tr.ExecuteTrade("cond1", domain.Activity{Asset: "a1", Side: domain.Buy, UsdcSize: 10, Size: 20, Price: 0.5})
	require.True(t, ok)

	assert.Equal(t, 90.0, tr.GetBalance())
	pos, found := tr.Position("cond1")
	require.True(t, found)
	assert.Equal(t, 20.0, pos.Size)
	assert.Equal(t, 10.0, pos.Invested)
	assert.Equal(t, 0.5, pos.AvgPrice)
}

func TestExecuteTrade_BalancePlusInvestedInvariantUnderBuy(t *testing.T) {
	tr := papertrader.New(50)
	before := tr.GetBalance() + tr.GetUserPortfolioValue()

	ok := tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Buy, UsdcSize: 5, Size: 10, Price: 0.5})
	require.True(t, ok)

	after := tr.GetBalance() + tr.GetUserPortfolioValue()
	assert.InDelta(t, before, after, 1e-9)
}

func TestExecuteTrade_SellInsufficientPosition(t *testing.T) {
	tr := papertrader.New(100)
	ok := tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Sell, Size: 5, UsdcSize: 2.5})
	assert.False(t, ok, "selling with no position must fail")
}

func TestExecuteTrade_SellDeletesPositionWhenSizeHitsZero(t *testing.T) {
	tr := papertrader.New(100)
	require.True(t, tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Buy, UsdcSize: 10, Size: 20, Price: 0.5}))
	require.True(t, tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Sell, UsdcSize: 11, Size: 20, Price: 0.55}))

	_, found := tr.Position("cond1")
	assert.False(t, found)
	assert.InDelta(t, 101.0, tr.GetBalance(), 1e-9)
}

func TestExecuteTrade_SellInvariant(t *testing.T) {
	tr := papertrader.New(100)
	require.True(t, tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Buy, UsdcSize: 10, Size: 20, Price: 0.5}))

	before := tr.GetBalance() + tr.GetUserPortfolioValue()
	sizeSold := 5.0
	avgBefore := 0.5
	require.True(t, tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Sell, UsdcSize: 3.0, Size: sizeSold, Price: 0.6}))
	after := tr.GetBalance() + tr.GetUserPortfolioValue()

	assert.InDelta(t, before+(3.0-sizeSold*avgBefore), after, 1e-9)
}

func TestBalance_NeverNegativeOnAcceptedTrade(t *testing.T) {
	tr := papertrader.New(10)
	ok := tr.ExecuteTrade("cond1", domain.Activity{Side: domain.Buy, UsdcSize: 10, Size: 20, Price: 0.5})
	require.True(t, ok)
	assert.GreaterOrEqual(t, tr.GetBalance(), 0.0)
}
