package polymarket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polymirror/copytrader/internal/domain"
)

type rawPosition struct {
	ConditionID  string      `json:"conditionId"`
	Asset        string      `json:"asset"`
	CurrentValue json.Number `json:"currentValue"`
	InitialValue json.Number `json:"initialValue"`
	PercentPnl   json.Number `json:"percentPnl"`
	Size         json.Number `json:"size"`
	AvgPrice     json.Number `json:"avgPrice"`
}

type rawValue struct {
	Value json.Number `json:"value"`
}

// PositionsFeed implements ports.PositionsProvider and ports.BalanceProvider
// against the data-api's /positions and /value endpoints (spec §4.5.3,
// §8 execution-context scenarios).
type PositionsFeed struct {
	client *Client
}

// NewPositionsFeed wraps client as a combined positions/balance adapter.
func NewPositionsFeed(client *Client) *PositionsFeed {
	return &PositionsFeed{client: client}
}

// FetchPositions retrieves all open positions for userAddress.
func (f *PositionsFeed) FetchPositions(ctx context.Context, userAddress string) ([]domain.Position, error) {
	url := fmt.Sprintf("%s/positions?user=%s", f.client.positionsBase, userAddress)

	var resp []rawPosition
	if err := f.client.get(ctx, f.client.positionsLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.FetchPositions: %w", err)
	}

	positions := make([]domain.Position, 0, len(resp))
	for _, r := range resp {
		currentValue, _ := r.CurrentValue.Float64()
		initialValue, _ := r.InitialValue.Float64()
		percentPnl, _ := r.PercentPnl.Float64()
		size, _ := r.Size.Float64()
		avgPrice, _ := r.AvgPrice.Float64()

		positions = append(positions, domain.Position{
			ConditionID:  r.ConditionID,
			Asset:        r.Asset,
			CurrentValue: currentValue,
			InitialValue: initialValue,
			PercentPnl:   percentPnl,
			Size:         size,
			AvgPrice:     avgPrice,
		})
	}

	return positions, nil
}

// GetBalance retrieves the USDC balance for userAddress.
func (f *PositionsFeed) GetBalance(ctx context.Context, userAddress string) (float64, error) {
	url := fmt.Sprintf("%s/value?user=%s", f.client.positionsBase, userAddress)

	var resp []rawValue
	if err := f.client.get(ctx, f.client.positionsLimiter, url, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.GetBalance: %w", err)
	}
	if len(resp) == 0 {
		return 0, nil
	}

	v, _ := resp[0].Value.Float64()
	return v, nil
}
