// Package papertrader implements the in-memory balance/position
// simulator that replaces the live order path when paper trading is
// enabled (spec §4.6, §3, C7). Purely in-memory: no durability, no
// cross-instance coordination.
package papertrader

import (
	"fmt"

	"github.com/polymirror/copytrader/internal/domain"
)

// Trader simulates fills against an in-memory balance and per-market
// position map. It lives on exactly one worker (spec §5) and is never
// shared across execution contexts.
type Trader struct {
	state *domain.PaperState
}

// New creates a trader seeded with the given starting balance
// (PAPER_TRADING_BALANCE_USD).
func New(startingBalance float64) *Trader {
	return &Trader{state: domain.NewPaperState(startingBalance)}
}

// GetBalance returns the simulated USDC balance.
func (t *Trader) GetBalance() float64 { return t.state.Balance }

// GetUserPortfolioValue returns the conservative mark: Σ invested across
// all open positions (spec §4.6).
func (t *Trader) GetUserPortfolioValue() float64 {
	var total float64
	for _, p := range t.state.Positions {
		total += p.Invested
	}
	return total
}

// ExecuteTrade applies a BUY or SELL against the simulated state. It
// returns false — without mutating anything — on insufficient balance
// (BUY) or insufficient position size (SELL), per spec §4.5.2/§4.6.
func (t *Trader) ExecuteTrade(conditionID string, a domain.Activity) bool {
	switch a.Side {
	case domain.Buy:
		return t.executeBuy(conditionID, a)
	case domain.Sell:
		return t.executeSell(conditionID, a)
	default:
		return false
	}
}

func (t *Trader) executeBuy(conditionID string, a domain.Activity) bool {
	if t.state.Balance < a.UsdcSize {
		return false
	}

	pos, ok := t.state.Positions[conditionID]
	if !ok {
		pos = &domain.PaperPosition{Asset: a.Asset}
		t.state.Positions[conditionID] = pos
	}

	t.state.Balance -= a.UsdcSize
	pos.Size += a.Size
	pos.Invested += a.UsdcSize
	if pos.Size > 0 {
		pos.AvgPrice = pos.Invested / pos.Size
	}
	return true
}

func (t *Trader) executeSell(conditionID string, a domain.Activity) bool {
	pos, ok := t.state.Positions[conditionID]
	if !ok || pos.Size < a.Size {
		return false
	}

	// Proceeds are the activity's own notional; the position's cost
	// basis shrinks proportionally so avgPrice stays representative of
	// the remaining size.
	costBasisSold := pos.AvgPrice * a.Size
	t.state.Balance += a.UsdcSize
	pos.Size -= a.Size
	pos.Invested -= costBasisSold

	if pos.Size <= 0 {
		delete(t.state.Positions, conditionID)
		return true
	}
	pos.AvgPrice = pos.Invested / pos.Size
	return true
}

// Position returns the current position for a market, or false if none.
func (t *Trader) Position(conditionID string) (domain.PaperPosition, bool) {
	pos, ok := t.state.Positions[conditionID]
	if !ok {
		return domain.PaperPosition{}, false
	}
	return *pos, true
}

// String renders a one-line summary for logging/dashboards.
func (t *Trader) String() string {
	return fmt.Sprintf("balance=$%.2f positions=%d", t.state.Balance, len(t.state.Positions))
}
