package domain

// PaperPosition is one market's simulated holding (spec §3). Size and
// Invested both grow on BUY; AvgPrice = Invested/Size whenever Size > 0.
type PaperPosition struct {
	Asset    string
	Size     float64
	Invested float64
	AvgPrice float64
}

// PaperState is the scalar balance plus per-market positions a paper
// trader owns. It is memory-resident only (spec §1 Non-goals) and, per
// §5, lives on exactly one worker — never shared across execution
// contexts.
type PaperState struct {
	Balance   float64
	Positions map[string]*PaperPosition // conditionID -> position
}

// NewPaperState creates a paper trader seeded with the configured
// starting balance (PAPER_TRADING_BALANCE_USD).
func NewPaperState(startingBalance float64) *PaperState {
	return &PaperState{
		Balance:   startingBalance,
		Positions: make(map[string]*PaperPosition),
	}
}
