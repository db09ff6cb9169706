package domain

// Position is the decoded shape of one entry in the `/positions` response
// (spec §6): a leader's or the operator's current stake in one market.
type Position struct {
	ConditionID  string
	Asset        string
	CurrentValue float64
	InitialValue float64
	PercentPnl   float64
	Size         float64
	AvgPrice     float64
}

// PlacedOrder is the opaque result handed back by the order-submission
// collaborator. Sizing/pricing policy is out of scope (spec §4.5.3); the
// core only needs to know an order was accepted.
type PlacedOrder struct {
	OrderID string
	Status  string
}
