package ports

import (
	"context"

	"github.com/polymirror/copytrader/internal/domain"
)

// OrderSubmitter is the opaque CLOB order-submission collaborator (spec
// §6). Order sizing/pricing policy is entirely its own business — the
// core only supplies the inputs an implementation would need to decide.
type OrderSubmitter interface {
	// SubmitOrder mirrors one leader trade onto the operator's account.
	// sideWord is "buy" or "sell". ownPosition/leaderPosition are the
	// matching-conditionID position snapshot from each side, if any
	// (zero value when absent).
	SubmitOrder(
		ctx context.Context,
		sideWord string,
		ownPosition domain.Position,
		leaderPosition domain.Position,
		activity domain.QueueActivity,
		ownBalance float64,
		userBalance float64,
		leaderAddress string,
	) (domain.PlacedOrder, error)
}
