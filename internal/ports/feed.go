// Package ports names the contracts the core pipeline consumes from its
// external collaborators (spec §6). Only the interfaces are defined here;
// concrete CLOB signing, balance lookups, historical export, and
// persistence live in internal/adapters and are explicitly out of the
// core's scope.
package ports

import (
	"context"

	"github.com/polymirror/copytrader/internal/domain"
)

// ActivityFeed fetches a leader's recent trade activity.
type ActivityFeed interface {
	// FetchActivity issues GET /activity?user={addr}&type=TRADE and
	// returns the decoded activities in feed order.
	FetchActivity(ctx context.Context, userAddress string) ([]domain.Activity, error)
}

// PositionsProvider fetches a user's current positions.
type PositionsProvider interface {
	FetchPositions(ctx context.Context, userAddress string) ([]domain.Position, error)
}

// BalanceProvider fetches a user's available USDC balance.
type BalanceProvider interface {
	GetBalance(ctx context.Context, userAddress string) (float64, error)
}
