package polymarket

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/polymirror/copytrader/internal/domain"
)

type submitRequest struct {
	ConditionID string  `json:"conditionId"`
	Asset       string  `json:"asset"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	ClientOrderID string `json:"clientOrderId"`
}

type submitResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Submitter implements ports.OrderSubmitter against the CLOB order
// endpoint. Order sizing/pricing policy is explicitly out of scope (spec
// §4.5 step 3): this adapter proportionally scales the leader's trade by
// the ratio of the operator's own balance to the leader's, a simple
// policy standing in for whatever sizing collaborator a deployment
// wires in. It never signs requests — authentication/wallet-signing is
// excluded from this pipeline's scope (spec §1).
type Submitter struct {
	client *Client
}

// NewSubmitter wraps client as a ports.OrderSubmitter.
func NewSubmitter(client *Client) *Submitter {
	return &Submitter{client: client}
}

// SubmitOrder places a copy order sized proportionally to the operator's
// balance relative to the leader's (spec §4.5 step 3 arguments).
func (s *Submitter) SubmitOrder(
	ctx context.Context,
	sideWord string,
	ownPosition domain.Position,
	leaderPosition domain.Position,
	activity domain.QueueActivity,
	ownBalance float64,
	userBalance float64,
	leaderAddress string,
) (domain.PlacedOrder, error) {
	size := activity.Size
	if userBalance > 0 {
		size = activity.Size * (ownBalance / userBalance)
	}
	if size <= 0 {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.SubmitOrder: computed non-positive size for %s", activity.ConditionID)
	}

	req := submitRequest{
		ConditionID:   activity.ConditionID,
		Asset:         activity.Asset,
		Side:          sideWord,
		Price:         activity.Price,
		Size:          size,
		ClientOrderID: uuid.NewString(),
	}

	url := fmt.Sprintf("%s/order", s.client.activityBase)

	var resp submitResponse
	if err := s.post(ctx, url, req, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.SubmitOrder: %w", err)
	}

	return domain.PlacedOrder{OrderID: resp.OrderID, Status: resp.Status}, nil
}

func (s *Submitter) post(ctx context.Context, url string, body, out any) error {
	return s.client.post(ctx, s.client.activityLimiter, url, body, out)
}
