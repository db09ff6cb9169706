package polymarket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/monitor"
)

const activityPageSize = 100

type rawActivity struct {
	TransactionHash string      `json:"transactionHash"`
	ProxyWallet     string      `json:"proxyWallet"`
	ConditionID     string      `json:"conditionId"`
	Asset           string      `json:"asset"`
	Side            string      `json:"side"`
	Price           json.Number `json:"price"`
	Size            json.Number `json:"size"`
	UsdcSize        json.Number `json:"usdcSize"`
	Timestamp       json.Number `json:"timestamp"`
	Slug            string      `json:"slug"`
	EventSlug       string      `json:"eventSlug"`
	Type            string      `json:"type"`
}

// ActivityFeed implements ports.ActivityFeed against the data-api's
// /activity endpoint, filtered to TRADE entries (spec §4.3 step 1).
type ActivityFeed struct {
	client *Client
}

// NewActivityFeed wraps client as a ports.ActivityFeed.
func NewActivityFeed(client *Client) *ActivityFeed {
	return &ActivityFeed{client: client}
}

// FetchActivity retrieves the most recent TRADE activity for userAddress
// and normalises it into domain.Activity values. Unparseable timestamps
// are passed through with TimestampMs 0, which the monitor treats as
// unparseable and drops (spec §4.3 step 2).
func (f *ActivityFeed) FetchActivity(ctx context.Context, userAddress string) ([]domain.Activity, error) {
	url := fmt.Sprintf("%s/activity?user=%s&type=TRADE&limit=%d",
		f.client.activityBase, userAddress, activityPageSize)

	var resp []rawActivity
	if err := f.client.get(ctx, f.client.activityLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.FetchActivity: %w", err)
	}

	activities := make([]domain.Activity, 0, len(resp))
	for _, r := range resp {
		if r.Type != "" && r.Type != "TRADE" {
			continue
		}

		price, _ := r.Price.Float64()
		size, _ := r.Size.Float64()
		usdcSize, _ := r.UsdcSize.Float64()
		ms, _ := monitor.NormalizeTimestamp(r.Timestamp.String())

		activities = append(activities, domain.Activity{
			TransactionHash: r.TransactionHash,
			UserAddress:     r.ProxyWallet,
			ConditionID:     r.ConditionID,
			Asset:           r.Asset,
			Side:            domain.Side(r.Side),
			Price:           price,
			Size:            size,
			UsdcSize:        usdcSize,
			TimestampMs:     ms,
			Slug:            r.Slug,
			EventSlug:       r.EventSlug,
		})
	}

	return activities, nil
}
