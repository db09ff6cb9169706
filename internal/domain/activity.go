// Package domain holds the value types shared across the pipeline: the
// activity that flows in from the leader feed, the queued form the monitor
// hands to the distributor, and the aggregation/paper-trading state each
// worker owns independently.
package domain

import (
	"strconv"
	"strings"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Activity is one trade event emitted by the leader-activity feed. It is
// immutable once decoded from the feed response.
type Activity struct {
	TransactionHash string
	UserAddress     string
	ConditionID     string
	Asset           string
	Side            Side
	Price           float64
	Size            float64
	UsdcSize        float64
	TimestampMs     int64 // normalised to milliseconds by the monitor
	Slug            string
	EventSlug       string
}

// QueueActivity is an Activity augmented with the detection timestamp and
// normalised millisecond timestamp, produced by the monitor and owned by
// whichever component currently holds it.
type QueueActivity struct {
	Activity
	DetectedAtMs int64
}

// DedupKey returns the canonical identity used to suppress re-observation.
// It is the lowercased transaction hash when present, else the composite
// of the fields that make an activity unique.
func (a Activity) DedupKey() string {
	if a.TransactionHash != "" {
		return strings.ToLower(a.TransactionHash)
	}
	return strings.Join([]string{
		a.UserAddress,
		a.ConditionID,
		strconv.FormatInt(a.TimestampMs, 10),
		string(a.Side),
		strconv.FormatFloat(a.UsdcSize, 'f', -1, 64),
		strconv.FormatFloat(a.Price, 'f', -1, 64),
	}, "|")
}

// AggregationKey returns the key used by the aggregation buffer (C5) to
// group sub-threshold same-side trades on the same market.
func (a Activity) AggregationKey() string {
	return strings.Join([]string{a.UserAddress, a.ConditionID, a.Asset, string(a.Side)}, "|")
}
