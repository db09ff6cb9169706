package domain

// AggregatedTrade coalesces sub-threshold same-side activities on one
// market until the aggregation window elapses (spec §4.4, §3).
type AggregatedTrade struct {
	UserAddress    string
	ConditionID    string
	Asset          string
	Side           Side
	Trades         []Activity
	TotalUsdcSize  float64
	AveragePrice   float64 // notional-weighted: Σ(usdcSize·price)/Σ(usdcSize)
	FirstTradeTime int64   // ms, set on creation, never changes
	LastTradeTime  int64   // ms, updated on every contribution
}

// NewAggregatedTrade starts a record from its first contributing activity.
func NewAggregatedTrade(a Activity, nowMs int64) *AggregatedTrade {
	t := &AggregatedTrade{
		UserAddress:    a.UserAddress,
		ConditionID:    a.ConditionID,
		Asset:          a.Asset,
		Side:           a.Side,
		FirstTradeTime: nowMs,
	}
	t.Add(a, nowMs)
	return t
}

// Add folds another contribution into the record, recomputing the
// notional-weighted average price.
func (t *AggregatedTrade) Add(a Activity, nowMs int64) {
	t.Trades = append(t.Trades, a)
	t.TotalUsdcSize += a.UsdcSize
	if t.TotalUsdcSize > 0 {
		var weighted float64
		for _, c := range t.Trades {
			weighted += c.UsdcSize * c.Price
		}
		t.AveragePrice = weighted / t.TotalUsdcSize
	}
	t.LastTradeTime = nowMs
}

// Ready reports whether the window has elapsed as of nowMs.
func (t *AggregatedTrade) Ready(nowMs int64, windowMs int64) bool {
	return nowMs-t.FirstTradeTime >= windowMs
}

// SyntheticActivity builds the Activity-shaped record submitted at flush
// time: the first contributor's identifying fields, but side/price/size
// replaced with the aggregated values (spec §4.4).
func (t *AggregatedTrade) SyntheticActivity() Activity {
	first := t.Trades[0]
	return Activity{
		TransactionHash: "",
		UserAddress:     t.UserAddress,
		ConditionID:     t.ConditionID,
		Asset:           t.Asset,
		Side:            t.Side,
		Price:           t.AveragePrice,
		Size:            t.TotalUsdcSize / maxFloat(t.AveragePrice, 1e-9),
		UsdcSize:        t.TotalUsdcSize,
		TimestampMs:     t.LastTradeTime,
		Slug:            first.Slug,
		EventSlug:       first.EventSlug,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
