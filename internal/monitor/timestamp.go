package monitor

import (
	"strconv"
	"time"
)

// thresholdMs is the boundary at which a numeric timestamp is assumed to
// already be in milliseconds rather than seconds (spec §3, §8: exactly
// 10^12 is seconds, 10^12+1 is ms).
const thresholdMs = 1_000_000_000_000

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
}

// NormalizeTimestamp converts a feed-provided timestamp (numeric string
// or ISO-8601 string) to epoch milliseconds. ok is false for anything
// unparseable, which the monitor treats as a dropped activity (spec
// §4.3 step 2).
func NormalizeTimestamp(raw string) (ms int64, ok bool) {
	if raw == "" {
		return 0, false
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > thresholdMs {
			return n, true
		}
		return n * 1000, true
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		sec := int64(f)
		if sec > thresholdMs {
			return sec, true
		}
		return sec * 1000, true
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), true
		}
	}

	return 0, false
}
