// Package export implements the historical trade exporter named in spec
// §1/§9: an append-only CSV sink for reconciling submitted trades against
// the exchange's own fill history.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/polymirror/copytrader/internal/ports"
)

var header = []string{
	"batch_id", "submitted_at_ms", "user_address", "condition_id", "asset",
	"side", "price", "size", "usdc_size", "order_id", "status",
	"paper", "aggregated", "error",
}

// CSVExporter appends one row per executed trade to a CSV file, creating
// it with a header on first use.
type CSVExporter struct {
	mu      sync.Mutex
	f       *os.File
	w       *csv.Writer
	batchID string
}

// NewCSVExporter opens (or creates) path for append, writing the header
// only for a brand-new file.
func NewCSVExporter(path string) (*CSVExporter, error) {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("export.NewCSVExporter: open %q: %w", path, err)
	}

	e := &CSVExporter{f: f, w: csv.NewWriter(f), batchID: uuid.NewString()}
	if needsHeader {
		if err := e.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("export.NewCSVExporter: write header: %w", err)
		}
		e.w.Flush()
	}
	return e, nil
}

// ExportTrade appends one row. Never returns a fatal error to the caller
// in practice — the executor logs and continues regardless (spec §7).
func (e *CSVExporter) ExportTrade(_ context.Context, trade ports.ExecutedTrade) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	errText := ""
	if trade.Err != nil {
		errText = trade.Err.Error()
	}

	row := []string{
		e.batchID,
		strconv.FormatInt(trade.SubmittedAtMs, 10),
		trade.Activity.UserAddress,
		trade.Activity.ConditionID,
		trade.Activity.Asset,
		string(trade.Activity.Side),
		strconv.FormatFloat(trade.Activity.Price, 'f', -1, 64),
		strconv.FormatFloat(trade.Activity.Size, 'f', -1, 64),
		strconv.FormatFloat(trade.Activity.UsdcSize, 'f', -1, 64),
		trade.Order.OrderID,
		trade.Order.Status,
		strconv.FormatBool(trade.Paper),
		strconv.FormatBool(trade.Aggregated),
		errText,
	}

	if err := e.w.Write(row); err != nil {
		return fmt.Errorf("export.ExportTrade: write row: %w", err)
	}
	e.w.Flush()
	return e.w.Error()
}

// Close flushes and closes the underlying file.
func (e *CSVExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.Flush()
	return e.f.Close()
}
