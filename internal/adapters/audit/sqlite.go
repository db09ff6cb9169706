// Package audit implements an optional, non-core persistence sink for
// executed trades (SPEC_FULL §8). It is never on the hot path: workers
// treat it as fire-and-forget and log failures without aborting.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/polymirror/copytrader/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    submitted_at_ms  INTEGER NOT NULL,
    user_address     TEXT    NOT NULL,
    condition_id     TEXT    NOT NULL,
    asset            TEXT    NOT NULL,
    side             TEXT    NOT NULL,
    price            REAL    NOT NULL,
    size             REAL    NOT NULL,
    usdc_size        REAL    NOT NULL,
    order_id         TEXT,
    status           TEXT,
    paper            INTEGER NOT NULL DEFAULT 0,
    aggregated       INTEGER NOT NULL DEFAULT 0,
    error            TEXT
);

CREATE INDEX IF NOT EXISTS idx_executions_submitted ON executions(submitted_at_ms DESC);
CREATE INDEX IF NOT EXISTS idx_executions_user       ON executions(user_address);
`

// SQLiteStore implements ports.AuditStore using the pure-Go sqlite
// driver (no CGo), following the teacher's storage-adapter pattern.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// RecordExecution inserts one execution row. It records failed live
// submissions too — the error column carries the submitter's error text.
func (s *SQLiteStore) RecordExecution(ctx context.Context, trade ports.ExecutedTrade) error {
	var errText *string
	if trade.Err != nil {
		s := trade.Err.Error()
		errText = &s
	}

	paper, aggregated := 0, 0
	if trade.Paper {
		paper = 1
	}
	if trade.Aggregated {
		aggregated = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
			(submitted_at_ms, user_address, condition_id, asset, side,
			 price, size, usdc_size, order_id, status, paper, aggregated, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trade.SubmittedAtMs,
		trade.Activity.UserAddress,
		trade.Activity.ConditionID,
		trade.Activity.Asset,
		string(trade.Activity.Side),
		trade.Activity.Price,
		trade.Activity.Size,
		trade.Activity.UsdcSize,
		trade.Order.OrderID,
		trade.Order.Status,
		paper,
		aggregated,
		errText,
	)
	if err != nil {
		return fmt.Errorf("audit.RecordExecution: insert: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
