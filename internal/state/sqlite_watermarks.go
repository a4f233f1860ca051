package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Watermark reads the watermark for an aggregate. ok is false when the
// refresh subsystem has not written one yet; readers coalesce that to the
// type's minimal bound.
func (s *SQLiteStore) Watermark(aggregateID int64) (value int64, ok bool, err error) {
	if s.db == nil {
		return 0, false, fmt.Errorf("database not opened")
	}
	err = s.db.QueryRow(
		`SELECT watermark FROM watermarks WHERE aggregate_id = ?`, aggregateID,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read watermark: %w", err)
	}
	return value, true, nil
}

// AdvanceWatermark moves the watermark forward. The register is
// monotonic: a value below the stored one is a no-op, never a regression.
func (s *SQLiteStore) AdvanceWatermark(aggregateID, value int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return advanceWatermark(s.db, aggregateID, value)
}

// AdvanceWatermark moves the watermark forward inside the transaction.
func (t *Tx) AdvanceWatermark(aggregateID, value int64) error {
	return advanceWatermark(t.tx, aggregateID, value)
}

func advanceWatermark(db dbtx, aggregateID, value int64) error {
	_, err := db.Exec(
		`INSERT INTO watermarks (aggregate_id, watermark, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (aggregate_id) DO UPDATE
		 SET watermark = MAX(watermark, excluded.watermark), updated_at = excluded.updated_at`,
		aggregateID, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}
