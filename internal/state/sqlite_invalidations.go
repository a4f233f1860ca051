package state

import (
	"fmt"
	"time"
)

// LogInvalidation records a stale window on a hypertable. The refresh
// subsystem consumes these to decide what to recompute.
func (s *SQLiteStore) LogInvalidation(hypertableID, lowest, greatest int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return logInvalidation(s.db, hypertableID, lowest, greatest)
}

// LogInvalidation records a stale window inside the transaction. Creation
// uses this to register the initial fully-open window.
func (t *Tx) LogInvalidation(hypertableID, lowest, greatest int64) error {
	return logInvalidation(t.tx, hypertableID, lowest, greatest)
}

func logInvalidation(db dbtx, hypertableID, lowest, greatest int64) error {
	if lowest > greatest {
		return fmt.Errorf("invalid invalidation window [%d, %d]", lowest, greatest)
	}
	_, err := db.Exec(
		`INSERT INTO invalidations (hypertable_id, lowest, greatest, logged_at) VALUES (?, ?, ?, ?)`,
		hypertableID, lowest, greatest, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to log invalidation: %w", err)
	}
	return nil
}

// Invalidations returns the logged stale windows for a hypertable in
// ascending lower-bound order.
func (s *SQLiteStore) Invalidations(hypertableID int64) ([]*Invalidation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.Query(
		`SELECT id, hypertable_id, lowest, greatest, logged_at
		 FROM invalidations WHERE hypertable_id = ? ORDER BY lowest, id`,
		hypertableID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invalidations: %w", err)
	}
	defer rows.Close()

	var out []*Invalidation
	for rows.Next() {
		inv := &Invalidation{}
		if err := rows.Scan(&inv.ID, &inv.HypertableID, &inv.Lowest, &inv.Greatest, &inv.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invalidation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// DeleteInvalidationsFor removes every window logged against a
// hypertable, as part of dropping it.
func (t *Tx) DeleteInvalidationsFor(hypertableID int64) error {
	if _, err := t.tx.Exec(`DELETE FROM invalidations WHERE hypertable_id = ?`, hypertableID); err != nil {
		return fmt.Errorf("failed to delete invalidations for hypertable %d: %w", hypertableID, err)
	}
	return nil
}

// DeleteInvalidations removes consumed windows by id.
func (s *SQLiteStore) DeleteInvalidations(ids ...int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	for _, id := range ids {
		if _, err := s.db.Exec(`DELETE FROM invalidations WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete invalidation %d: %w", id, err)
		}
	}
	return nil
}
