package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RegisterHypertable records a time-partitioned source table and assigns
// its catalog id.
func (s *SQLiteStore) RegisterHypertable(ht *Hypertable) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return registerHypertable(s.db, ht)
}

// RegisterHypertable records a hypertable inside the transaction.
func (t *Tx) RegisterHypertable(ht *Hypertable) error {
	return registerHypertable(t.tx, ht)
}

func registerHypertable(db dbtx, ht *Hypertable) error {
	ht.CreatedAt = time.Now().UTC()
	res, err := db.Exec(
		`INSERT INTO hypertables (schema_name, table_name, time_column, column_type, partition_width, row_security, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ht.Schema, ht.Name, ht.TimeColumn, ht.ColumnType, ht.PartitionWidth, boolInt(ht.RowSecurity), ht.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to register hypertable: %w", err)
	}
	ht.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read hypertable id: %w", err)
	}
	return nil
}

// GetHypertable looks a hypertable up by schema and name.
func (s *SQLiteStore) GetHypertable(schema, name string) (*Hypertable, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return getHypertable(s.db, schema, name)
}

// GetHypertable looks a hypertable up inside the transaction.
func (t *Tx) GetHypertable(schema, name string) (*Hypertable, error) {
	return getHypertable(t.tx, schema, name)
}

func getHypertable(db dbtx, schema, name string) (*Hypertable, error) {
	ht := &Hypertable{}
	var rowSecurity int64
	err := db.QueryRow(
		`SELECT id, schema_name, table_name, time_column, column_type, partition_width, row_security, created_at
		 FROM hypertables WHERE schema_name = ? AND table_name = ?`,
		schema, name,
	).Scan(&ht.ID, &ht.Schema, &ht.Name, &ht.TimeColumn, &ht.ColumnType, &ht.PartitionWidth, &rowSecurity, &ht.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hypertable %s.%s: %w", schema, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hypertable: %w", err)
	}
	ht.RowSecurity = rowSecurity != 0
	return ht, nil
}

// DeleteHypertable removes a hypertable record. Used when dropping an
// aggregate whose backing table was registered as a hypertable.
func (t *Tx) DeleteHypertable(id int64) error {
	return execOne(t.tx, `DELETE FROM hypertables WHERE id = ?`, id)
}

// GetHypertableByID looks a hypertable up by catalog id.
func (s *SQLiteStore) GetHypertableByID(id int64) (*Hypertable, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	ht := &Hypertable{}
	var rowSecurity int64
	err := s.db.QueryRow(
		`SELECT id, schema_name, table_name, time_column, column_type, partition_width, row_security, created_at
		 FROM hypertables WHERE id = ?`,
		id,
	).Scan(&ht.ID, &ht.Schema, &ht.Name, &ht.TimeColumn, &ht.ColumnType, &ht.PartitionWidth, &rowSecurity, &ht.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hypertable %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hypertable: %w", err)
	}
	ht.RowSecurity = rowSecurity != 0
	return ht, nil
}

// ListHypertables returns every registered hypertable ordered by name.
func (s *SQLiteStore) ListHypertables() ([]*Hypertable, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.Query(
		`SELECT id, schema_name, table_name, time_column, column_type, partition_width, row_security, created_at
		 FROM hypertables ORDER BY schema_name, table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hypertables: %w", err)
	}
	defer rows.Close()

	var hts []*Hypertable
	for rows.Next() {
		ht := &Hypertable{}
		var rowSecurity int64
		if err := rows.Scan(&ht.ID, &ht.Schema, &ht.Name, &ht.TimeColumn, &ht.ColumnType, &ht.PartitionWidth, &rowSecurity, &ht.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hypertable: %w", err)
		}
		ht.RowSecurity = rowSecurity != 0
		hts = append(hts, ht)
	}
	return hts, rows.Err()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
