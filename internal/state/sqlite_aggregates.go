package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const aggregateColumns = `id, view_schema, view_name, source_id, parent_id,
	direct_sql, partial_sql, user_sql, finalized, materialized_only,
	bucket_func, bucket_column, bucket_width, bucket_timezone, bucket_origin,
	created_at, updated_at`

// CreateAggregate inserts a new aggregate record inside the transaction
// and assigns its catalog id. Creation always runs transactionally with
// the objects it describes.
func (t *Tx) CreateAggregate(agg *Aggregate) error {
	now := time.Now().UTC()
	agg.CreatedAt = now
	agg.UpdatedAt = now
	res, err := t.tx.Exec(
		`INSERT INTO continuous_aggregates
		 (view_schema, view_name, source_id, parent_id, direct_sql, partial_sql, user_sql,
		  finalized, materialized_only, bucket_func, bucket_column, bucket_width,
		  bucket_timezone, bucket_origin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agg.ViewSchema, agg.ViewName, agg.SourceID, agg.ParentID,
		agg.DirectSQL, agg.PartialSQL, agg.UserSQL,
		boolInt(agg.Finalized), boolInt(agg.MaterializedOnly),
		agg.BucketFunc, agg.BucketColumn, agg.BucketWidth,
		agg.BucketTimezone, agg.BucketOrigin, agg.CreatedAt, agg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create aggregate: %w", err)
	}
	agg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read aggregate id: %w", err)
	}
	return nil
}

// GetAggregate retrieves an aggregate by catalog id.
func (s *SQLiteStore) GetAggregate(id int64) (*Aggregate, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return getAggregate(s.db, `WHERE id = ?`, id)
}

// GetAggregateByName retrieves an aggregate by its user view name.
func (s *SQLiteStore) GetAggregateByName(schema, name string) (*Aggregate, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return getAggregate(s.db, `WHERE view_schema = ? AND view_name = ?`, schema, name)
}

// GetAggregateByName retrieves an aggregate inside the transaction.
func (t *Tx) GetAggregateByName(schema, name string) (*Aggregate, error) {
	return getAggregate(t.tx, `WHERE view_schema = ? AND view_name = ?`, schema, name)
}

func getAggregate(db dbtx, where string, args ...any) (*Aggregate, error) {
	row := db.QueryRow(`SELECT `+aggregateColumns+` FROM continuous_aggregates `+where, args...)
	agg, err := scanAggregate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("aggregate: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate: %w", err)
	}
	return agg, nil
}

// ListAggregates returns all aggregates ordered by creation.
func (s *SQLiteStore) ListAggregates() ([]*Aggregate, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.Query(`SELECT ` + aggregateColumns + ` FROM continuous_aggregates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregates: %w", err)
	}
	defer rows.Close()

	var out []*Aggregate
	for rows.Next() {
		agg, err := scanAggregate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// ListChildren returns the aggregates built directly on top of one.
func (s *SQLiteStore) ListChildren(parentID int64) ([]*Aggregate, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.Query(
		`SELECT `+aggregateColumns+` FROM continuous_aggregates WHERE parent_id = ? ORDER BY id`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var out []*Aggregate
	for rows.Next() {
		agg, err := scanAggregate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func scanAggregate(scan func(...any) error) (*Aggregate, error) {
	agg := &Aggregate{}
	var parentID sql.NullInt64
	var finalized, matOnly int64
	err := scan(
		&agg.ID, &agg.ViewSchema, &agg.ViewName, &agg.SourceID, &parentID,
		&agg.DirectSQL, &agg.PartialSQL, &agg.UserSQL, &finalized, &matOnly,
		&agg.BucketFunc, &agg.BucketColumn, &agg.BucketWidth,
		&agg.BucketTimezone, &agg.BucketOrigin, &agg.CreatedAt, &agg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		agg.ParentID = &parentID.Int64
	}
	agg.Finalized = finalized != 0
	agg.MaterializedOnly = matOnly != 0
	return agg, nil
}

// UpdateCompiled fills in the compiler output for a freshly inserted
// record. Creation inserts first so the catalog id can name the
// generated objects, then writes the texts the compiler derived.
func (t *Tx) UpdateCompiled(agg *Aggregate) error {
	agg.UpdatedAt = time.Now().UTC()
	return execOne(t.tx,
		`UPDATE continuous_aggregates SET
		 direct_sql = ?, partial_sql = ?, user_sql = ?,
		 bucket_func = ?, bucket_column = ?, bucket_width = ?,
		 bucket_timezone = ?, bucket_origin = ?, updated_at = ?
		 WHERE id = ?`,
		agg.DirectSQL, agg.PartialSQL, agg.UserSQL,
		agg.BucketFunc, agg.BucketColumn, agg.BucketWidth,
		agg.BucketTimezone, agg.BucketOrigin, agg.UpdatedAt, agg.ID)
}

// UpdateDefinitions atomically swaps the stored population and user view
// texts, as the final step of a successful repair.
func (t *Tx) UpdateDefinitions(id int64, partialSQL, userSQL string) error {
	return execOne(t.tx,
		`UPDATE continuous_aggregates SET partial_sql = ?, user_sql = ?, updated_at = ? WHERE id = ?`,
		partialSQL, userSQL, time.Now().UTC(), id)
}

// RenameAggregate updates the user view name.
func (t *Tx) RenameAggregate(id int64, schema, name string) error {
	return execOne(t.tx,
		`UPDATE continuous_aggregates SET view_schema = ?, view_name = ?, updated_at = ? WHERE id = ?`,
		schema, name, time.Now().UTC(), id)
}

// SetMaterializedOnly flips real-time aggregation and stores the matching
// user view body.
func (t *Tx) SetMaterializedOnly(id int64, materializedOnly bool, userSQL string) error {
	return execOne(t.tx,
		`UPDATE continuous_aggregates SET materialized_only = ?, user_sql = ?, updated_at = ? WHERE id = ?`,
		boolInt(materializedOnly), userSQL, time.Now().UTC(), id)
}

// DeleteAggregate removes an aggregate and its watermark.
func (t *Tx) DeleteAggregate(id int64) error {
	if _, err := t.tx.Exec(`DELETE FROM watermarks WHERE aggregate_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete watermark: %w", err)
	}
	return execOne(t.tx, `DELETE FROM continuous_aggregates WHERE id = ?`, id)
}

func execOne(db dbtx, query string, args ...any) error {
	res, err := db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("catalog write failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog write failed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
