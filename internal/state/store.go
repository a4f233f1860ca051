// Package state is the durable catalog for continuous aggregates. It
// records hypertables, aggregate definitions, watermarks, and the
// invalidation log in SQLite. The catalog entry is the only durable
// artifact: everything else the compiler produces is re-derived from the
// stored view texts.
package state

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("not found")

// Hypertable is one registered time-partitioned source table.
type Hypertable struct {
	ID         int64
	Schema     string
	Name       string
	TimeColumn string

	// ColumnType is the partition column's type name (timestamptz,
	// bigint, ...).
	ColumnType string

	// PartitionWidth is the source partition width in ticks.
	PartitionWidth int64

	RowSecurity bool
	CreatedAt   time.Time
}

// Aggregate is the durable record for one continuous aggregate.
type Aggregate struct {
	ID         int64
	ViewSchema string
	ViewName   string

	SourceID int64
	ParentID *int64 // set for hierarchical aggregates

	// DirectSQL is the declaration exactly as accepted; PartialSQL and
	// UserSQL are the population query and the user view body derived
	// from it.
	DirectSQL  string
	PartialSQL string
	UserSQL    string

	Finalized        bool
	MaterializedOnly bool

	BucketFunc     string
	BucketColumn   string
	BucketWidth    string
	BucketTimezone string
	BucketOrigin   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Invalidation is one logged stale window on a hypertable, in ticks.
type Invalidation struct {
	ID           int64
	HypertableID int64
	Lowest       int64
	Greatest     int64
	LoggedAt     time.Time
}
