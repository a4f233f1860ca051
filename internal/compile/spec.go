package compile

import (
	"github.com/tidemark-db/tidemark/internal/types"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// Naming for generated objects. The backing table and the two internal
// views live in the internal schema, keyed by the catalog id assigned at
// creation.
const (
	InternalSchema = "_tidemark_internal"

	matTableFmt    = "_materialized_table_%d"
	partialViewFmt = "_partial_view_%d"
	directViewFmt  = "_direct_view_%d"

	// PartitionRefColumn is the bookkeeping column recording which source
	// partition each materialized row was computed from, so one row never
	// aggregates data across two partitions.
	PartitionRefColumn = "partition_ref"

	// DefaultBucketColumn names the bucket column when the declaration
	// gives the bucket expression no alias.
	DefaultBucketColumn = "time_partition_col"

	// PartitionWidthFactor scales the source partition width up for the
	// backing table, so each materialized partition covers many source
	// partitions.
	PartitionWidthFactor = 10
)

// Source describes the table a view aggregates over: a hypertable, or a
// finalized parent aggregate for hierarchical views.
type Source struct {
	ID     int64
	Schema string
	Name   string

	TimeColumn string
	ColumnType types.ColumnType

	// PartitionWidth for time-typed columns, IntegerWidth otherwise.
	PartitionWidth types.Interval
	IntegerWidth   int64

	// Columns maps column names to SQL type names, for materialization
	// column typing.
	Columns map[string]string

	RowSecurity bool

	// ParentBucket is set when the source is itself a continuous
	// aggregate; the child's bucket must stack on it.
	ParentBucket *TimeBucketSpec

	// JoinTable is the optional second FROM entry: a plain table
	// inner-joined to the hypertable on a single equality.
	JoinTable *JoinSource
}

// JoinSource is the plain side of a two-table declaration.
type JoinSource struct {
	Schema  string
	Name    string
	Alias   string
	Columns map[string]string
}

// ViewSpec is a parsed aggregate-view declaration.
type ViewSpec struct {
	Schema string
	Name   string
	Query  *sqlast.SelectStmt
}

// TimeBucketSpec describes the single bucket call extracted from GROUP BY.
type TimeBucketSpec struct {
	FuncName   string
	ColumnName string
	ColumnType types.ColumnType

	// Width for time-typed columns; IntegerWidth for integer columns.
	Width        types.Interval
	IntegerWidth int64

	// VariableWidth is set for month-containing widths, which have no
	// fixed tick length.
	VariableWidth bool

	Timezone string
	Origin   string // rendered origin literal, or ""

	// Call is the original bucket expression as written.
	Call *sqlast.FuncCall

	// ColumnAlias is the display alias the declaration gave the bucket,
	// and names the partition column of the backing table.
	ColumnAlias string
}

// WidthTicks returns the bucket width in ticks: microseconds for time
// columns, raw units for integer columns. Variable widths use the nominal
// 30-day month.
func (b *TimeBucketSpec) WidthTicks() int64 {
	if b.ColumnType.IsTimeType() {
		return b.Width.NominalTicks()
	}
	return b.IntegerWidth
}

// Column is one column of the backing table.
type Column struct {
	Name     string
	TypeName string
	NotNull  bool
}

// IndexSpec is one auxiliary index on the backing table.
type IndexSpec struct {
	Name    string
	Columns []string // rendered column list, bucket DESC last
}

// MaterializationSchema is the physical layout of the backing store.
type MaterializationSchema struct {
	TableSchema string
	TableName   string
	Columns     []Column

	PartitionColumn string
	PartitionWidth  int64 // ticks

	GroupIndexes []IndexSpec
}

// FinalizeDescriptor records what the decomposer needs to reconstruct one
// aggregate from its stored column.
type FinalizeDescriptor struct {
	AggName   string
	ArgTypes  []string
	Collation string
	Column    string // backing column holding the state (partial) or value (finalized)
	Display   string // externally visible output name
}

// Decomposition is the lockstep output of one decomposer walk.
type Decomposition struct {
	Columns []Column

	PopulationItems   []sqlast.SelectItem
	PopulationGroupBy []sqlast.Expr

	FinalizeItems   []sqlast.SelectItem
	FinalizeGroupBy []sqlast.Expr
	FinalizeHaving  sqlast.Expr

	Aggregates []FinalizeDescriptor

	BucketColumn string
	GroupColumns []string // auxiliary group column names, bucket excluded

	// OutputTypes is the SQL type of each user-visible output, in
	// projection order, as inferred from the declaration.
	OutputTypes []string
}

// UnionPlan is the composed real-time query plus what is needed to take
// it apart again.
type UnionPlan struct {
	Query *sqlast.SelectStmt

	BoundaryColumn string
	BoundarySQL    string

	MaterializedOnly bool
}

// Compiled is the full compiler output for one declaration.
type Compiled struct {
	Mode Mode

	Schema *MaterializationSchema
	Bucket *TimeBucketSpec

	// PopulationQuery computes rows for the backing table; the refresh
	// subsystem executes it per invalidated window.
	PopulationQuery *sqlast.SelectStmt

	// FinalizeQuery reconstructs user-facing rows from the backing table.
	FinalizeQuery *sqlast.SelectStmt

	// Union is the watermark-gated real-time query; its Query field is the
	// user view body unless MaterializedOnly.
	Union *UnionPlan

	// DirectQuery is the declaration itself, re-rendered; stored so repair
	// can recompile from exactly what was accepted.
	DirectQuery *sqlast.SelectStmt

	Decomposition *Decomposition
}
