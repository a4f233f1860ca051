package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/render"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

func decomposeSQL(t *testing.T, sql string, src *Source, mode Mode) (*Decomposition, error) {
	t.Helper()
	core := NormalizeGroupBy(sqlast.Core(mustParse(t, sql)))
	bucket, err := ExtractBucket(core, src, dialect.Postgres)
	require.NoError(t, err)
	return Decompose(core, src, bucket, dialect.Postgres, mode)
}

func TestDecomposeAggregateDedup(t *testing.T) {
	// The same aggregate twice shares one state column.
	dec, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, avg(temp) AS a, avg(temp) + 1 AS shifted "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModePartial)
	require.NoError(t, err)

	states := 0
	for _, c := range dec.Columns {
		if c.TypeName == "bytea" {
			states++
		}
	}
	assert.Equal(t, 1, states)
	require.Len(t, dec.Aggregates, 1)
	assert.Equal(t, "a_state", dec.Aggregates[0].Column)
}

func TestDecomposeDistinctStateColumns(t *testing.T) {
	dec, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, avg(temp), sum(temp) "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModePartial)
	require.NoError(t, err)

	require.Len(t, dec.Aggregates, 2)
	assert.Equal(t, "avg_state", dec.Aggregates[0].Column)
	assert.Equal(t, "sum_state", dec.Aggregates[1].Column)
}

func TestDecomposeColumnRefOutsideAggregate(t *testing.T) {
	// device appears inside arithmetic with an aggregate and as a group
	// column; both references map to one materialized column.
	dec, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, device, count(*) "+
			"FROM sensors GROUP BY bucket, device",
		sensorsSource(t), ModePartial)
	require.NoError(t, err)

	devices := 0
	for _, c := range dec.Columns {
		if c.Name == "device" {
			devices++
		}
	}
	assert.Equal(t, 1, devices)
	assert.Equal(t, []string{"device"}, dec.GroupColumns)
}

func TestDecomposeGroupOnlyColumnMaterialized(t *testing.T) {
	// Grouped but never selected: still needs a backing column so the
	// finalize side can re-aggregate per group.
	dec, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, avg(temp) "+
			"FROM sensors GROUP BY bucket, device",
		sensorsSource(t), ModePartial)
	require.NoError(t, err)

	found := false
	for _, c := range dec.Columns {
		if c.Name == "device" {
			found = true
			assert.Equal(t, "text", c.TypeName)
		}
	}
	assert.True(t, found)
	assert.Equal(t, []string{"device"}, dec.GroupColumns)
	assert.Len(t, dec.FinalizeGroupBy, 2)
}

func TestDecomposeUnprojectedBucket(t *testing.T) {
	// Grouped on the bucket without selecting it: the backing table still
	// stores and partitions on the bucket column, under the default name.
	dec, err := decomposeSQL(t,
		"SELECT device, avg(temp) FROM sensors GROUP BY time_bucket('1 hour', ts), device",
		sensorsSource(t), ModePartial)
	require.NoError(t, err)

	assert.Equal(t, "time_partition_col", dec.BucketColumn)
	found := false
	for _, c := range dec.Columns {
		if c.Name == "time_partition_col" {
			found = true
			assert.Equal(t, "timestamptz", c.TypeName)
			assert.True(t, c.NotNull)
		}
	}
	assert.True(t, found)

	groups := make([]string, 0, len(dec.PopulationGroupBy))
	for _, g := range dec.PopulationGroupBy {
		groups = append(groups, render.Expr(g))
	}
	assert.Contains(t, groups, "time_bucket('1 hour', ts)")

	// The finalize projection carries only the declared outputs.
	for _, item := range dec.FinalizeItems {
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok {
			assert.NotEqual(t, "time_partition_col", ref.Column)
		}
	}
	require.Len(t, dec.FinalizeGroupBy, 2)
}

func TestDecomposeBookkeepingColumn(t *testing.T) {
	dec, err := decomposeSQL(t, sensorsDecl, sensorsSource(t), ModePartial)
	require.NoError(t, err)

	last := dec.Columns[len(dec.Columns)-1]
	assert.Equal(t, "partition_ref", last.Name)
	assert.Equal(t, "integer", last.TypeName)

	lastGroup := dec.PopulationGroupBy[len(dec.PopulationGroupBy)-1]
	assert.Equal(t, "_tidemark_internal.partition_ref(tableoid)", render.Expr(lastGroup))
}

func TestDecomposeFinalizedSkipsBookkeeping(t *testing.T) {
	dec, err := decomposeSQL(t, sensorsDecl, sensorsSource(t), ModeFinalized)
	require.NoError(t, err)
	for _, c := range dec.Columns {
		assert.NotEqual(t, "partition_ref", c.Name)
		assert.NotEqual(t, "bytea", c.TypeName)
	}
}

func TestDecomposeRejectsUngrouped(t *testing.T) {
	_, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, device, avg(temp) "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModePartial)
	var uerr *UnsupportedQueryError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, ReasonUngroupedColumn, uerr.Reason)
}

func TestDecomposeRejectsVolatile(t *testing.T) {
	_, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, avg(temp + random()) "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModePartial)
	var perr *ImpureExpressionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "random", perr.Function)
}

func TestDecomposeRejectsUnknownAggregate(t *testing.T) {
	_, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, my_agg(temp) "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModePartial)
	var uerr *UnsupportedQueryError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, ReasonUnknownAggregate, uerr.Reason)
}

func TestDecomposePartialRejectsDistinctAggregate(t *testing.T) {
	_, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, count(DISTINCT device) "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModePartial)
	var uerr *UnsupportedQueryError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, ReasonDistinct, uerr.Reason)
}

func TestDecomposeFinalizedAllowsFilteredAggregate(t *testing.T) {
	dec, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, count(*) FILTER (WHERE temp > 30) AS hot "+
			"FROM sensors GROUP BY bucket",
		sensorsSource(t), ModeFinalized)
	require.NoError(t, err)
	assert.Equal(t, "hot", dec.Columns[1].Name)
}

func TestDecomposeHavingUnmatchedAggregate(t *testing.T) {
	// max(temp) is only in HAVING; it still gets a state column.
	dec, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, avg(temp) "+
			"FROM sensors GROUP BY bucket HAVING max(temp) > 90",
		sensorsSource(t), ModePartial)
	require.NoError(t, err)

	require.Len(t, dec.Aggregates, 2)
	assert.Equal(t, "max_state", dec.Aggregates[1].Column)
	require.NotNil(t, dec.FinalizeHaving)
	assert.Contains(t, render.Expr(dec.FinalizeHaving), "finalize_agg('max'")
}

func TestDecomposeHavingUnmatchedColumnRejected(t *testing.T) {
	_, err := decomposeSQL(t,
		"SELECT time_bucket('1 hour', ts) AS bucket, avg(temp) "+
			"FROM sensors GROUP BY bucket HAVING temp > 90",
		sensorsSource(t), ModePartial)
	var uerr *UnsupportedQueryError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, ReasonUnmatchedHaving, uerr.Reason)
}

func TestNormalizeGroupByResolvesAliases(t *testing.T) {
	core := sqlast.Core(mustParse(t, sensorsDecl))
	normalized := NormalizeGroupBy(core)

	fc, ok := normalized.GroupBy[0].(*sqlast.FuncCall)
	require.True(t, ok)
	assert.Equal(t, "time_bucket", fc.Name)
	// The original tree is untouched.
	_, ok = core.GroupBy[0].(*sqlast.ColumnRef)
	assert.True(t, ok)
}
