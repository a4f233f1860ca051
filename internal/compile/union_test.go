package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-db/tidemark/internal/types"
	"github.com/tidemark-db/tidemark/pkg/render"
)

func TestBoundaryExpr(t *testing.T) {
	assert.Equal(t,
		"coalesce(_tidemark_internal.to_timestamp(_tidemark_internal.watermark(7)), CAST('-infinity' AS timestamptz))",
		render.Expr(BoundaryExpr(7, types.TimestampTZ)))
	assert.Equal(t,
		"coalesce(_tidemark_internal.watermark(7), CAST(-9223372036854775808 AS bigint))",
		render.Expr(BoundaryExpr(7, types.Int8)))
}

func TestInvertUnionRoundTrip(t *testing.T) {
	compiled := compileSensors(t, DefaultOptions())

	materialized, err := InvertUnion(compiled.Union.Query, true)
	require.NoError(t, err)
	assert.Equal(t, render.Statement(compiled.FinalizeQuery), render.Statement(materialized))

	live, err := InvertUnion(compiled.Union.Query, false)
	require.NoError(t, err)
	assert.Equal(t, render.Statement(compiled.DirectQuery), render.Statement(live))
}

func TestInvertUnionRejectsOtherShapes(t *testing.T) {
	_, err := InvertUnion(mustParse(t, "SELECT 1"), true)
	require.Error(t, err)

	_, err = InvertUnion(mustParse(t, "SELECT 1 UNION SELECT 2"), true)
	require.Error(t, err)
}

func TestComposeUnionShapeMismatch(t *testing.T) {
	_, err := ComposeUnion(7,
		mustParse(t, "SELECT a, b FROM m"),
		mustParse(t, "SELECT a FROM r"),
		nil, "a", types.TimestampTZ, false)
	require.Error(t, err)
}

func TestComposeUnionTypeMismatch(t *testing.T) {
	dec := &Decomposition{
		Columns: []Column{
			{Name: "bucket", TypeName: "timestamptz"},
			{Name: "total", TypeName: "bigint"},
		},
		OutputTypes:  []string{"timestamptz", "numeric"},
		BucketColumn: "bucket",
	}
	_, err := ComposeUnion(7,
		mustParse(t, "SELECT bucket AS bucket, total AS total FROM m"),
		mustParse(t, "SELECT time_bucket('1 hour', ts) AS bucket, sum(v) AS total FROM r GROUP BY bucket"),
		dec, "bucket", types.TimestampTZ, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bigint")

	dec.OutputTypes[1] = "bigint"
	_, err = ComposeUnion(7,
		mustParse(t, "SELECT bucket AS bucket, total AS total FROM m"),
		mustParse(t, "SELECT time_bucket('1 hour', ts) AS bucket, sum(v) AS total FROM r GROUP BY bucket"),
		dec, "bucket", types.TimestampTZ, false)
	require.NoError(t, err)
}

func TestBuildSchemaPartitionWidth(t *testing.T) {
	compiled := compileSensors(t, DefaultOptions())
	// 10x the source's 1 day partition width, in microseconds.
	assert.Equal(t, int64(10*86_400_000_000), compiled.Schema.PartitionWidth)
	assert.Equal(t, "bucket", compiled.Schema.PartitionColumn)
	assert.Equal(t, "_tidemark_internal", compiled.Schema.TableSchema)
	assert.Equal(t, "_materialized_table_7", compiled.Schema.TableName)
}

func TestBuildSchemaGroupIndexes(t *testing.T) {
	compiled := compileSensors(t, DefaultOptions())
	require.Len(t, compiled.Schema.GroupIndexes, 1)
	idx := compiled.Schema.GroupIndexes[0]
	assert.Equal(t, "_materialized_table_7_device_idx", idx.Name)
	assert.Equal(t, []string{"device", "bucket DESC"}, idx.Columns)

	plain := compileSensors(t, Options{Finalized: true})
	assert.Empty(t, plain.Schema.GroupIndexes)
}

func TestInitialInvalidationIsFullyOpen(t *testing.T) {
	low, high := InitialInvalidation(types.TimestampTZ)
	assert.Equal(t, int64(-9223372036854775808), low)
	assert.Equal(t, int64(9223372036854775807), high)

	low, high = InitialInvalidation(types.Int4)
	assert.Equal(t, int64(-2147483648), low)
	assert.Equal(t, int64(2147483647), high)
}
