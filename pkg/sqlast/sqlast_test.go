package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucketCall(col string) *FuncCall {
	return &FuncCall{
		Name: "time_bucket",
		Args: []Expr{
			&IntervalLiteral{Value: "1 hour"},
			&ColumnRef{Column: col},
		},
	}
}

func TestEqualExpr(t *testing.T) {
	t.Run("column refs", func(t *testing.T) {
		assert.True(t, EqualExpr(&ColumnRef{Column: "ts"}, &ColumnRef{Column: "ts"}))
		assert.False(t, EqualExpr(&ColumnRef{Column: "ts"}, &ColumnRef{Table: "m", Column: "ts"}))
	})

	t.Run("parens are transparent", func(t *testing.T) {
		a := &ParenExpr{Expr: &ColumnRef{Column: "device_id"}}
		b := &ColumnRef{Column: "device_id"}
		assert.True(t, EqualExpr(a, b))
	})

	t.Run("func calls", func(t *testing.T) {
		assert.True(t, EqualExpr(bucketCall("ts"), bucketCall("ts")))
		assert.False(t, EqualExpr(bucketCall("ts"), bucketCall("created_at")))
	})

	t.Run("nil handling", func(t *testing.T) {
		assert.True(t, EqualExpr(nil, nil))
		assert.False(t, EqualExpr(nil, &Literal{Type: LiteralNumber, Value: "1"}))
	})
}

func TestCloneStmtIsDeep(t *testing.T) {
	orig := &SelectStmt{Body: &SelectBody{Left: &SelectCore{
		Columns: []SelectItem{
			{Expr: bucketCall("ts"), Alias: "bucket"},
			{Expr: &FuncCall{Name: "avg", Args: []Expr{&ColumnRef{Column: "temp"}}}},
		},
		From:    &FromClause{Source: &TableName{Schema: "public", Name: "metrics"}},
		GroupBy: []Expr{bucketCall("ts")},
	}}}

	cp := CloneStmt(orig)
	require.NotNil(t, cp)
	assert.True(t, EqualExpr(orig.Body.Left.Columns[0].Expr, cp.Body.Left.Columns[0].Expr))

	// Mutating the copy must not reach the original.
	cp.Body.Left.Columns[0].Expr.(*FuncCall).Name = "other"
	assert.Equal(t, "time_bucket", orig.Body.Left.Columns[0].Expr.(*FuncCall).Name)

	cp.Body.Left.From.Source.(*TableName).Name = "renamed"
	assert.Equal(t, "metrics", orig.Body.Left.From.Source.(*TableName).Name)
}

func TestCollectFuncCalls(t *testing.T) {
	stmt := &SelectStmt{Body: &SelectBody{Left: &SelectCore{
		Columns: []SelectItem{
			{Expr: bucketCall("ts")},
			{Expr: &FuncCall{Name: "min", Args: []Expr{&ColumnRef{Column: "temp"}}}},
		},
		Having: &BinaryExpr{
			Left:  &FuncCall{Name: "count", Star: true},
			Op:    ">",
			Right: &Literal{Type: LiteralNumber, Value: "10"},
		},
	}}}

	calls := CollectFuncCalls(stmt)
	require.Len(t, calls, 3)
}

func TestHasWindowFunction(t *testing.T) {
	stmt := &SelectStmt{Body: &SelectBody{Left: &SelectCore{
		Columns: []SelectItem{{Expr: &FuncCall{
			Name:   "row_number",
			Window: &WindowSpec{OrderBy: []OrderByItem{{Expr: &ColumnRef{Column: "ts"}}}},
		}}},
	}}}
	assert.True(t, HasWindowFunction(stmt))
	assert.False(t, HasWindowFunction(&SelectStmt{Body: &SelectBody{Left: &SelectCore{}}}))
}

func TestCore(t *testing.T) {
	plain := &SelectStmt{Body: &SelectBody{Left: &SelectCore{}}}
	assert.NotNil(t, Core(plain))

	union := &SelectStmt{Body: &SelectBody{
		Left:  &SelectCore{},
		Op:    SetOpUnionAll,
		Right: &SelectBody{Left: &SelectCore{}},
	}}
	assert.Nil(t, Core(union))
	assert.Nil(t, Core(nil))
}
