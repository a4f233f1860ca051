package compile

import (
	"fmt"
	"strings"

	"github.com/tidemark-db/tidemark/internal/types"
	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/render"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// BoundaryExpr builds the watermark boundary for one aggregate: the
// stored watermark converted back to the partition column's type, or the
// type's minimal bound while the register is still empty. The watermark
// is written by the refresh subsystem; it is read here as an opaque,
// possibly-absent value and never waited on.
func BoundaryExpr(matID int64, columnType types.ColumnType) sqlast.Expr {
	var wm sqlast.Expr = &sqlast.FuncCall{
		Schema: InternalSchema,
		Name:   "watermark",
		Args:   []sqlast.Expr{&sqlast.Literal{Type: sqlast.LiteralNumber, Value: fmt.Sprintf("%d", matID)}},
	}
	if conv := columnType.ConverterFunc(); conv != "" {
		wm = &sqlast.FuncCall{Schema: InternalSchema, Name: conv, Args: []sqlast.Expr{wm}}
	}
	return &sqlast.FuncCall{
		Name: "coalesce",
		Args: []sqlast.Expr{wm, minBoundExpr(columnType)},
	}
}

func minBoundExpr(columnType types.ColumnType) sqlast.Expr {
	if columnType.IsTimeType() {
		return &sqlast.CastExpr{
			Expr:     &sqlast.Literal{Type: sqlast.LiteralString, Value: "-infinity"},
			TypeName: columnType.SQLName(),
		}
	}
	return &sqlast.CastExpr{
		Expr:     &sqlast.Literal{Type: sqlast.LiteralNumber, Value: fmt.Sprintf("%d", minTick(columnType))},
		TypeName: columnType.SQLName(),
	}
}

// ComposeUnion stitches the finalize query and the raw declaration into
// the real-time view body: materialized rows strictly below the watermark
// boundary, live rows at or above it. Output names come from the two
// branches' own select lists, which both carry the declaration's display
// aliases, so regenerating internal columns never renames a user-visible
// column. Materialized-only mode keeps just the finalize branch with no
// boundary predicate.
func ComposeUnion(matID int64, finalize, raw *sqlast.SelectStmt, dec *Decomposition, bucketColumn string, columnType types.ColumnType, materializedOnly bool) (*UnionPlan, error) {
	if err := checkBranchShapes(finalize, raw, dec); err != nil {
		return nil, err
	}
	if materializedOnly {
		return &UnionPlan{
			Query:            sqlast.CloneStmt(finalize),
			BoundaryColumn:   bucketColumn,
			MaterializedOnly: true,
		}, nil
	}

	ops, err := dialect.ComparisonOpsFor(columnType.SQLName())
	if err != nil {
		return nil, err
	}
	boundary := BoundaryExpr(matID, columnType)

	left := branchCore(finalize, "materialized", bucketColumn, ops.Less, boundary)
	right := branchCore(raw, "live", bucketColumn, ops.Negator, boundary)

	plan := &UnionPlan{
		Query: &sqlast.SelectStmt{
			Body: &sqlast.SelectBody{
				Left:  left,
				Op:    sqlast.SetOpUnionAll,
				Right: &sqlast.SelectBody{Left: right},
			},
		},
		BoundaryColumn: bucketColumn,
		BoundarySQL:    render.Expr(boundary),
	}
	return plan, nil
}

// branchCore wraps one side as SELECT * FROM (side) AS alias WHERE
// bucket op boundary. The live side filters on the declaration's display
// alias for the bucket, which the raw query projects.
func branchCore(side *sqlast.SelectStmt, alias, bucketColumn, op string, boundary sqlast.Expr) *sqlast.SelectCore {
	return &sqlast.SelectCore{
		Columns: []sqlast.SelectItem{{Star: true}},
		From: &sqlast.FromClause{
			Source: &sqlast.DerivedTable{Select: sqlast.CloneStmt(side), Alias: alias},
		},
		Where: &sqlast.BinaryExpr{
			Left:  &sqlast.ColumnRef{Column: bucketColumn},
			Op:    op,
			Right: sqlast.CloneExpr(boundary),
		},
	}
}

// checkBranchShapes unifies the two branches: the same number of
// columns, and where the finalize side reads a backing column directly,
// the stored column's type must still match the declaration's output
// type at that position. Bookkeeping columns never reach either
// projection, so any mismatch means the stored definitions have drifted.
func checkBranchShapes(finalize, raw *sqlast.SelectStmt, dec *Decomposition) error {
	fc, rc := sqlast.Core(finalize), sqlast.Core(raw)
	if fc == nil || rc == nil {
		return fmt.Errorf("union branches must be plain selects")
	}
	if len(fc.Columns) != len(rc.Columns) {
		return fmt.Errorf("union branches project %d and %d columns", len(fc.Columns), len(rc.Columns))
	}
	if dec == nil {
		return nil
	}
	if len(dec.OutputTypes) != len(fc.Columns) {
		return fmt.Errorf("union branches project %d columns but the decomposition records %d outputs",
			len(fc.Columns), len(dec.OutputTypes))
	}
	stored := make(map[string]string, len(dec.Columns))
	for _, c := range dec.Columns {
		stored[c.Name] = c.TypeName
	}
	for i, item := range fc.Columns {
		ref, ok := item.Expr.(*sqlast.ColumnRef)
		if !ok {
			continue
		}
		colType, ok := stored[ref.Column]
		if !ok {
			return fmt.Errorf("union branch reads %s, which no backing column stores", ref.Column)
		}
		if !typesUnify(colType, dec.OutputTypes[i]) {
			return fmt.Errorf("output %d is %s in the backing table but %s in the declaration",
				i+1, colType, dec.OutputTypes[i])
		}
	}
	return nil
}

// typesUnify compares two SQL type names ignoring typmod, so varchar(10)
// unifies with varchar.
func typesUnify(a, b string) bool {
	return baseTypeName(a) == baseTypeName(b)
}

func baseTypeName(t string) string {
	if i := strings.Index(t, "("); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// InvertUnion pattern-matches the two-branch real-time shape built by
// ComposeUnion and returns the requested leg's inner query with its
// boundary filter removed. This is how real-time aggregation is toggled
// without recompiling the whole view.
func InvertUnion(stmt *sqlast.SelectStmt, materialized bool) (*sqlast.SelectStmt, error) {
	if stmt == nil || stmt.Body == nil || stmt.Body.Op != sqlast.SetOpUnionAll ||
		stmt.Body.Right == nil || stmt.Body.Right.Op != sqlast.SetOpNone {
		return nil, fmt.Errorf("query is not a two-branch UNION ALL")
	}
	core := stmt.Body.Left
	if !materialized {
		core = stmt.Body.Right.Left
	}
	if core == nil || core.From == nil {
		return nil, fmt.Errorf("union branch has no FROM clause")
	}
	derived, ok := core.From.Source.(*sqlast.DerivedTable)
	if !ok {
		return nil, fmt.Errorf("union branch is not a wrapped subquery")
	}
	return sqlast.CloneStmt(derived.Select), nil
}
