package compile

import (
	"fmt"

	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// Validate checks that a declaration has a shape the compiler can
// materialize. It never mutates or silently drops anything: every
// unsupported construct is an explicit rejection.
//
// Locking clauses and GROUPING SETS never reach this layer; the parser has
// no production for them and fails with a positioned syntax error first.
func Validate(spec *ViewSpec, src *Source, d *dialect.Dialect, mode Mode) error {
	if spec == nil || spec.Query == nil || spec.Query.Body == nil {
		return unsupported(ReasonNotSelect, "declaration is not a SELECT statement",
			"declare the view as a single SELECT over the source table")
	}
	stmt := spec.Query

	if stmt.With != nil {
		return unsupported(ReasonCTE, "WITH clauses are not supported",
			"inline the common table expression into the view query")
	}

	if stmt.Body.Right != nil {
		return unsupported(ReasonSetOperation,
			fmt.Sprintf("%s between queries is not supported", stmt.Body.Op),
			"declare one aggregate view per branch instead")
	}

	core := stmt.Body.Left
	if core == nil {
		return unsupported(ReasonNotSelect, "empty query body", "")
	}

	if core.Distinct {
		return unsupported(ReasonDistinct, "SELECT DISTINCT is not supported",
			"grouped aggregation already yields one row per group")
	}

	if sqlast.HasWindowFunction(stmt) {
		return unsupported(ReasonWindowFunction, "window functions are not supported",
			"window results depend on rows outside a single bucket")
	}

	if core.Limit != nil || core.Offset != nil {
		return unsupported(ReasonLimitOffset, "LIMIT/OFFSET is not supported",
			"apply limits when querying the view instead")
	}

	if len(core.OrderBy) > 0 && mode == ModePartial {
		return unsupported(ReasonOrderBy, "ORDER BY is not supported with partial aggregation",
			"order results when querying the view, or use the finalized pipeline")
	}

	if sqlast.HasSubquery(stmt) {
		return unsupported(ReasonSubquery, "subqueries are not supported",
			"materialize the inner query as its own view or plain table")
	}

	for _, fc := range sqlast.CollectFuncCalls(stmt) {
		if d.IsSetReturning(fc.Name) {
			return unsupported(ReasonSubquery,
				fmt.Sprintf("set-returning function %s is not supported", fc.Name),
				"expand rows in the source table before aggregating")
		}
	}

	if len(core.GroupBy) == 0 {
		return unsupported(ReasonMissingGroupBy, "query has no GROUP BY",
			"group by a time_bucket over the partition column")
	}
	for _, g := range core.GroupBy {
		if fc, ok := g.(*sqlast.FuncCall); ok {
			switch fc.Name {
			case "rollup", "cube", "grouping":
				return unsupported(ReasonMissingGroupBy,
					fmt.Sprintf("GROUP BY %s is not supported", fc.Name),
					"use a plain grouping expression list")
			}
		}
	}

	if src != nil && src.RowSecurity {
		return unsupported(ReasonRowSecurity,
			fmt.Sprintf("source table %s.%s has row-level security enabled", src.Schema, src.Name),
			"materialized rows would bypass the row policy")
	}

	return validateFrom(core, src)
}

// validateFrom enforces the allowed FROM shapes: the source table alone,
// or the source inner-joined with exactly one plain table on a single
// equality predicate.
func validateFrom(core *sqlast.SelectCore, src *Source) error {
	if core.From == nil {
		return unsupported(ReasonInvalidFrom, "query has no FROM clause",
			"aggregate over the source table")
	}

	if _, ok := core.From.Source.(*sqlast.TableName); !ok {
		return unsupported(ReasonInvalidFrom, "FROM must reference a table by name", "")
	}

	switch len(core.From.Joins) {
	case 0:
		return nil
	case 1:
		// one join, checked below
	default:
		return unsupported(ReasonInvalidJoin,
			fmt.Sprintf("%d joins in FROM; at most one is supported", len(core.From.Joins)),
			"join at most one plain table to the partitioned source")
	}

	join := core.From.Joins[0]
	if join.Type != sqlast.JoinInner {
		return unsupported(ReasonInvalidJoin,
			fmt.Sprintf("%s join is not supported", join.Type),
			"only INNER JOIN is materializable")
	}
	if _, ok := join.Right.(*sqlast.TableName); !ok {
		return unsupported(ReasonInvalidJoin, "join target must be a table name", "")
	}
	if !isSingleEquality(join.Condition) {
		return unsupported(ReasonInvalidJoin,
			"join condition must be a single column equality",
			"rewrite the ON clause as left.col = right.col")
	}

	if src != nil && src.ParentBucket != nil {
		return unsupported(ReasonInvalidJoin,
			"joins are not supported on views over other aggregate views", "")
	}

	return nil
}

func isSingleEquality(cond sqlast.Expr) bool {
	if p, ok := cond.(*sqlast.ParenExpr); ok {
		return isSingleEquality(p.Expr)
	}
	be, ok := cond.(*sqlast.BinaryExpr)
	if !ok || be.Op != "=" {
		return false
	}
	_, lok := be.Left.(*sqlast.ColumnRef)
	_, rok := be.Right.(*sqlast.ColumnRef)
	return lok && rok
}
