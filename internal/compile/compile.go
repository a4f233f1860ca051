// Package compile turns a declarative aggregate query into the artifacts
// that keep it incrementally materialized: a population query that
// computes rows for the backing table, a finalize query that
// reconstructs user-facing results from stored state, the backing
// table's physical schema, and the watermark-gated real-time view body.
// Everything here is a pure AST-to-AST transformation; the compiler
// executes nothing and regenerates every artifact from the stored
// declaration on each recompile.
package compile

import (
	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// Compile rewrites one declaration. matID keys the generated objects and
// the watermark register; it is assigned by the catalog before the first
// compile and stable for the aggregate's lifetime.
func Compile(spec *ViewSpec, src *Source, d *dialect.Dialect, matID int64, opts Options) (*Compiled, error) {
	mode := opts.Mode()
	if err := Validate(spec, src, d, mode); err != nil {
		return nil, err
	}
	core := NormalizeGroupBy(sqlast.Core(spec.Query))

	bucket, err := ExtractBucket(core, src, d)
	if err != nil {
		return nil, err
	}
	dec, err := Decompose(core, src, bucket, d, mode)
	if err != nil {
		return nil, err
	}
	// A bucket that is grouped but never selected still materializes, but
	// the real-time branches have no projected column to gate on.
	if !opts.MaterializedOnly && !projectsBucket(dec) {
		return nil, unsupported(ReasonUnprojectedBucket,
			"the bucket expression is grouped but not selected",
			"select the bucket expression, or create the view with materialized-only refresh")
	}

	schema := BuildSchema(matID, dec, bucket, src, opts)
	population := populationQuery(core, dec, mode)
	finalize := finalizeQuery(schema, dec, mode)
	direct := sqlast.CloneStmt(spec.Query)

	union, err := ComposeUnion(matID, finalize, direct, dec, bucketDisplay(dec), src.ColumnType, opts.MaterializedOnly)
	if err != nil {
		return nil, err
	}

	return &Compiled{
		Mode:            mode,
		Schema:          schema,
		Bucket:          bucket,
		PopulationQuery: population,
		FinalizeQuery:   finalize,
		Union:           union,
		DirectQuery:     direct,
		Decomposition:   dec,
	}, nil
}

// populationQuery keeps the declaration's FROM and WHERE and swaps in the
// decomposed select list and grouping. Finalized mode stores finished
// values, so HAVING and ORDER BY run here; partial mode defers HAVING to
// the finalize side, where the aggregates it filters on exist.
func populationQuery(core *sqlast.SelectCore, dec *Decomposition, mode Mode) *sqlast.SelectStmt {
	out := &sqlast.SelectCore{
		Columns: append([]sqlast.SelectItem(nil), dec.PopulationItems...),
		From:    sqlast.CloneCore(core).From,
		Where:   sqlast.CloneExpr(core.Where),
		GroupBy: append([]sqlast.Expr(nil), dec.PopulationGroupBy...),
	}
	if mode == ModeFinalized {
		out.Having = sqlast.CloneExpr(core.Having)
		for _, o := range core.OrderBy {
			item := sqlast.OrderByItem{Expr: sqlast.CloneExpr(o.Expr), Desc: o.Desc}
			if o.NullsFirst != nil {
				v := *o.NullsFirst
				item.NullsFirst = &v
			}
			out.OrderBy = append(out.OrderBy, item)
		}
	}
	return &sqlast.SelectStmt{Body: &sqlast.SelectBody{Left: out}}
}

// finalizeQuery reads the backing table back out under the declaration's
// display names. Partial mode re-aggregates the stored state, merging the
// per-partition rows the bookkeeping column split; finalized mode is a
// plain projection.
func finalizeQuery(schema *MaterializationSchema, dec *Decomposition, mode Mode) *sqlast.SelectStmt {
	core := &sqlast.SelectCore{
		Columns: append([]sqlast.SelectItem(nil), dec.FinalizeItems...),
		From: &sqlast.FromClause{
			Source: &sqlast.TableName{Schema: schema.TableSchema, Name: schema.TableName},
		},
	}
	if mode == ModePartial {
		core.GroupBy = append([]sqlast.Expr(nil), dec.FinalizeGroupBy...)
		core.Having = dec.FinalizeHaving
	}
	return &sqlast.SelectStmt{Body: &sqlast.SelectBody{Left: core}}
}

// projectsBucket reports whether the finalize projection carries the
// bucket column.
func projectsBucket(dec *Decomposition) bool {
	for _, item := range dec.FinalizeItems {
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok && ref.Column == dec.BucketColumn {
			return true
		}
	}
	return false
}

// bucketDisplay returns the user-visible name of the bucket column, which
// both real-time branches project and the boundary predicate filters on.
func bucketDisplay(dec *Decomposition) string {
	for _, item := range dec.FinalizeItems {
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok && ref.Column == dec.BucketColumn {
			if item.Alias != "" {
				return item.Alias
			}
			return ref.Column
		}
	}
	return dec.BucketColumn
}

// PostgresDialect is the dialect every compile currently runs against.
var PostgresDialect = dialect.Postgres
