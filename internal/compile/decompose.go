package compile

import (
	"fmt"
	"strings"

	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/render"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// NormalizeGroupBy returns a copy of core with output-column aliases in
// GROUP BY replaced by the expressions they name, so GROUP BY device and
// GROUP BY bucket resolve to the same trees the select list carries.
// ExtractBucket and Decompose expect a normalized core.
func NormalizeGroupBy(core *sqlast.SelectCore) *sqlast.SelectCore {
	out := sqlast.CloneCore(core)
	for i, g := range out.GroupBy {
		ref, ok := g.(*sqlast.ColumnRef)
		if !ok || ref.Table != "" {
			continue
		}
		for _, item := range core.Columns {
			if item.Alias == ref.Column && item.Expr != nil {
				out.GroupBy[i] = sqlast.CloneExpr(item.Expr)
				break
			}
		}
	}
	return out
}

// mapping associates one original expression with the backing column that
// stores it and the expression that reconstructs its value from that
// column.
type mapping struct {
	column   string
	finalize sqlast.Expr
}

type decomposer struct {
	src    *Source
	bucket *TimeBucketSpec
	d      *dialect.Dialect
	mode   Mode

	out Decomposition

	mapped map[string]*mapping
	used   map[string]bool
	groups map[string]bool
}

// Decompose walks the target list and then HAVING once, producing in
// lockstep the backing column list, the population expressions, and the
// finalize expressions. The core must come from NormalizeGroupBy.
func Decompose(core *sqlast.SelectCore, src *Source, bucket *TimeBucketSpec, d *dialect.Dialect, mode Mode) (*Decomposition, error) {
	dec := &decomposer{
		src:    src,
		bucket: bucket,
		d:      d,
		mode:   mode,
		mapped: map[string]*mapping{},
		used:   map[string]bool{},
		groups: map[string]bool{},
	}

	for i, item := range core.Columns {
		if item.Star || item.TableStar != "" {
			return nil, unsupported(ReasonUngroupedColumn,
				"SELECT * cannot be materialized", "name each output column")
		}
		if fc := d.FindVolatile(item.Expr); fc != nil {
			return nil, &ImpureExpressionError{Function: fc.Name, Context: "select list"}
		}
		var err error
		switch {
		case sqlast.EqualExpr(item.Expr, bucket.Call):
			dec.bucketItem(item)
		case dec.containsAggregate(item.Expr):
			err = dec.aggregateItem(item, i)
		default:
			err = dec.groupedItem(item, core.GroupBy)
		}
		if err != nil {
			return nil, err
		}
	}

	if dec.out.BucketColumn == "" {
		dec.unprojectedBucket()
	}
	if err := dec.resolveGroupBy(core.GroupBy); err != nil {
		return nil, err
	}
	if err := dec.rewriteHaving(core.Having); err != nil {
		return nil, err
	}
	if mode == ModePartial {
		dec.appendBookkeeping()
	}
	return &dec.out, nil
}

func (dec *decomposer) bucketItem(item sqlast.SelectItem) {
	name := dec.bucket.ColumnAlias
	display := item.Alias
	if display == "" {
		display = dec.bucket.FuncName
	}
	dec.used[name] = true
	dec.out.Columns = append(dec.out.Columns, Column{
		Name:     name,
		TypeName: dec.bucket.ColumnType.SQLName(),
		NotNull:  true,
	})
	dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
		Expr:  sqlast.CloneExpr(dec.bucket.Call),
		Alias: name,
	})
	dec.out.PopulationGroupBy = append(dec.out.PopulationGroupBy, sqlast.CloneExpr(dec.bucket.Call))
	dec.out.FinalizeItems = append(dec.out.FinalizeItems, sqlast.SelectItem{
		Expr:  &sqlast.ColumnRef{Column: name},
		Alias: display,
	})
	dec.out.OutputTypes = append(dec.out.OutputTypes, dec.bucket.ColumnType.SQLName())
	if dec.mode == ModePartial {
		dec.out.FinalizeGroupBy = append(dec.out.FinalizeGroupBy, &sqlast.ColumnRef{Column: name})
	}
	dec.out.BucketColumn = name
	dec.mapped[exprKey(dec.bucket.Call)] = &mapping{
		column:   name,
		finalize: &sqlast.ColumnRef{Column: name},
	}
}

// unprojectedBucket materializes a bucket that grouped the query without
// appearing in the select list. The backing table still stores and
// partitions on it; it just never surfaces in the finalize projection.
func (dec *decomposer) unprojectedBucket() {
	name := dec.bucket.ColumnAlias
	dec.used[name] = true
	dec.out.Columns = append(dec.out.Columns, Column{
		Name:     name,
		TypeName: dec.bucket.ColumnType.SQLName(),
		NotNull:  true,
	})
	dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
		Expr:  sqlast.CloneExpr(dec.bucket.Call),
		Alias: name,
	})
	dec.out.PopulationGroupBy = append(dec.out.PopulationGroupBy, sqlast.CloneExpr(dec.bucket.Call))
	if dec.mode == ModePartial {
		dec.out.FinalizeGroupBy = append(dec.out.FinalizeGroupBy, &sqlast.ColumnRef{Column: name})
	}
	dec.out.BucketColumn = name
	dec.mapped[exprKey(dec.bucket.Call)] = &mapping{
		column:   name,
		finalize: &sqlast.ColumnRef{Column: name},
	}
}

func (dec *decomposer) aggregateItem(item sqlast.SelectItem, pos int) error {
	display := item.Alias
	bare, isBare := unwrapExpr(item.Expr).(*sqlast.FuncCall)
	isBare = isBare && dec.d.IsAggregate(bare.Name)
	if display == "" {
		if isBare {
			display = bare.Name
		} else {
			display = fmt.Sprintf("column_%d", pos+1)
		}
	}

	if dec.mode == ModeFinalized {
		name := dec.uniquify(display)
		dec.out.Columns = append(dec.out.Columns, Column{
			Name:     name,
			TypeName: dec.inferTypeName(item.Expr),
		})
		dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
			Expr:  sqlast.CloneExpr(item.Expr),
			Alias: name,
		})
		dec.out.FinalizeItems = append(dec.out.FinalizeItems, sqlast.SelectItem{
			Expr:  &sqlast.ColumnRef{Column: name},
			Alias: display,
		})
		dec.out.OutputTypes = append(dec.out.OutputTypes, dec.inferTypeName(item.Expr))
		for _, fc := range collectAggregates(item.Expr, dec.d) {
			dec.out.Aggregates = append(dec.out.Aggregates, FinalizeDescriptor{
				AggName:  fc.Name,
				ArgTypes: dec.argTypes(fc),
				Column:   name,
				Display:  display,
			})
		}
		dec.mapped[exprKey(item.Expr)] = &mapping{
			column:   name,
			finalize: &sqlast.ColumnRef{Column: name},
		}
		return nil
	}

	for _, fc := range collectAggregates(item.Expr, dec.d) {
		if _, err := dec.stateFor(fc, display, isBare); err != nil {
			return err
		}
	}
	rewritten, err := dec.rewriteToFinalize(item.Expr, "select list")
	if err != nil {
		return err
	}
	dec.out.FinalizeItems = append(dec.out.FinalizeItems, sqlast.SelectItem{
		Expr:  rewritten,
		Alias: display,
	})
	dec.out.OutputTypes = append(dec.out.OutputTypes, dec.inferTypeName(item.Expr))
	dec.mapped[exprKey(item.Expr)] = &mapping{finalize: rewritten}
	return nil
}

// stateFor materializes one aggregate call as an opaque state column and
// records the descriptor the finalize side needs to complete it. Repeated
// structurally-equal calls share one column.
func (dec *decomposer) stateFor(fc *sqlast.FuncCall, display string, isBare bool) (*mapping, error) {
	if m, ok := dec.mapped[exprKey(fc)]; ok {
		return m, nil
	}
	if fc.Distinct {
		return nil, unsupported(ReasonDistinct,
			fmt.Sprintf("%s(DISTINCT ...) cannot store partial state", fc.Name),
			"use the finalized mode for DISTINCT aggregates")
	}
	if fc.Filter != nil {
		return nil, unsupported(ReasonAggregateFilter,
			fmt.Sprintf("%s(...) FILTER cannot store partial state", fc.Name),
			"use the finalized mode for filtered aggregates")
	}

	base := fc.Name
	if isBare {
		base = display
	}
	col := dec.uniquify(base + "_state")
	dec.out.Columns = append(dec.out.Columns, Column{Name: col, TypeName: "bytea"})

	partialize := &sqlast.FuncCall{
		Schema: InternalSchema,
		Name:   "partialize_agg",
		Args:   []sqlast.Expr{sqlast.CloneExpr(fc)},
	}
	dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
		Expr:  partialize,
		Alias: col,
	})

	desc := FinalizeDescriptor{
		AggName:  fc.Name,
		ArgTypes: dec.argTypes(fc),
		Column:   col,
		Display:  display,
	}
	dec.out.Aggregates = append(dec.out.Aggregates, desc)

	m := &mapping{column: col, finalize: finalizeCall(desc)}
	dec.mapped[exprKey(fc)] = m
	return m, nil
}

// finalizeCall builds the finalize-wrapper invocation for one descriptor:
// the aggregate name, its argument type signature, the collation, and the
// state column to deserialize.
func finalizeCall(desc FinalizeDescriptor) sqlast.Expr {
	collation := sqlast.Expr(&sqlast.Literal{Type: sqlast.LiteralNull, Value: "NULL"})
	if desc.Collation != "" {
		collation = &sqlast.Literal{Type: sqlast.LiteralString, Value: desc.Collation}
	}
	return &sqlast.FuncCall{
		Schema: InternalSchema,
		Name:   "finalize_agg",
		Args: []sqlast.Expr{
			&sqlast.Literal{Type: sqlast.LiteralString, Value: desc.AggName},
			&sqlast.Literal{Type: sqlast.LiteralString, Value: strings.Join(desc.ArgTypes, ", ")},
			collation,
			&sqlast.ColumnRef{Column: desc.Column},
		},
	}
}

// rewriteToFinalize maps an original expression onto the backing table:
// aggregate calls become finalize wrappers, plain column references become
// their materialized columns. ctx names the clause for error messages.
func (dec *decomposer) rewriteToFinalize(expr sqlast.Expr, ctx string) (sqlast.Expr, error) {
	var rewriteErr error
	out := sqlast.RewriteExpr(expr, func(e sqlast.Expr) (sqlast.Expr, bool) {
		if rewriteErr != nil {
			return e, true
		}
		if m, ok := dec.mapped[exprKey(e)]; ok {
			return sqlast.CloneExpr(m.finalize), true
		}
		switch n := e.(type) {
		case *sqlast.FuncCall:
			if dec.d.IsAggregate(n.Name) {
				m, err := dec.stateFor(n, n.Name, true)
				if err != nil {
					rewriteErr = err
					return e, true
				}
				return sqlast.CloneExpr(m.finalize), true
			}
		case *sqlast.ColumnRef:
			m, err := dec.passthrough(n, ctx)
			if err != nil {
				rewriteErr = err
				return e, true
			}
			return sqlast.CloneExpr(m.finalize), true
		}
		return nil, false
	})
	if rewriteErr != nil {
		return nil, rewriteErr
	}
	return out, nil
}

// passthrough materializes a plain column reference as its own backing
// column, deduplicating by column name: t.device and device map to the
// same column.
func (dec *decomposer) passthrough(ref *sqlast.ColumnRef, ctx string) (*mapping, error) {
	key := "col:" + ref.Column
	if m, ok := dec.mapped[key]; ok {
		return m, nil
	}
	if ctx == "HAVING" {
		return nil, unsupported(ReasonUnmatchedHaving,
			fmt.Sprintf("HAVING references %s, which no materialized column stores", render.Expr(ref)),
			"restrict HAVING to grouped columns and aggregates from the select list")
	}
	name := dec.uniquify(ref.Column)
	dec.out.Columns = append(dec.out.Columns, Column{
		Name:     name,
		TypeName: dec.columnTypeName(ref.Column),
	})
	dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
		Expr:  sqlast.CloneExpr(ref),
		Alias: name,
	})
	m := &mapping{column: name, finalize: &sqlast.ColumnRef{Column: name}}
	dec.mapped[key] = m
	return m, nil
}

// groupedItem handles a select item with no aggregate: it must repeat a
// GROUP BY expression, and materializes as a passthrough column.
func (dec *decomposer) groupedItem(item sqlast.SelectItem, groupBy []sqlast.Expr) error {
	matched := false
	for _, g := range groupBy {
		if sqlast.EqualExpr(g, item.Expr) {
			matched = true
			break
		}
	}
	if !matched {
		if fc, ok := unwrapExpr(item.Expr).(*sqlast.FuncCall); ok &&
			!dec.d.IsAggregate(fc.Name) && !dec.d.IsBucketFunc(fc.Name) {
			return unsupported(ReasonUnknownAggregate,
				fmt.Sprintf("%s is not a supported aggregate", fc.Name),
				"only whitelisted aggregates can be materialized")
		}
		return unsupported(ReasonUngroupedColumn,
			fmt.Sprintf("%s is neither aggregated nor grouped", render.Expr(item.Expr)),
			"add it to GROUP BY or wrap it in an aggregate")
	}

	display := item.Alias
	if display == "" {
		if ref, ok := unwrapExpr(item.Expr).(*sqlast.ColumnRef); ok {
			display = ref.Column
		} else {
			display = "grouped"
		}
	}

	key := exprKey(item.Expr)
	if ref, ok := unwrapExpr(item.Expr).(*sqlast.ColumnRef); ok {
		key = "col:" + ref.Column
	}
	m, ok := dec.mapped[key]
	if !ok {
		name := dec.uniquify(display)
		dec.out.Columns = append(dec.out.Columns, Column{
			Name:     name,
			TypeName: dec.inferTypeName(item.Expr),
		})
		dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
			Expr:  sqlast.CloneExpr(item.Expr),
			Alias: name,
		})
		m = &mapping{column: name, finalize: &sqlast.ColumnRef{Column: name}}
		dec.mapped[key] = m
	}
	dec.out.FinalizeItems = append(dec.out.FinalizeItems, sqlast.SelectItem{
		Expr:  sqlast.CloneExpr(m.finalize),
		Alias: display,
	})
	dec.out.OutputTypes = append(dec.out.OutputTypes, dec.inferTypeName(item.Expr))
	return nil
}

// resolveGroupBy materializes grouping expressions the select list never
// mentioned, fills the population GROUP BY, and records the auxiliary
// group columns for indexing. Columns already mapped through the select
// list or an aggregate argument are not re-added.
func (dec *decomposer) resolveGroupBy(groupBy []sqlast.Expr) error {
	for _, g := range groupBy {
		if sqlast.EqualExpr(g, dec.bucket.Call) {
			continue
		}
		if fc := dec.d.FindVolatile(g); fc != nil {
			return &ImpureExpressionError{Function: fc.Name, Context: "GROUP BY"}
		}
		dec.out.PopulationGroupBy = append(dec.out.PopulationGroupBy, sqlast.CloneExpr(g))

		key := exprKey(g)
		if ref, ok := unwrapExpr(g).(*sqlast.ColumnRef); ok {
			key = "col:" + ref.Column
		}
		m, ok := dec.mapped[key]
		if !ok {
			name := dec.groupColumnName(g)
			dec.out.Columns = append(dec.out.Columns, Column{
				Name:     name,
				TypeName: dec.inferTypeName(g),
			})
			dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
				Expr:  sqlast.CloneExpr(g),
				Alias: name,
			})
			m = &mapping{column: name, finalize: &sqlast.ColumnRef{Column: name}}
			dec.mapped[key] = m
		}
		if !dec.groups[m.column] {
			dec.groups[m.column] = true
			dec.out.GroupColumns = append(dec.out.GroupColumns, m.column)
		}
		if dec.mode == ModePartial {
			dec.out.FinalizeGroupBy = append(dec.out.FinalizeGroupBy, &sqlast.ColumnRef{Column: m.column})
		}
	}
	return nil
}

func (dec *decomposer) groupColumnName(g sqlast.Expr) string {
	if ref, ok := unwrapExpr(g).(*sqlast.ColumnRef); ok {
		return dec.uniquify(ref.Column)
	}
	return dec.uniquify("grouped")
}

// rewriteHaving folds HAVING into the finalize query. Finalized mode
// evaluates HAVING during population, where the values are already final,
// so nothing moves.
func (dec *decomposer) rewriteHaving(having sqlast.Expr) error {
	if having == nil {
		return nil
	}
	if fc := dec.d.FindVolatile(having); fc != nil {
		return &ImpureExpressionError{Function: fc.Name, Context: "HAVING"}
	}
	if dec.mode == ModeFinalized {
		return nil
	}
	rewritten, err := dec.rewriteToFinalize(having, "HAVING")
	if err != nil {
		return err
	}
	dec.out.FinalizeHaving = rewritten
	return nil
}

// appendBookkeeping adds the partition back-reference column and groups
// the population on it, so one stored row never merges state across two
// source partitions.
func (dec *decomposer) appendBookkeeping() {
	col := dec.uniquify(PartitionRefColumn)
	dec.out.Columns = append(dec.out.Columns, Column{Name: col, TypeName: "integer"})
	refCall := func() sqlast.Expr {
		return &sqlast.FuncCall{
			Schema: InternalSchema,
			Name:   "partition_ref",
			Args:   []sqlast.Expr{&sqlast.ColumnRef{Column: "tableoid"}},
		}
	}
	dec.out.PopulationItems = append(dec.out.PopulationItems, sqlast.SelectItem{
		Expr:  refCall(),
		Alias: col,
	})
	dec.out.PopulationGroupBy = append(dec.out.PopulationGroupBy, refCall())
}

func (dec *decomposer) containsAggregate(expr sqlast.Expr) bool {
	return len(collectAggregates(expr, dec.d)) > 0
}

func collectAggregates(expr sqlast.Expr, d *dialect.Dialect) []*sqlast.FuncCall {
	var out []*sqlast.FuncCall
	seen := map[string]bool{}
	sqlast.Walk(expr, func(node any) bool {
		fc, ok := node.(*sqlast.FuncCall)
		if !ok || !d.IsAggregate(fc.Name) {
			return true
		}
		if key := exprKey(fc); !seen[key] {
			seen[key] = true
			out = append(out, fc)
		}
		return false
	})
	return out
}

func (dec *decomposer) uniquify(base string) string {
	name := base
	for i := 1; dec.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	dec.used[name] = true
	return name
}

func (dec *decomposer) argTypes(fc *sqlast.FuncCall) []string {
	if fc.Star {
		return nil
	}
	out := make([]string, 0, len(fc.Args))
	for _, a := range fc.Args {
		out = append(out, dec.inferTypeName(a))
	}
	return out
}

func (dec *decomposer) columnTypeName(column string) string {
	if t, ok := dec.src.Columns[column]; ok {
		return t
	}
	if dec.src.JoinTable != nil {
		if t, ok := dec.src.JoinTable.Columns[column]; ok {
			return t
		}
	}
	return "text"
}

// inferTypeName derives the SQL type of an expression for column DDL.
// The inference is deliberately shallow: source columns carry their
// declared types, casts are explicit, and aggregate results follow the
// standard promotion rules.
func (dec *decomposer) inferTypeName(expr sqlast.Expr) string {
	switch e := unwrapExpr(expr).(type) {
	case *sqlast.ColumnRef:
		return dec.columnTypeName(e.Column)
	case *sqlast.CastExpr:
		return e.TypeName
	case *sqlast.Literal:
		switch e.Type {
		case sqlast.LiteralNumber:
			return "numeric"
		case sqlast.LiteralBool:
			return "boolean"
		default:
			return "text"
		}
	case *sqlast.IntervalLiteral:
		return "interval"
	case *sqlast.FuncCall:
		if dec.d.IsBucketFunc(e.Name) {
			return dec.bucket.ColumnType.SQLName()
		}
		if dec.d.IsAggregate(e.Name) {
			return dec.aggResultType(e)
		}
		return "text"
	case *sqlast.UnaryExpr:
		return dec.inferTypeName(e.Expr)
	case *sqlast.BinaryExpr:
		switch e.Op {
		case "=", "<>", "<", "<=", ">", ">=", "AND", "OR", "LIKE":
			return "boolean"
		}
		return dec.inferTypeName(e.Left)
	case *sqlast.CaseExpr:
		if len(e.Whens) > 0 {
			return dec.inferTypeName(e.Whens[0].Result)
		}
		return dec.inferTypeName(e.Else)
	case *sqlast.InExpr, *sqlast.BetweenExpr, *sqlast.IsNullExpr, *sqlast.LikeExpr:
		return "boolean"
	default:
		return "text"
	}
}

func (dec *decomposer) aggResultType(fc *sqlast.FuncCall) string {
	arg := "text"
	if len(fc.Args) > 0 {
		arg = dec.inferTypeName(fc.Args[0])
	}
	switch fc.Name {
	case "count":
		return "bigint"
	case "sum":
		switch arg {
		case "smallint", "integer":
			return "bigint"
		case "real", "double precision", "interval", "money":
			return arg
		}
		return "numeric"
	case "avg":
		switch arg {
		case "real", "double precision":
			return "double precision"
		case "interval":
			return "interval"
		}
		return "numeric"
	case "min", "max":
		return arg
	case "stddev", "stddev_pop", "stddev_samp", "variance", "var_pop", "var_samp":
		if arg == "real" || arg == "double precision" {
			return "double precision"
		}
		return "numeric"
	case "corr", "covar_pop", "covar_samp",
		"regr_avgx", "regr_avgy", "regr_intercept", "regr_r2",
		"regr_slope", "regr_sxx", "regr_sxy", "regr_syy":
		return "double precision"
	case "regr_count":
		return "bigint"
	case "bool_and", "bool_or", "every":
		return "boolean"
	case "string_agg":
		return "text"
	case "array_agg":
		return arg + "[]"
	case "bit_and", "bit_or":
		return arg
	case "json_agg":
		return "json"
	case "jsonb_agg", "jsonb_object_agg":
		return "jsonb"
	}
	return arg
}

func exprKey(e sqlast.Expr) string {
	return render.Expr(e)
}
