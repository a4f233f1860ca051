package compile

import (
	"fmt"
	"time"

	"github.com/tidemark-db/tidemark/internal/types"
	"github.com/tidemark-db/tidemark/pkg/dialect"
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// ExtractBucket finds the single bucket call in GROUP BY and resolves its
// width, column, timezone and origin. Exactly one bucket call must group
// the query; without one there is no partition axis to materialize on.
func ExtractBucket(core *sqlast.SelectCore, src *Source, d *dialect.Dialect) (*TimeBucketSpec, error) {
	var call *sqlast.FuncCall
	for _, g := range core.GroupBy {
		fc := bucketCallIn(g, d)
		if fc == nil {
			continue
		}
		if call != nil && !sqlast.EqualExpr(call, fc) {
			return nil, &InvalidBucketError{Reason: ReasonMultipleBuckets,
				Detail: "GROUP BY contains more than one bucket expression"}
		}
		call = fc
	}
	if call == nil {
		return nil, &InvalidBucketError{Reason: ReasonMissingBucket,
			Detail: fmt.Sprintf("GROUP BY has no %s call over the partition column", "time_bucket")}
	}

	if len(call.Args) < 2 || len(call.Args) > 4 {
		return nil, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: fmt.Sprintf("%s takes a width, the partition column, and optionally a timezone and an origin", call.Name)}
	}

	spec := &TimeBucketSpec{
		FuncName:   call.Name,
		ColumnType: src.ColumnType,
		Call:       call,
	}

	// Second argument: the partition column.
	col, ok := unwrapExpr(call.Args[1]).(*sqlast.ColumnRef)
	if !ok || col.Column != src.TimeColumn {
		return nil, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: fmt.Sprintf("bucket must be computed over partition column %q", src.TimeColumn)}
	}
	spec.ColumnName = col.Column

	if err := resolveWidth(spec, call.Args[0], src.ColumnType); err != nil {
		return nil, err
	}

	switch len(call.Args) {
	case 3:
		if err := resolveThirdArg(spec, call.Args[2]); err != nil {
			return nil, err
		}
	case 4:
		if err := resolveTimezone(spec, call.Args[2]); err != nil {
			return nil, err
		}
		if err := resolveOrigin(spec, call.Args[3]); err != nil {
			return nil, err
		}
	}

	spec.ColumnAlias = bucketAlias(core, call)

	if src.ParentBucket != nil {
		if err := checkHierarchy(spec, src.ParentBucket); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// bucketCallIn returns the bucket call rooted at expr, if any. The call
// must be the grouping expression itself; a bucket buried inside
// arithmetic does not define the partition axis.
func bucketCallIn(expr sqlast.Expr, d *dialect.Dialect) *sqlast.FuncCall {
	fc, ok := unwrapExpr(expr).(*sqlast.FuncCall)
	if ok && d.IsBucketFunc(fc.Name) {
		return fc
	}
	return nil
}

// resolveWidth constant-folds the width argument and checks the result
// against the partition column's type.
func resolveWidth(spec *TimeBucketSpec, arg sqlast.Expr, colType types.ColumnType) error {
	v, err := evalWidth(arg, colType)
	if err != nil {
		return err
	}

	if v.interval {
		if !colType.IsTimeType() {
			return &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
				Detail: fmt.Sprintf("interval width over %s partition column", colType)}
		}
		if v.iv.HasMonth() && v.iv.HasDayOrTime() {
			return &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
				Detail: "month components cannot mix with day or time components in a bucket width"}
		}
		if v.iv.IsZero() || v.iv.NominalTicks() <= 0 {
			return &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
				Detail: "bucket width must be positive"}
		}
		spec.Width = v.iv
		spec.VariableWidth = v.iv.HasMonth()
		return nil
	}

	if colType.IsTimeType() {
		return &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: fmt.Sprintf("width %d does not match %s partition column", v.n, colType)}
	}
	if v.n <= 0 {
		return &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: "integer bucket width must be a positive whole number"}
	}
	spec.IntegerWidth = v.n
	return nil
}

// widthValue is a folded width: an interval for time columns, a bare
// integer otherwise.
type widthValue struct {
	iv       types.Interval
	n        int64
	interval bool
}

// evalWidth reduces the width argument to a constant. The argument need
// not be a syntactic literal, but it must fold without looking at any
// row: parens and interval casts unwrap, arithmetic over literals folds,
// anything referencing columns or calling functions is rejected.
func evalWidth(arg sqlast.Expr, colType types.ColumnType) (widthValue, error) {
	arg = unwrapExpr(arg)

	if cast, ok := arg.(*sqlast.CastExpr); ok && cast.TypeName == "interval" {
		if lit, ok := unwrapExpr(cast.Expr).(*sqlast.Literal); ok && lit.Type == sqlast.LiteralString {
			arg = &sqlast.IntervalLiteral{Value: lit.Value}
		}
	}
	// A bare string width over a time column coerces to interval, the way
	// an untyped literal would in the declaration itself.
	if lit, ok := arg.(*sqlast.Literal); ok && lit.Type == sqlast.LiteralString && colType.IsTimeType() {
		arg = &sqlast.IntervalLiteral{Value: lit.Value}
	}

	switch w := arg.(type) {
	case *sqlast.IntervalLiteral:
		iv, err := types.ParseInterval(w.Value)
		if err != nil {
			return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth, Detail: err.Error()}
		}
		return widthValue{iv: iv, interval: true}, nil

	case *sqlast.Literal:
		if w.Type != sqlast.LiteralNumber {
			return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
				Detail: fmt.Sprintf("width %q does not match %s partition column", w.Value, colType)}
		}
		var n int64
		if _, err := fmt.Sscanf(w.Value, "%d", &n); err != nil {
			return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
				Detail: "integer bucket width must be a whole number"}
		}
		return widthValue{n: n}, nil

	case *sqlast.UnaryExpr:
		v, err := evalWidth(w.Expr, colType)
		if err != nil {
			return widthValue{}, err
		}
		switch w.Op {
		case "+":
			return v, nil
		case "-":
			if v.interval {
				return widthValue{iv: scaleInterval(v.iv, -1), interval: true}, nil
			}
			return widthValue{n: -v.n}, nil
		}
		return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: fmt.Sprintf("operator %s cannot appear in a bucket width", w.Op)}

	case *sqlast.BinaryExpr:
		l, err := evalWidth(w.Left, colType)
		if err != nil {
			return widthValue{}, err
		}
		r, err := evalWidth(w.Right, colType)
		if err != nil {
			return widthValue{}, err
		}
		return foldWidth(l, r, w.Op)

	default:
		return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: "bucket width must reduce to a constant at compile time"}
	}
}

// foldWidth applies one arithmetic operator to two folded operands.
// Intervals scale by integers and add to each other; anything else has no
// constant meaning as a width.
func foldWidth(l, r widthValue, op string) (widthValue, error) {
	switch op {
	case "*":
		switch {
		case l.interval && !r.interval:
			return widthValue{iv: scaleInterval(l.iv, r.n), interval: true}, nil
		case !l.interval && r.interval:
			return widthValue{iv: scaleInterval(r.iv, l.n), interval: true}, nil
		case !l.interval && !r.interval:
			return widthValue{n: l.n * r.n}, nil
		}
	case "+", "-":
		sign := int64(1)
		if op == "-" {
			sign = -1
		}
		switch {
		case l.interval && r.interval:
			return widthValue{iv: addInterval(l.iv, scaleInterval(r.iv, sign)), interval: true}, nil
		case !l.interval && !r.interval:
			return widthValue{n: l.n + sign*r.n}, nil
		}
	default:
		return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
			Detail: fmt.Sprintf("operator %s cannot appear in a bucket width", op)}
	}
	return widthValue{}, &InvalidBucketError{Reason: ReasonInvalidBucketWidth,
		Detail: "bucket width arithmetic has incompatible operand types"}
}

func scaleInterval(iv types.Interval, n int64) types.Interval {
	return types.Interval{Months: iv.Months * int32(n), Days: iv.Days * int32(n), Usecs: iv.Usecs * n}
}

func addInterval(a, b types.Interval) types.Interval {
	return types.Interval{Months: a.Months + b.Months, Days: a.Days + b.Days, Usecs: a.Usecs + b.Usecs}
}

// resolveThirdArg classifies the optional argument as a timezone name or
// an origin timestamp. The four-argument form names both, timezone first.
func resolveThirdArg(spec *TimeBucketSpec, arg sqlast.Expr) error {
	switch unwrapExpr(arg).(type) {
	case *sqlast.Literal:
		return resolveTimezone(spec, arg)
	case *sqlast.CastExpr:
		return resolveOrigin(spec, arg)
	default:
		return &InvalidBucketError{Reason: ReasonInvalidOrigin,
			Detail: "third bucket argument must be a timezone or an origin timestamp"}
	}
}

func resolveTimezone(spec *TimeBucketSpec, arg sqlast.Expr) error {
	lit, ok := unwrapExpr(arg).(*sqlast.Literal)
	if !ok || lit.Type != sqlast.LiteralString {
		return &InvalidBucketError{Reason: ReasonInvalidTimezone,
			Detail: "timezone must be a string literal"}
	}
	if spec.ColumnType != types.TimestampTZ {
		return &InvalidBucketError{Reason: ReasonInvalidTimezone,
			Detail: fmt.Sprintf("timezone bucketing requires a timestamptz partition column, not %s", spec.ColumnType)}
	}
	if _, err := time.LoadLocation(lit.Value); err != nil {
		return &InvalidBucketError{Reason: ReasonInvalidTimezone,
			Detail: fmt.Sprintf("unknown timezone %q", lit.Value)}
	}
	spec.Timezone = lit.Value
	return nil
}

func resolveOrigin(spec *TimeBucketSpec, arg sqlast.Expr) error {
	cast, ok := unwrapExpr(arg).(*sqlast.CastExpr)
	if !ok {
		return &InvalidBucketError{Reason: ReasonInvalidOrigin,
			Detail: "origin must be a typed timestamp literal"}
	}
	lit, ok := unwrapExpr(cast.Expr).(*sqlast.Literal)
	if !ok || lit.Type != sqlast.LiteralString {
		return &InvalidBucketError{Reason: ReasonInvalidOrigin,
			Detail: "origin must be a timestamp literal"}
	}
	switch lit.Value {
	case "infinity", "-infinity":
		return &InvalidBucketError{Reason: ReasonInvalidOrigin,
			Detail: "origin must be a finite timestamp"}
	}
	spec.Origin = fmt.Sprintf("'%s'::%s", lit.Value, cast.TypeName)
	return nil
}

// bucketAlias returns the display alias the select list gives the bucket
// expression.
func bucketAlias(core *sqlast.SelectCore, call *sqlast.FuncCall) string {
	for _, item := range core.Columns {
		if item.Expr != nil && sqlast.EqualExpr(item.Expr, call) {
			if item.Alias != "" {
				return item.Alias
			}
			break
		}
	}
	return DefaultBucketColumn
}

// checkHierarchy verifies that a child bucket stacks on its parent: at
// least as wide and an integer multiple, with fixed and variable widths
// never mixed across levels.
func checkHierarchy(child, parent *TimeBucketSpec) error {
	if child.VariableWidth != parent.VariableWidth {
		detail := "a fixed-width bucket cannot stack on a variable-width parent"
		if child.VariableWidth {
			detail = "a variable-width bucket cannot stack on a fixed-width parent"
		}
		return &HierarchyError{ParentWidth: parent.Width, ChildWidth: child.Width, Detail: detail}
	}

	if child.VariableWidth {
		if child.Width.Months < parent.Width.Months || child.Width.Months%parent.Width.Months != 0 {
			return &HierarchyError{ParentWidth: parent.Width, ChildWidth: child.Width,
				Detail: "child month width must be an integer multiple of the parent's"}
		}
		return nil
	}

	cw, pw := child.WidthTicks(), parent.WidthTicks()
	if cw < pw || cw%pw != 0 {
		return &HierarchyError{ParentWidth: parent.Width, ChildWidth: child.Width,
			Detail: "child width must be an integer multiple of the parent's"}
	}
	return nil
}

func unwrapExpr(e sqlast.Expr) sqlast.Expr {
	for {
		p, ok := e.(*sqlast.ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}
