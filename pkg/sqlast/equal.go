package sqlast

// EqualExpr reports structural equality between two expressions. Parentheses
// are transparent: (a) and a compare equal, since grouping carries no
// semantics once the tree is built. Identifier case is resolved at parse
// time, so comparison is by exact string.
func EqualExpr(a, b Expr) bool {
	a = unwrap(a)
	b = unwrap(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case *ColumnRef:
		y, ok := b.(*ColumnRef)
		return ok && x.Table == y.Table && x.Column == y.Column
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Type == y.Type && x.Value == y.Value
	case *IntervalLiteral:
		y, ok := b.(*IntervalLiteral)
		return ok && x.Value == y.Value
	case *BinaryExpr:
		y, ok := b.(*BinaryExpr)
		return ok && x.Op == y.Op && EqualExpr(x.Left, y.Left) && EqualExpr(x.Right, y.Right)
	case *UnaryExpr:
		y, ok := b.(*UnaryExpr)
		return ok && x.Op == y.Op && EqualExpr(x.Expr, y.Expr)
	case *FuncCall:
		y, ok := b.(*FuncCall)
		if !ok || x.Schema != y.Schema || x.Name != y.Name ||
			x.Distinct != y.Distinct || x.Star != y.Star {
			return false
		}
		if (x.Window != nil) != (y.Window != nil) {
			return false
		}
		if !equalExprs(x.Args, y.Args) || !EqualExpr(x.Filter, y.Filter) {
			return false
		}
		return true
	case *CaseExpr:
		y, ok := b.(*CaseExpr)
		if !ok || len(x.Whens) != len(y.Whens) {
			return false
		}
		if !EqualExpr(x.Operand, y.Operand) || !EqualExpr(x.Else, y.Else) {
			return false
		}
		for i := range x.Whens {
			if !EqualExpr(x.Whens[i].Condition, y.Whens[i].Condition) ||
				!EqualExpr(x.Whens[i].Result, y.Whens[i].Result) {
				return false
			}
		}
		return true
	case *CastExpr:
		y, ok := b.(*CastExpr)
		return ok && x.TypeName == y.TypeName && EqualExpr(x.Expr, y.Expr)
	case *InExpr:
		y, ok := b.(*InExpr)
		return ok && x.Not == y.Not && x.Query == nil && y.Query == nil &&
			EqualExpr(x.Expr, y.Expr) && equalExprs(x.Values, y.Values)
	case *BetweenExpr:
		y, ok := b.(*BetweenExpr)
		return ok && x.Not == y.Not && EqualExpr(x.Expr, y.Expr) &&
			EqualExpr(x.Low, y.Low) && EqualExpr(x.High, y.High)
	case *IsNullExpr:
		y, ok := b.(*IsNullExpr)
		return ok && x.Not == y.Not && EqualExpr(x.Expr, y.Expr)
	case *LikeExpr:
		y, ok := b.(*LikeExpr)
		return ok && x.Not == y.Not && EqualExpr(x.Expr, y.Expr) &&
			EqualExpr(x.Pattern, y.Pattern)
	default:
		// Subqueries never compare equal; the compiler rejects them before
		// equality ever matters.
		return false
	}
}

func equalExprs(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualExpr(a[i], b[i]) {
			return false
		}
	}
	return true
}

func unwrap(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}
