package sqlast

// RewriteExpr returns a copy of e with fn applied top-down. When fn
// returns a replacement for a node, the replacement is spliced in as-is
// and not descended into; otherwise the node is copied and its children
// rewritten. The input tree is never mutated.
func RewriteExpr(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	switch x := e.(type) {
	case *BinaryExpr:
		return &BinaryExpr{Left: RewriteExpr(x.Left, fn), Op: x.Op, Right: RewriteExpr(x.Right, fn)}
	case *UnaryExpr:
		return &UnaryExpr{Op: x.Op, Expr: RewriteExpr(x.Expr, fn)}
	case *FuncCall:
		out := &FuncCall{
			Schema:   x.Schema,
			Name:     x.Name,
			Distinct: x.Distinct,
			Star:     x.Star,
			Filter:   RewriteExpr(x.Filter, fn),
		}
		for _, arg := range x.Args {
			out.Args = append(out.Args, RewriteExpr(arg, fn))
		}
		if x.Window != nil {
			w := &WindowSpec{}
			for _, p := range x.Window.PartitionBy {
				w.PartitionBy = append(w.PartitionBy, RewriteExpr(p, fn))
			}
			for _, o := range x.Window.OrderBy {
				item := cloneOrderItem(o)
				item.Expr = RewriteExpr(o.Expr, fn)
				w.OrderBy = append(w.OrderBy, item)
			}
			out.Window = w
		}
		return out
	case *CaseExpr:
		out := &CaseExpr{Operand: RewriteExpr(x.Operand, fn), Else: RewriteExpr(x.Else, fn)}
		for _, w := range x.Whens {
			out.Whens = append(out.Whens, WhenClause{
				Condition: RewriteExpr(w.Condition, fn),
				Result:    RewriteExpr(w.Result, fn),
			})
		}
		return out
	case *CastExpr:
		return &CastExpr{Expr: RewriteExpr(x.Expr, fn), TypeName: x.TypeName}
	case *InExpr:
		out := &InExpr{Expr: RewriteExpr(x.Expr, fn), Not: x.Not, Query: CloneStmt(x.Query)}
		for _, v := range x.Values {
			out.Values = append(out.Values, RewriteExpr(v, fn))
		}
		return out
	case *BetweenExpr:
		return &BetweenExpr{
			Expr: RewriteExpr(x.Expr, fn),
			Not:  x.Not,
			Low:  RewriteExpr(x.Low, fn),
			High: RewriteExpr(x.High, fn),
		}
	case *IsNullExpr:
		return &IsNullExpr{Expr: RewriteExpr(x.Expr, fn), Not: x.Not}
	case *LikeExpr:
		return &LikeExpr{Expr: RewriteExpr(x.Expr, fn), Not: x.Not, Pattern: RewriteExpr(x.Pattern, fn)}
	case *ParenExpr:
		return &ParenExpr{Expr: RewriteExpr(x.Expr, fn)}
	default:
		return CloneExpr(e)
	}
}
