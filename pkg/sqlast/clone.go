package sqlast

// CloneStmt returns a deep copy of a statement. The compiler splices source
// trees into several derived queries, so shared nodes would alias mutations.
func CloneStmt(stmt *SelectStmt) *SelectStmt {
	if stmt == nil {
		return nil
	}
	out := &SelectStmt{}
	if stmt.With != nil {
		w := &WithClause{Recursive: stmt.With.Recursive}
		for _, cte := range stmt.With.CTEs {
			w.CTEs = append(w.CTEs, &CTE{Name: cte.Name, Select: CloneStmt(cte.Select)})
		}
		out.With = w
	}
	out.Body = cloneBody(stmt.Body)
	return out
}

func cloneBody(b *SelectBody) *SelectBody {
	if b == nil {
		return nil
	}
	return &SelectBody{
		Left:  CloneCore(b.Left),
		Op:    b.Op,
		Right: cloneBody(b.Right),
	}
}

// CloneCore returns a deep copy of a select core.
func CloneCore(c *SelectCore) *SelectCore {
	if c == nil {
		return nil
	}
	out := &SelectCore{
		Distinct: c.Distinct,
		Where:    CloneExpr(c.Where),
		Having:   CloneExpr(c.Having),
		Limit:    CloneExpr(c.Limit),
		Offset:   CloneExpr(c.Offset),
	}
	for _, col := range c.Columns {
		out.Columns = append(out.Columns, SelectItem{
			Star:      col.Star,
			TableStar: col.TableStar,
			Expr:      CloneExpr(col.Expr),
			Alias:     col.Alias,
		})
	}
	out.From = cloneFrom(c.From)
	for _, g := range c.GroupBy {
		out.GroupBy = append(out.GroupBy, CloneExpr(g))
	}
	for _, o := range c.OrderBy {
		out.OrderBy = append(out.OrderBy, cloneOrderItem(o))
	}
	return out
}

func cloneOrderItem(o OrderByItem) OrderByItem {
	item := OrderByItem{Expr: CloneExpr(o.Expr), Desc: o.Desc}
	if o.NullsFirst != nil {
		v := *o.NullsFirst
		item.NullsFirst = &v
	}
	return item
}

func cloneFrom(f *FromClause) *FromClause {
	if f == nil {
		return nil
	}
	out := &FromClause{Source: CloneTableRef(f.Source)}
	for _, j := range f.Joins {
		out.Joins = append(out.Joins, &Join{
			Type:      j.Type,
			Right:     CloneTableRef(j.Right),
			Condition: CloneExpr(j.Condition),
		})
	}
	return out
}

// CloneTableRef returns a deep copy of a table reference.
func CloneTableRef(r TableRef) TableRef {
	switch t := r.(type) {
	case nil:
		return nil
	case *TableName:
		cp := *t
		return &cp
	case *DerivedTable:
		return &DerivedTable{Select: CloneStmt(t.Select), Alias: t.Alias}
	default:
		return r
	}
}

// CloneExpr returns a deep copy of an expression.
func CloneExpr(e Expr) Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case *ColumnRef:
		cp := *x
		return &cp
	case *Literal:
		cp := *x
		return &cp
	case *IntervalLiteral:
		cp := *x
		return &cp
	case *BinaryExpr:
		return &BinaryExpr{Left: CloneExpr(x.Left), Op: x.Op, Right: CloneExpr(x.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Op: x.Op, Expr: CloneExpr(x.Expr)}
	case *FuncCall:
		out := &FuncCall{
			Schema:   x.Schema,
			Name:     x.Name,
			Distinct: x.Distinct,
			Star:     x.Star,
			Filter:   CloneExpr(x.Filter),
		}
		for _, arg := range x.Args {
			out.Args = append(out.Args, CloneExpr(arg))
		}
		if x.Window != nil {
			w := &WindowSpec{}
			for _, p := range x.Window.PartitionBy {
				w.PartitionBy = append(w.PartitionBy, CloneExpr(p))
			}
			for _, o := range x.Window.OrderBy {
				w.OrderBy = append(w.OrderBy, cloneOrderItem(o))
			}
			out.Window = w
		}
		return out
	case *CaseExpr:
		out := &CaseExpr{Operand: CloneExpr(x.Operand), Else: CloneExpr(x.Else)}
		for _, w := range x.Whens {
			out.Whens = append(out.Whens, WhenClause{
				Condition: CloneExpr(w.Condition),
				Result:    CloneExpr(w.Result),
			})
		}
		return out
	case *CastExpr:
		return &CastExpr{Expr: CloneExpr(x.Expr), TypeName: x.TypeName}
	case *InExpr:
		out := &InExpr{Expr: CloneExpr(x.Expr), Not: x.Not, Query: CloneStmt(x.Query)}
		for _, v := range x.Values {
			out.Values = append(out.Values, CloneExpr(v))
		}
		return out
	case *BetweenExpr:
		return &BetweenExpr{
			Expr: CloneExpr(x.Expr),
			Not:  x.Not,
			Low:  CloneExpr(x.Low),
			High: CloneExpr(x.High),
		}
	case *IsNullExpr:
		return &IsNullExpr{Expr: CloneExpr(x.Expr), Not: x.Not}
	case *LikeExpr:
		return &LikeExpr{Expr: CloneExpr(x.Expr), Not: x.Not, Pattern: CloneExpr(x.Pattern)}
	case *ParenExpr:
		return &ParenExpr{Expr: CloneExpr(x.Expr)}
	case *SubqueryExpr:
		return &SubqueryExpr{Select: CloneStmt(x.Select)}
	default:
		return e
	}
}
