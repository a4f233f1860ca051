package sqlast

// Walk traverses a tree depth-first and calls fn for each node.
// If fn returns false, traversal stops below that node.
func Walk(node any, fn func(node any) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	walkNode(node, fn)
}

func walkNode(node any, fn func(node any) bool) {
	switch n := node.(type) {
	case *SelectStmt:
		if n == nil {
			return
		}
		Walk(n.With, fn)
		Walk(n.Body, fn)

	case *WithClause:
		if n == nil {
			return
		}
		for _, cte := range n.CTEs {
			Walk(cte, fn)
		}

	case *CTE:
		if n == nil {
			return
		}
		Walk(n.Select, fn)

	case *SelectBody:
		if n == nil {
			return
		}
		Walk(n.Left, fn)
		Walk(n.Right, fn)

	case *SelectCore:
		if n == nil {
			return
		}
		for _, col := range n.Columns {
			Walk(col.Expr, fn)
		}
		Walk(n.From, fn)
		Walk(n.Where, fn)
		for _, expr := range n.GroupBy {
			Walk(expr, fn)
		}
		Walk(n.Having, fn)
		for _, item := range n.OrderBy {
			Walk(item.Expr, fn)
		}
		Walk(n.Limit, fn)
		Walk(n.Offset, fn)

	case *FromClause:
		if n == nil {
			return
		}
		Walk(n.Source, fn)
		for _, join := range n.Joins {
			Walk(join, fn)
		}

	case *Join:
		if n == nil {
			return
		}
		Walk(n.Right, fn)
		Walk(n.Condition, fn)

	case *TableName:
		// leaf

	case *DerivedTable:
		if n == nil {
			return
		}
		Walk(n.Select, fn)

	case *BinaryExpr:
		if n == nil {
			return
		}
		Walk(n.Left, fn)
		Walk(n.Right, fn)

	case *UnaryExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)

	case *FuncCall:
		if n == nil {
			return
		}
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
		Walk(n.Filter, fn)
		if n.Window != nil {
			for _, expr := range n.Window.PartitionBy {
				Walk(expr, fn)
			}
			for _, item := range n.Window.OrderBy {
				Walk(item.Expr, fn)
			}
		}

	case *CaseExpr:
		if n == nil {
			return
		}
		Walk(n.Operand, fn)
		for _, when := range n.Whens {
			Walk(when.Condition, fn)
			Walk(when.Result, fn)
		}
		Walk(n.Else, fn)

	case *CastExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)

	case *InExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)
		for _, v := range n.Values {
			Walk(v, fn)
		}
		Walk(n.Query, fn)

	case *BetweenExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)
		Walk(n.Low, fn)
		Walk(n.High, fn)

	case *IsNullExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)

	case *LikeExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)
		Walk(n.Pattern, fn)

	case *ParenExpr:
		if n == nil {
			return
		}
		Walk(n.Expr, fn)

	case *SubqueryExpr:
		if n == nil {
			return
		}
		Walk(n.Select, fn)

	case *ColumnRef, *Literal, *IntervalLiteral:
		// leaves
	}
}

// CollectFuncCalls returns all function calls in a statement.
func CollectFuncCalls(stmt *SelectStmt) []*FuncCall {
	var funcs []*FuncCall
	Walk(stmt, func(node any) bool {
		if fc, ok := node.(*FuncCall); ok {
			funcs = append(funcs, fc)
		}
		return true
	})
	return funcs
}

// CollectColumnRefs returns all column references in an expression.
func CollectColumnRefs(expr Expr) []*ColumnRef {
	var refs []*ColumnRef
	Walk(expr, func(node any) bool {
		if cr, ok := node.(*ColumnRef); ok {
			refs = append(refs, cr)
		}
		return true
	})
	return refs
}

// HasWindowFunction reports whether any function call carries an OVER clause.
func HasWindowFunction(stmt *SelectStmt) bool {
	found := false
	Walk(stmt, func(node any) bool {
		if fc, ok := node.(*FuncCall); ok && fc.Window != nil {
			found = true
			return false
		}
		return true
	})
	return found
}

// HasSubquery reports whether the statement contains a derived table or a
// subquery expression anywhere below the top-level body.
func HasSubquery(stmt *SelectStmt) bool {
	found := false
	Walk(stmt, func(node any) bool {
		switch n := node.(type) {
		case *DerivedTable, *SubqueryExpr:
			found = true
			return false
		case *InExpr:
			if n.Query != nil {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// Core extracts the single select core from a statement, handling nil checks.
// Returns nil when the statement carries set operations.
func Core(stmt *SelectStmt) *SelectCore {
	if stmt == nil || stmt.Body == nil || stmt.Body.Right != nil {
		return nil
	}
	return stmt.Body.Left
}
