package dialect

import (
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

// FindVolatile returns the first volatile function call reachable from
// expr, or nil when the expression is pure. Subqueries are opaque here;
// the validator rejects them before purity is checked.
func (d *Dialect) FindVolatile(expr sqlast.Expr) *sqlast.FuncCall {
	var hit *sqlast.FuncCall
	sqlast.Walk(expr, func(node any) bool {
		if fc, ok := node.(*sqlast.FuncCall); ok && d.IsVolatile(fc.Name) {
			hit = fc
			return false
		}
		return true
	})
	return hit
}

// IsPure reports whether expr contains no volatile function calls.
func (d *Dialect) IsPure(expr sqlast.Expr) bool {
	return d.FindVolatile(expr) == nil
}
