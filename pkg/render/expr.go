package render

import (
	"github.com/tidemark-db/tidemark/pkg/sqlast"
)

func (p *printer) expr(e sqlast.Expr) {
	switch x := e.(type) {
	case nil:
		return
	case *sqlast.ColumnRef:
		if x.Table != "" {
			p.ident(x.Table)
			p.write(".")
		}
		p.ident(x.Column)

	case *sqlast.Literal:
		switch x.Type {
		case sqlast.LiteralString:
			p.write(QuoteLiteral(x.Value))
		case sqlast.LiteralBool:
			if x.Value == "true" {
				p.write("TRUE")
			} else {
				p.write("FALSE")
			}
		case sqlast.LiteralNull:
			p.write("NULL")
		default:
			p.write(x.Value)
		}

	case *sqlast.IntervalLiteral:
		p.write("INTERVAL ")
		p.write(QuoteLiteral(x.Value))

	case *sqlast.BinaryExpr:
		p.expr(x.Left)
		p.space()
		p.write(x.Op)
		p.space()
		p.expr(x.Right)

	case *sqlast.UnaryExpr:
		p.write(x.Op)
		if x.Op == "NOT" {
			p.space()
		}
		p.expr(x.Expr)

	case *sqlast.FuncCall:
		if x.Schema != "" {
			p.ident(x.Schema)
			p.write(".")
		}
		p.ident(x.Name)
		p.write("(")
		if x.Star {
			p.write("*")
		} else {
			if x.Distinct {
				p.write("DISTINCT ")
			}
			for i, arg := range x.Args {
				if i > 0 {
					p.write(", ")
				}
				p.expr(arg)
			}
		}
		p.write(")")
		if x.Filter != nil {
			p.write(" FILTER (WHERE ")
			p.expr(x.Filter)
			p.write(")")
		}
		if x.Window != nil {
			p.write(" OVER (")
			if len(x.Window.PartitionBy) > 0 {
				p.write("PARTITION BY ")
				for i, pe := range x.Window.PartitionBy {
					if i > 0 {
						p.write(", ")
					}
					p.expr(pe)
				}
			}
			if len(x.Window.OrderBy) > 0 {
				if len(x.Window.PartitionBy) > 0 {
					p.space()
				}
				p.write("ORDER BY ")
				for i, o := range x.Window.OrderBy {
					if i > 0 {
						p.write(", ")
					}
					p.orderItem(o)
				}
			}
			p.write(")")
		}

	case *sqlast.CaseExpr:
		p.write("CASE")
		if x.Operand != nil {
			p.space()
			p.expr(x.Operand)
		}
		for _, w := range x.Whens {
			p.write(" WHEN ")
			p.expr(w.Condition)
			p.write(" THEN ")
			p.expr(w.Result)
		}
		if x.Else != nil {
			p.write(" ELSE ")
			p.expr(x.Else)
		}
		p.write(" END")

	case *sqlast.CastExpr:
		p.write("CAST(")
		p.expr(x.Expr)
		p.write(" AS ")
		p.write(x.TypeName)
		p.write(")")

	case *sqlast.InExpr:
		p.expr(x.Expr)
		if x.Not {
			p.write(" NOT")
		}
		p.write(" IN (")
		if x.Query != nil {
			p.statement(x.Query)
		} else {
			for i, v := range x.Values {
				if i > 0 {
					p.write(", ")
				}
				p.expr(v)
			}
		}
		p.write(")")

	case *sqlast.BetweenExpr:
		p.expr(x.Expr)
		if x.Not {
			p.write(" NOT")
		}
		p.write(" BETWEEN ")
		p.expr(x.Low)
		p.write(" AND ")
		p.expr(x.High)

	case *sqlast.IsNullExpr:
		p.expr(x.Expr)
		if x.Not {
			p.write(" IS NOT NULL")
		} else {
			p.write(" IS NULL")
		}

	case *sqlast.LikeExpr:
		p.expr(x.Expr)
		if x.Not {
			p.write(" NOT")
		}
		p.write(" LIKE ")
		p.expr(x.Pattern)

	case *sqlast.ParenExpr:
		p.write("(")
		p.expr(x.Expr)
		p.write(")")

	case *sqlast.SubqueryExpr:
		p.write("(")
		p.statement(x.Select)
		p.write(")")
	}
}
