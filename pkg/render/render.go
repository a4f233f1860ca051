// Package render turns syntax trees back into SQL text.
//
// Output is deterministic and single-line: the compiler stores rendered
// queries in the catalog and compares them during repair, so the same tree
// must always produce the same bytes.
package render

import (
	"bytes"
	"strings"

	"github.com/tidemark-db/tidemark/pkg/sqlast"
	"github.com/tidemark-db/tidemark/pkg/token"
)

// Statement renders a complete statement.
func Statement(stmt *sqlast.SelectStmt) string {
	p := &printer{}
	p.statement(stmt)
	return p.String()
}

// Expr renders a single expression.
func Expr(e sqlast.Expr) string {
	p := &printer{}
	p.expr(e)
	return p.String()
}

type printer struct {
	out bytes.Buffer
}

func (p *printer) String() string {
	return p.out.String()
}

func (p *printer) write(s string) {
	p.out.WriteString(s)
}

func (p *printer) space() {
	p.out.WriteByte(' ')
}

func (p *printer) ident(name string) {
	p.write(QuoteIdent(name))
}

// QuoteIdent quotes an identifier when it is not a plain lower-case name or
// collides with a keyword. Embedded double quotes are doubled.
func QuoteIdent(name string) string {
	if isPlainIdent(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch == '_':
		case ch >= '0' && ch <= '9' && i > 0:
		case ch == '$' && i > 0:
		default:
			return false
		}
	}
	return !token.IsKeyword(token.LookupIdent(name))
}

// QuoteLiteral renders a string as a SQL literal with doubled quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (p *printer) statement(stmt *sqlast.SelectStmt) {
	if stmt == nil {
		return
	}
	if stmt.With != nil {
		p.write("WITH ")
		if stmt.With.Recursive {
			p.write("RECURSIVE ")
		}
		for i, cte := range stmt.With.CTEs {
			if i > 0 {
				p.write(", ")
			}
			p.ident(cte.Name)
			p.write(" AS (")
			p.statement(cte.Select)
			p.write(")")
		}
		p.space()
	}
	p.body(stmt.Body)
}

func (p *printer) body(b *sqlast.SelectBody) {
	if b == nil {
		return
	}
	p.core(b.Left)
	if b.Op != sqlast.SetOpNone && b.Right != nil {
		p.space()
		p.write(string(b.Op))
		p.space()
		p.body(b.Right)
	}
}

func (p *printer) core(c *sqlast.SelectCore) {
	if c == nil {
		return
	}
	p.write("SELECT ")
	if c.Distinct {
		p.write("DISTINCT ")
	}
	for i, col := range c.Columns {
		if i > 0 {
			p.write(", ")
		}
		p.selectItem(col)
	}

	if c.From != nil {
		p.write(" FROM ")
		p.from(c.From)
	}

	if c.Where != nil {
		p.write(" WHERE ")
		p.expr(c.Where)
	}

	if len(c.GroupBy) > 0 {
		p.write(" GROUP BY ")
		for i, g := range c.GroupBy {
			if i > 0 {
				p.write(", ")
			}
			p.expr(g)
		}
	}

	if c.Having != nil {
		p.write(" HAVING ")
		p.expr(c.Having)
	}

	if len(c.OrderBy) > 0 {
		p.write(" ORDER BY ")
		for i, o := range c.OrderBy {
			if i > 0 {
				p.write(", ")
			}
			p.orderItem(o)
		}
	}

	if c.Limit != nil {
		p.write(" LIMIT ")
		p.expr(c.Limit)
	}

	if c.Offset != nil {
		p.write(" OFFSET ")
		p.expr(c.Offset)
	}
}

func (p *printer) selectItem(item sqlast.SelectItem) {
	switch {
	case item.Star:
		p.write("*")
		return
	case item.TableStar != "":
		p.ident(item.TableStar)
		p.write(".*")
		return
	}
	p.expr(item.Expr)
	if item.Alias != "" {
		p.write(" AS ")
		p.ident(item.Alias)
	}
}

func (p *printer) orderItem(o sqlast.OrderByItem) {
	p.expr(o.Expr)
	if o.Desc {
		p.write(" DESC")
	}
	if o.NullsFirst != nil {
		if *o.NullsFirst {
			p.write(" NULLS FIRST")
		} else {
			p.write(" NULLS LAST")
		}
	}
}

func (p *printer) from(f *sqlast.FromClause) {
	p.tableRef(f.Source)
	for _, j := range f.Joins {
		if j.Type == sqlast.JoinComma {
			p.write(", ")
			p.tableRef(j.Right)
			continue
		}
		p.space()
		switch j.Type {
		case sqlast.JoinInner:
			p.write("JOIN ")
		case sqlast.JoinLeft:
			p.write("LEFT JOIN ")
		case sqlast.JoinRight:
			p.write("RIGHT JOIN ")
		case sqlast.JoinFull:
			p.write("FULL JOIN ")
		case sqlast.JoinCross:
			p.write("CROSS JOIN ")
		}
		p.tableRef(j.Right)
		if j.Condition != nil {
			p.write(" ON ")
			p.expr(j.Condition)
		}
	}
}

func (p *printer) tableRef(r sqlast.TableRef) {
	switch t := r.(type) {
	case *sqlast.TableName:
		if t.Schema != "" {
			p.ident(t.Schema)
			p.write(".")
		}
		p.ident(t.Name)
		if t.Alias != "" {
			p.write(" AS ")
			p.ident(t.Alias)
		}
	case *sqlast.DerivedTable:
		p.write("(")
		p.statement(t.Select)
		p.write(")")
		if t.Alias != "" {
			p.write(" AS ")
			p.ident(t.Alias)
		}
	}
}
