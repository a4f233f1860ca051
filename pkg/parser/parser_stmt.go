package parser

import (
	"github.com/tidemark-db/tidemark/pkg/sqlast"
	"github.com/tidemark-db/tidemark/pkg/token"
)

// Statement parsing: WITH clause, CTEs, SELECT body, SELECT list, ORDER BY.

// parseStatement parses a complete SQL statement.
func (p *Parser) parseStatement() *sqlast.SelectStmt {
	stmt := &sqlast.SelectStmt{}

	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}

	stmt.Body = p.parseSelectBody()

	return stmt
}

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *sqlast.WithClause {
	p.expect(token.WITH)
	with := &sqlast.WithClause{}

	// RECURSIVE is not a keyword here; accept it as an identifier.
	if p.check(token.IDENT) && p.token.Literal == "recursive" {
		with.Recursive = true
		p.nextToken()
	}

	for {
		cte := p.parseCTE()
		with.CTEs = append(with.CTEs, cte)

		if !p.match(token.COMMA) {
			break
		}
	}

	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *sqlast.CTE {
	cte := &sqlast.CTE{}

	if !p.check(token.IDENT) {
		p.addError("expected CTE name")
		return cte
	}
	cte.Name = p.token.Literal
	p.nextToken()

	p.expect(token.AS)

	p.expect(token.LPAREN)
	cte.Select = p.parseStatement()
	p.expect(token.RPAREN)

	return cte
}

// parseSelectBody parses a SELECT body with possible set operations.
func (p *Parser) parseSelectBody() *sqlast.SelectBody {
	body := &sqlast.SelectBody{}
	body.Left = p.parseSelectCore()

	if p.match(token.UNION) {
		if p.match(token.ALL) {
			body.Op = sqlast.SetOpUnionAll
		} else {
			body.Op = sqlast.SetOpUnion
			p.match(token.DISTINCT) // optional
		}
		body.Right = p.parseSelectBody()
	}

	return body
}

// parseSelectCore parses a single SELECT clause.
func (p *Parser) parseSelectCore() *sqlast.SelectCore {
	p.expect(token.SELECT)
	core := &sqlast.SelectCore{}

	if p.match(token.DISTINCT) {
		core.Distinct = true
	} else {
		p.match(token.ALL) // optional, consume if present
	}

	core.Columns = p.parseSelectList()

	if p.match(token.FROM) {
		core.From = p.parseFromClause()
	}

	if p.match(token.WHERE) {
		core.Where = p.parseExpression()
	}

	if p.check(token.GROUP) {
		p.nextToken()
		p.expect(token.BY)
		core.GroupBy = p.parseExpressionList()
	}

	if p.match(token.HAVING) {
		core.Having = p.parseExpression()
	}

	if p.check(token.ORDER) {
		p.nextToken()
		p.expect(token.BY)
		core.OrderBy = p.parseOrderByList()
	}

	if p.match(token.LIMIT) {
		core.Limit = p.parseExpression()
	}

	if p.match(token.OFFSET) {
		core.Offset = p.parseExpression()
	}

	return core
}

// parseSelectList parses the list of SELECT items.
func (p *Parser) parseSelectList() []sqlast.SelectItem {
	var items []sqlast.SelectItem

	for {
		item := p.parseSelectItem()
		items = append(items, item)

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseSelectItem parses a single SELECT item.
func (p *Parser) parseSelectItem() sqlast.SelectItem {
	item := sqlast.SelectItem{}

	if p.check(token.STAR) {
		item.Star = true
		p.nextToken()
		return item
	}

	// table.* via 3-token lookahead, no rollback needed
	if p.check(token.IDENT) && p.checkPeek(token.DOT) && p.checkPeek2(token.STAR) {
		tableName := p.token.Literal
		p.nextToken()
		p.nextToken()
		p.nextToken()
		item.TableStar = tableName
		return item
	}

	item.Expr = p.parseExpression()

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			item.Alias = p.token.Literal
			p.nextToken()
		} else {
			p.addError("expected alias after AS")
		}
	} else if p.check(token.IDENT) && !p.isReserved(p.token) {
		// Alias without AS
		item.Alias = p.token.Literal
		p.nextToken()
	}

	return item
}

// parseOrderByList parses a list of ORDER BY items.
func (p *Parser) parseOrderByList() []sqlast.OrderByItem {
	var items []sqlast.OrderByItem

	for {
		item := p.parseOrderByItem()
		items = append(items, item)

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseOrderByItem parses a single ORDER BY item.
func (p *Parser) parseOrderByItem() sqlast.OrderByItem {
	item := sqlast.OrderByItem{}
	item.Expr = p.parseExpression()

	if p.match(token.ASC) {
		item.Desc = false
	} else if p.match(token.DESC) {
		item.Desc = true
	}

	if p.match(token.NULLS) {
		if p.match(token.FIRST) {
			b := true
			item.NullsFirst = &b
		} else if p.match(token.LAST) {
			b := false
			item.NullsFirst = &b
		} else {
			p.addError("expected FIRST or LAST after NULLS")
		}
	}

	return item
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []sqlast.Expr {
	var exprs []sqlast.Expr

	for {
		expr := p.parseExpression()
		exprs = append(exprs, expr)

		if !p.match(token.COMMA) {
			break
		}
	}

	return exprs
}
