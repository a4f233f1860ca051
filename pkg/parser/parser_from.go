package parser

import (
	"github.com/tidemark-db/tidemark/pkg/sqlast"
	"github.com/tidemark-db/tidemark/pkg/token"
)

// FROM clause parsing: table references, derived tables, JOINs.
//
// Grammar:
//
//	from_clause   → table_ref (join)*
//	table_ref     → table_name | derived_table
//	table_name    → [schema "."] identifier [AS identifier]
//	derived_table → "(" statement ")" [AS] identifier
//	join          → join_type JOIN table_ref [ON expr] | "," table_ref
//	join_type     → [INNER] | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER] | CROSS

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *sqlast.FromClause {
	from := &sqlast.FromClause{}
	from.Source = p.parseTableRef()

	for {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}

	return from
}

// parseTableRef parses a table reference.
func (p *Parser) parseTableRef() sqlast.TableRef {
	if p.check(token.LPAREN) {
		return p.parseDerivedTable()
	}
	return p.parseTableName()
}

// parseTableName parses a table name with optional schema qualifier.
func (p *Parser) parseTableName() *sqlast.TableName {
	table := &sqlast.TableName{}

	if !p.check(token.IDENT) {
		p.addError("expected table name")
		return table
	}

	parts := []string{p.token.Literal}
	p.nextToken()

	for p.match(token.DOT) {
		if p.check(token.IDENT) {
			parts = append(parts, p.token.Literal)
			p.nextToken()
		}
	}

	switch len(parts) {
	case 1:
		table.Name = parts[0]
	default:
		table.Schema = parts[0]
		table.Name = parts[1]
	}

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			table.Alias = p.token.Literal
			p.nextToken()
		}
	} else if p.check(token.IDENT) && !p.isReserved(p.token) {
		table.Alias = p.token.Literal
		p.nextToken()
	}

	return table
}

// parseDerivedTable parses a derived table (subquery in FROM).
func (p *Parser) parseDerivedTable() *sqlast.DerivedTable {
	p.expect(token.LPAREN)
	derived := &sqlast.DerivedTable{}
	derived.Select = p.parseStatement()
	p.expect(token.RPAREN)

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			derived.Alias = p.token.Literal
			p.nextToken()
		}
	} else if p.check(token.IDENT) {
		derived.Alias = p.token.Literal
		p.nextToken()
	}

	return derived
}

// parseJoin parses a single JOIN clause, or returns nil if the current
// token does not start one.
func (p *Parser) parseJoin() *sqlast.Join {
	join := &sqlast.Join{}

	switch p.token.Type {
	case token.COMMA:
		p.nextToken()
		join.Type = sqlast.JoinComma
		join.Right = p.parseTableRef()
		return join

	case token.JOIN:
		p.nextToken()
		join.Type = sqlast.JoinInner

	case token.INNER:
		p.nextToken()
		p.expect(token.JOIN)
		join.Type = sqlast.JoinInner

	case token.LEFT:
		p.nextToken()
		p.match(token.OUTER)
		p.expect(token.JOIN)
		join.Type = sqlast.JoinLeft

	case token.RIGHT:
		p.nextToken()
		p.match(token.OUTER)
		p.expect(token.JOIN)
		join.Type = sqlast.JoinRight

	case token.FULL:
		p.nextToken()
		p.match(token.OUTER)
		p.expect(token.JOIN)
		join.Type = sqlast.JoinFull

	case token.CROSS:
		p.nextToken()
		p.expect(token.JOIN)
		join.Type = sqlast.JoinCross
		join.Right = p.parseTableRef()
		return join

	default:
		return nil
	}

	join.Right = p.parseTableRef()

	if p.match(token.ON) {
		join.Condition = p.parseExpression()
	}

	return join
}
