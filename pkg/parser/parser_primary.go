package parser

import (
	"fmt"
	"strings"

	"github.com/tidemark-db/tidemark/pkg/sqlast"
	"github.com/tidemark-db/tidemark/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | interval | column_ref | func_call | paren_expr | case_expr | cast_expr | subquery
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	interval      → INTERVAL STRING
//	column_ref    → [table "."] column
//	func_call     → [schema "."] name "(" [DISTINCT] [expr_list | "*"] ")" [FILTER "(" WHERE expr ")"] [OVER window_spec]

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() sqlast.Expr {
	switch p.token.Type {
	case token.NUMBER:
		lit := &sqlast.Literal{Type: sqlast.LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.STRING:
		lit := &sqlast.Literal{Type: sqlast.LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.TRUE:
		p.nextToken()
		return &sqlast.Literal{Type: sqlast.LiteralBool, Value: "true"}

	case token.FALSE:
		p.nextToken()
		return &sqlast.Literal{Type: sqlast.LiteralBool, Value: "false"}

	case token.NULL:
		p.nextToken()
		return &sqlast.Literal{Type: sqlast.LiteralNull, Value: "null"}

	case token.INTERVAL:
		return p.parseIntervalLiteral()

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastExpr()

	case token.IDENT:
		return p.parseIdentifierExpr()

	case token.LPAREN:
		return p.parseParenExpr()

	case token.STAR:
		// COUNT(*) argument position; bare * is handled by the select list.
		p.addError("unexpected * in expression")
		p.nextToken()
		return nil

	default:
		p.addError(fmt.Sprintf("unexpected token in expression: %s", p.token.Type))
		p.nextToken()
		return nil
	}
}

// parseIntervalLiteral parses INTERVAL 'value'.
func (p *Parser) parseIntervalLiteral() sqlast.Expr {
	p.nextToken() // consume INTERVAL
	if !p.check(token.STRING) {
		p.addError("expected string literal after INTERVAL")
		return nil
	}
	lit := &sqlast.IntervalLiteral{Value: p.token.Literal}
	p.nextToken()
	return lit
}

// parseIdentifierExpr parses an identifier which could be a column ref or function call.
func (p *Parser) parseIdentifierExpr() sqlast.Expr {
	name := p.token.Literal
	p.nextToken()

	if p.check(token.LPAREN) {
		return p.parseFuncCall("", name)
	}

	if p.check(token.DOT) {
		// schema.func(...) via lookahead
		if p.checkPeek(token.IDENT) && p.checkPeek2(token.LPAREN) {
			p.nextToken() // consume DOT
			fnName := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(name, fnName)
		}
		return p.parseQualifiedColumnRef(name)
	}

	return &sqlast.ColumnRef{Column: name}
}

// parseQualifiedColumnRef parses a qualified column reference.
func (p *Parser) parseQualifiedColumnRef(firstPart string) sqlast.Expr {
	parts := []string{firstPart}

	for p.match(token.DOT) {
		if p.check(token.IDENT) {
			parts = append(parts, p.token.Literal)
			p.nextToken()
		} else {
			p.addError("expected identifier after .")
			break
		}
	}

	ref := &sqlast.ColumnRef{}
	switch len(parts) {
	case 2:
		ref.Table = parts[0]
		ref.Column = parts[1]
	case 3:
		// schema.table.column keeps the table part only
		ref.Table = parts[1]
		ref.Column = parts[2]
	default:
		ref.Column = parts[len(parts)-1]
	}

	return ref
}

// parseFuncCall parses a function call. Names fold to lower case so the
// dialect whitelists compare by exact string.
func (p *Parser) parseFuncCall(schema, name string) sqlast.Expr {
	fn := &sqlast.FuncCall{Schema: schema, Name: strings.ToLower(name)}

	p.expect(token.LPAREN)

	if p.check(token.STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(token.RPAREN) {
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		}

		for {
			arg := p.parseExpression()
			fn.Args = append(fn.Args, arg)

			if !p.match(token.COMMA) {
				break
			}
		}
	}

	p.expect(token.RPAREN)

	// FILTER clause (for aggregates)
	if p.match(token.FILTER) {
		p.expect(token.LPAREN)
		p.expect(token.WHERE)
		fn.Filter = p.parseExpression()
		p.expect(token.RPAREN)
	}

	// OVER clause (window function)
	if p.match(token.OVER) {
		fn.Window = p.parseWindowSpec()
	}

	return fn
}

// parseWindowSpec parses an OVER clause. Frame clauses are consumed without
// being modeled; the validator rejects window functions outright.
func (p *Parser) parseWindowSpec() *sqlast.WindowSpec {
	spec := &sqlast.WindowSpec{}
	p.expect(token.LPAREN)

	if p.check(token.IDENT) && p.token.Literal == "partition" {
		p.nextToken()
		p.expect(token.BY)
		spec.PartitionBy = p.parseExpressionList()
	}

	if p.check(token.ORDER) {
		p.nextToken()
		p.expect(token.BY)
		spec.OrderBy = p.parseOrderByList()
	}

	// Discard anything left before the closing paren (frame clauses).
	depth := 0
	for !p.check(token.EOF) {
		if p.check(token.LPAREN) {
			depth++
		}
		if p.check(token.RPAREN) {
			if depth == 0 {
				break
			}
			depth--
		}
		p.nextToken()
	}
	p.expect(token.RPAREN)

	return spec
}

// parseParenExpr parses a parenthesized expression or a scalar subquery.
func (p *Parser) parseParenExpr() sqlast.Expr {
	p.expect(token.LPAREN)

	if p.check(token.SELECT) || p.check(token.WITH) {
		sub := &sqlast.SubqueryExpr{Select: p.parseStatement()}
		p.expect(token.RPAREN)
		return sub
	}

	expr := p.parseExpression()
	p.expect(token.RPAREN)
	return &sqlast.ParenExpr{Expr: expr}
}

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() sqlast.Expr {
	p.expect(token.CASE)
	caseExpr := &sqlast.CaseExpr{}

	// Optional operand form: CASE expr WHEN ...
	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	for p.match(token.WHEN) {
		when := sqlast.WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}

	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expect(token.END)
	return caseExpr
}

// parseCastExpr parses CAST(expr AS type).
func (p *Parser) parseCastExpr() sqlast.Expr {
	p.expect(token.CAST)
	p.expect(token.LPAREN)

	cast := &sqlast.CastExpr{}
	cast.Expr = p.parseExpression()
	p.expect(token.AS)
	cast.TypeName = p.parseTypeName()
	p.expect(token.RPAREN)

	return cast
}

var typeNameWords = map[string]bool{
	"without":   true,
	"time":      true,
	"zone":      true,
	"precision": true,
	"varying":   true,
}

// parseTypeName parses a type name, including multi-word names like
// "timestamp with time zone" and precision suffixes like "numeric(10, 2)".
func (p *Parser) parseTypeName() string {
	var parts []string

	switch {
	case p.check(token.IDENT):
		parts = append(parts, p.token.Literal)
		p.nextToken()
	case p.check(token.INTERVAL):
		parts = append(parts, "interval")
		p.nextToken()
	default:
		p.addError("expected type name")
		return ""
	}

	// Multi-word names continue only through known type words, so a bare
	// alias after a :: cast is not swallowed.
	for p.check(token.WITH) || (p.check(token.IDENT) && typeNameWords[p.token.Literal]) {
		parts = append(parts, strings.ToLower(p.token.Literal))
		p.nextToken()
	}

	name := strings.Join(parts, " ")

	if p.match(token.LPAREN) {
		var args []string
		for p.check(token.NUMBER) {
			args = append(args, p.token.Literal)
			p.nextToken()
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
		name = fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	}

	return name
}
