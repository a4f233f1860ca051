package parser

import (
	"github.com/tidemark-db/tidemark/pkg/sqlast"
	"github.com/tidemark-db/tidemark/pkg/token"
)

// Expression parsing uses a Pratt parser with fixed precedence levels:
//
//	precedenceNone       = 0
//	precedenceOr         = 1
//	precedenceAnd        = 2
//	precedenceNot        = 3
//	precedenceComparison = 4  (=, !=, <, >, <=, >=, IS, IN, BETWEEN, LIKE)
//	precedenceAddition   = 5  (+, -, ||)
//	precedenceMultiply   = 6  (*, /, %)
//	precedenceUnary      = 7  (-, +, NOT)
//	precedencePostfix    = 8  (::)
const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceAddition
	precedenceMultiply
	precedenceUnary
	precedencePostfix
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() sqlast.Expr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) sqlast.Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence()
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses unary operators and primary expressions.
func (p *Parser) parsePrefixExpr() sqlast.Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceNot)
		return &sqlast.UnaryExpr{Op: "NOT", Expr: expr}

	case token.MINUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		return &sqlast.UnaryExpr{Op: "-", Expr: expr}

	case token.PLUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		return &sqlast.UnaryExpr{Op: "+", Expr: expr}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precedenceNone if it is not one.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precedenceOr
	case token.AND:
		return precedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return precedenceComparison
	case token.IS, token.IN, token.BETWEEN, token.LIKE:
		return precedenceComparison
	case token.NOT:
		// NOT as infix prefix for NOT IN / NOT BETWEEN / NOT LIKE
		return precedenceComparison
	case token.PLUS, token.MINUS, token.DPIPE:
		return precedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precedenceMultiply
	case token.DCOLON:
		return precedencePostfix
	default:
		return precedenceNone
	}
}

// parseInfixExpr parses an infix expression given the left operand.
func (p *Parser) parseInfixExpr(left sqlast.Expr, prec int) sqlast.Expr {
	switch p.token.Type {
	case token.NOT:
		return p.parseNotInfixExpr(left)

	case token.IS:
		return p.parseIsExpr(left)

	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, false)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, false)

	case token.DCOLON:
		p.nextToken()
		return &sqlast.CastExpr{Expr: left, TypeName: p.parseTypeName()}
	}

	op := p.token
	p.nextToken()

	// Right operand binds at higher precedence (left-associative).
	right := p.parseExpressionWithPrecedence(prec + 1)

	// The token type's name normalizes spelling: "and" vs "AND", "<>" vs "!=".
	return &sqlast.BinaryExpr{Left: left, Op: op.Type.String(), Right: right}
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT BETWEEN, NOT LIKE).
func (p *Parser) parseNotInfixExpr(left sqlast.Expr) sqlast.Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, true)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, true)

	default:
		p.addError("expected IN, BETWEEN, or LIKE after NOT")
		return left
	}
}

// parseIsExpr parses IS [NOT] NULL / IS [NOT] TRUE / IS [NOT] FALSE.
func (p *Parser) parseIsExpr(left sqlast.Expr) sqlast.Expr {
	p.nextToken() // consume IS

	isNot := p.match(token.NOT)

	switch p.token.Type {
	case token.NULL:
		p.nextToken()
		return &sqlast.IsNullExpr{Expr: left, Not: isNot}

	case token.TRUE:
		p.nextToken()
		eq := &sqlast.BinaryExpr{Left: left, Op: "=", Right: &sqlast.Literal{Type: sqlast.LiteralBool, Value: "true"}}
		if isNot {
			return &sqlast.UnaryExpr{Op: "NOT", Expr: eq}
		}
		return eq

	case token.FALSE:
		p.nextToken()
		eq := &sqlast.BinaryExpr{Left: left, Op: "=", Right: &sqlast.Literal{Type: sqlast.LiteralBool, Value: "false"}}
		if isNot {
			return &sqlast.UnaryExpr{Op: "NOT", Expr: eq}
		}
		return eq

	default:
		p.addError("expected NULL, TRUE, or FALSE after IS")
		return left
	}
}

// parseInExpr parses an IN expression.
func (p *Parser) parseInExpr(left sqlast.Expr, not bool) sqlast.Expr {
	p.expect(token.LPAREN)
	in := &sqlast.InExpr{Expr: left, Not: not}

	if p.check(token.SELECT) || p.check(token.WITH) {
		in.Query = p.parseStatement()
	} else {
		in.Values = p.parseExpressionList()
	}

	p.expect(token.RPAREN)
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left sqlast.Expr, not bool) sqlast.Expr {
	between := &sqlast.BetweenExpr{Expr: left, Not: not}
	// Bounds parse at addition precedence to avoid capturing AND.
	between.Low = p.parseExpressionWithPrecedence(precedenceAddition)
	p.expect(token.AND)
	between.High = p.parseExpressionWithPrecedence(precedenceAddition)
	return between
}

// parseLikeExpr parses a LIKE expression.
func (p *Parser) parseLikeExpr(left sqlast.Expr, not bool) sqlast.Expr {
	like := &sqlast.LikeExpr{Expr: left, Not: not}
	like.Pattern = p.parseExpressionWithPrecedence(precedenceAddition)
	return like
}
