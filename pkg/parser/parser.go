// Package parser provides a recursive descent parser for the SQL subset the
// aggregate compiler accepts.
//
// # Grammar Overview
//
//	statement     → [WITH cte_list] select_body
//	select_body   → select_core [UNION [ALL] select_body]
//	select_core   → SELECT [DISTINCT] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [ORDER BY order_list] [LIMIT expr] [OFFSET expr]
//
// The parser accepts a wider language than the compiler materializes:
// constructs like CTEs, DISTINCT and window functions parse cleanly so the
// validator can reject them with a precise reason instead of a syntax error.
package parser

import (
	"fmt"

	"github.com/tidemark-db/tidemark/pkg/sqlast"
	"github.com/tidemark-db/tidemark/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	peek2  token.Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the SQL and returns the AST.
func Parse(sql string) (*sqlast.SelectStmt, error) {
	p := NewParser(sql)
	stmt := p.parseStatement()
	if !p.check(token.EOF) {
		p.addError(fmt.Sprintf("unexpected trailing input: %s", p.token.Type))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ParseExpr parses a standalone expression, used by the repair path to
// compare stored query fragments.
func ParseExpr(sql string) (sqlast.Expr, error) {
	p := NewParser(sql)
	expr := p.parseExpression()
	if !p.check(token.EOF) {
		p.addError(fmt.Sprintf("unexpected trailing input: %s", p.token.Type))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return expr, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.Type) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.Type) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.Type) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, t))
	return false
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// isReserved returns true for keywords that cannot serve as a bare alias.
func (p *Parser) isReserved(tok token.Token) bool {
	switch tok.Type {
	case token.FROM, token.WHERE, token.GROUP, token.HAVING, token.ORDER,
		token.LIMIT, token.OFFSET, token.UNION,
		token.JOIN, token.INNER, token.LEFT, token.RIGHT, token.FULL,
		token.CROSS, token.OUTER, token.ON:
		return true
	}
	return false
}
