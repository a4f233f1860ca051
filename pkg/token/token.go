// Package token defines the lexical tokens for the SQL subset understood
// by the aggregate compiler.
package token

import "fmt"

// Type identifies the kind of a lexical token.
type Type int32

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	DPIPE   // ||
	EQ      // =
	NE      // != or <>
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=
	DOT     // .
	COMMA   // ,
	LPAREN  // (
	RPAREN  // )
	DCOLON  // ::

	// Keywords (alphabetical)
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CROSS
	DESC
	DISTINCT
	ELSE
	END
	FALSE
	FILTER
	FIRST
	FROM
	FULL
	GROUP
	HAVING
	IN
	INNER
	INTERVAL
	IS
	JOIN
	LAST
	LEFT
	LIKE
	LIMIT
	NOT
	NULL
	NULLS
	OFFSET
	ON
	OR
	ORDER
	OUTER
	OVER
	RIGHT
	SELECT
	THEN
	TRUE
	UNION
	WHEN
	WHERE
	WITH
)

// String returns a human-readable representation of the token type.
func (t Type) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int32(t))
}

var tokenNames = map[Type]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	DPIPE:   "||",
	EQ:      "=",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	DOT:     ".",
	COMMA:   ",",
	LPAREN:  "(",
	RPAREN:  ")",
	DCOLON:  "::",

	ALL:      "ALL",
	AND:      "AND",
	AS:       "AS",
	ASC:      "ASC",
	BETWEEN:  "BETWEEN",
	BY:       "BY",
	CASE:     "CASE",
	CAST:     "CAST",
	CROSS:    "CROSS",
	DESC:     "DESC",
	DISTINCT: "DISTINCT",
	ELSE:     "ELSE",
	END:      "END",
	FALSE:    "FALSE",
	FILTER:   "FILTER",
	FIRST:    "FIRST",
	FROM:     "FROM",
	FULL:     "FULL",
	GROUP:    "GROUP",
	HAVING:   "HAVING",
	IN:       "IN",
	INNER:    "INNER",
	INTERVAL: "INTERVAL",
	IS:       "IS",
	JOIN:     "JOIN",
	LAST:     "LAST",
	LEFT:     "LEFT",
	LIKE:     "LIKE",
	LIMIT:    "LIMIT",
	NOT:      "NOT",
	NULL:     "NULL",
	NULLS:    "NULLS",
	OFFSET:   "OFFSET",
	ON:       "ON",
	OR:       "OR",
	ORDER:    "ORDER",
	OUTER:    "OUTER",
	OVER:     "OVER",
	RIGHT:    "RIGHT",
	SELECT:   "SELECT",
	THEN:     "THEN",
	TRUE:     "TRUE",
	UNION:    "UNION",
	WHEN:     "WHEN",
	WHERE:    "WHERE",
	WITH:     "WITH",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]Type{
	"all":      ALL,
	"and":      AND,
	"as":       AS,
	"asc":      ASC,
	"between":  BETWEEN,
	"by":       BY,
	"case":     CASE,
	"cast":     CAST,
	"cross":    CROSS,
	"desc":     DESC,
	"distinct": DISTINCT,
	"else":     ELSE,
	"end":      END,
	"false":    FALSE,
	"filter":   FILTER,
	"first":    FIRST,
	"from":     FROM,
	"full":     FULL,
	"group":    GROUP,
	"having":   HAVING,
	"in":       IN,
	"inner":    INNER,
	"interval": INTERVAL,
	"is":       IS,
	"join":     JOIN,
	"last":     LAST,
	"left":     LEFT,
	"like":     LIKE,
	"limit":    LIMIT,
	"not":      NOT,
	"null":     NULL,
	"nulls":    NULLS,
	"offset":   OFFSET,
	"on":       ON,
	"or":       OR,
	"order":    ORDER,
	"outer":    OUTER,
	"over":     OVER,
	"right":    RIGHT,
	"select":   SELECT,
	"then":     THEN,
	"true":     TRUE,
	"union":    UNION,
	"when":     WHEN,
	"where":    WHERE,
	"with":     WITH,
}

// LookupIdent returns the token type for the given identifier. Keywords are
// matched case-insensitively by the lexer, which lowercases before calling.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t Type) bool {
	return t >= ALL && t <= WITH
}

// Token is a lexical token with its source position.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}
