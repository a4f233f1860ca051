package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	assert.Equal(t, SELECT, LookupIdent("select"))
	assert.Equal(t, INTERVAL, LookupIdent("interval"))
	assert.Equal(t, IDENT, LookupIdent("time_bucket"))
	assert.Equal(t, IDENT, LookupIdent("selectx"))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "SELECT", SELECT.String())
	assert.Equal(t, "||", DPIPE.String())
	assert.Equal(t, "TOKEN(9999)", Type(9999).String())
}

func TestIsKeyword(t *testing.T) {
	assert.True(t, IsKeyword(GROUP))
	assert.True(t, IsKeyword(WITH))
	assert.False(t, IsKeyword(IDENT))
	assert.False(t, IsKeyword(LPAREN))
}
