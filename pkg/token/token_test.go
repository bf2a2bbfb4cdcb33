package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "IDENT", IDENT.String())
	assert.Equal(t, "::", DCOLON.String())
	assert.Equal(t, "TokenType(999)", TokenType(999).String())
}

func TestClassification(t *testing.T) {
	tests := []struct {
		word     string
		keyword  bool
		reserved bool
	}{
		{"select", true, true},
		{"Overwrite", true, false},
		{"first", false, false},
		{"date", false, false},
		{"partition", true, false},
		{"union", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.keyword, IsKeyword(tt.word))
			assert.Equal(t, tt.reserved, IsReserved(tt.word))
		})
	}
}

func TestTrivia(t *testing.T) {
	assert.True(t, WHITESPACE.IsTrivia())
	assert.True(t, COMMENT.IsTrivia())
	assert.False(t, IDENT.IsTrivia())
	assert.True(t, DCOLON.IsOperator())
	assert.False(t, COMMA.IsOperator())
}
