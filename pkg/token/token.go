// Package token defines the lexical tokens produced by the SQL lexer.
//
// Keywords are not distinct token types: every bare word lexes as IDENT and
// is classified later with IsKeyword / IsReserved. This keeps the lexer
// dialect-neutral while the parser decides what a word means in context.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // token.TokenType reads clearly at call sites
type TokenType int32

//nolint:revive // ALL_CAPS names follow SQL token conventions
const (
	EOF TokenType = iota
	ILLEGAL

	// Trivia
	WHITESPACE
	NEWLINE
	COMMENT

	// Words and literals
	IDENT        // select, foo
	QUOTED_IDENT // "foo", `foo`, [foo]
	STRING       // 'hello'
	NUMBER       // 123, 45.67, 1e10
	PARAM        // ?, :name, $1, ${var}, @var
	STAGE        // @my_stage/path (snowflake stage reference)

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	PIPE      // |
	AMP       // &
	CARET     // ^
	TILDE     // ~
	BANG      // !
	EQ        // =
	EQEQ      // ==
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	NULLSAFE  // <=>
	DCOLON    // ::
	ARROW     // ->
	DARROW    // ->>
	FATARROW  // =>
	COLON     // :
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
)

var tokenNames = map[TokenType]string{
	EOF:          "EOF",
	ILLEGAL:      "ILLEGAL",
	WHITESPACE:   "WHITESPACE",
	NEWLINE:      "NEWLINE",
	COMMENT:      "COMMENT",
	IDENT:        "IDENT",
	QUOTED_IDENT: "QUOTED_IDENT",
	STRING:       "STRING",
	NUMBER:       "NUMBER",
	PARAM:        "PARAM",
	STAGE:        "STAGE",
	PLUS:         "+",
	MINUS:        "-",
	STAR:         "*",
	SLASH:        "/",
	PERCENT:      "%",
	DPIPE:        "||",
	PIPE:         "|",
	AMP:          "&",
	CARET:        "^",
	TILDE:        "~",
	BANG:         "!",
	EQ:           "=",
	EQEQ:         "==",
	NE:           "!=",
	LT:           "<",
	GT:           ">",
	LE:           "<=",
	GE:           ">=",
	NULLSAFE:     "<=>",
	DCOLON:       "::",
	ARROW:        "->",
	DARROW:       "->>",
	FATARROW:     "=>",
	COLON:        ":",
	DOT:          ".",
	COMMA:        ",",
	SEMICOLON:    ";",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACKET:     "[",
	RBRACKET:     "]",
	LBRACE:       "{",
	RBRACE:       "}",
}

// String returns the string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// IsTrivia reports whether the token carries no syntax (whitespace, newline, comment).
func (t TokenType) IsTrivia() bool {
	return t == WHITESPACE || t == NEWLINE || t == COMMENT
}

// IsOperator reports whether the token is a binary or unary operator.
func (t TokenType) IsOperator() bool {
	return t >= PLUS && t <= COLON
}

// Token is a single lexical unit. Literal holds the exact source text,
// quotes and comment markers included.
type Token struct {
	Type    TokenType
	Literal string
	Span    Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Position represents a location in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a half-open range [Start, End) in the source text.
type Span struct {
	Start Position
	End   Position
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}
