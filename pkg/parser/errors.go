package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Stage tells which phase reported a violation.
type Stage string

// Violation stages.
const (
	StageLex   Stage = "lex"
	StageParse Stage = "parse"
)

// Violation is a diagnostic attached to a statement the parser could not
// fully understand.
type Violation struct {
	Stage   Stage
	Pos     token.Position
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s error at line %d, column %d: %s", v.Stage, v.Pos.Line, v.Pos.Column, v.Message)
}

// Common error messages
const (
	ErrUnexpectedToken        = "unexpected token %s, expected %s"
	ErrUnexpectedInput        = "unexpected %q"
	ErrUnterminatedString     = "unterminated string literal"
	ErrUnterminatedIdentifier = "unterminated quoted identifier"
	ErrUnterminatedComment    = "unterminated block comment"
	ErrUnclosedParen          = "unclosed parenthesis"
	ErrExpectedExpression     = "expected expression, found %q"
	ErrExpectedIdentifier     = "expected identifier, found %q"
	ErrUnknownStatement       = "unrecognized statement starting with %q"
)
