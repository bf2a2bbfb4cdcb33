package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Lexer tokenizes SQL input. Unlike a compiler lexer it keeps trivia:
// whitespace, newlines and comments come out as tokens so the syntax tree
// can reproduce the source exactly.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)

	dialect *dialect.Dialect

	errors []*LexError
}

// NewLexer creates a Lexer for input. A nil dialect means ANSI.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	l := &Lexer{
		input:   input,
		line:    1,
		col:     0,
		dialect: d,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors found so far.
func (l *Lexer) Errors() []*LexError {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) addError(pos token.Position, msg string) {
	l.errors = append(l.errors, &LexError{Pos: pos, Message: msg})
}

// NextToken returns the next token, trivia included.
func (l *Lexer) NextToken() token.Token {
	start := l.currentPos()
	typ := l.scan(start)
	return token.Token{
		Type:    typ,
		Literal: l.input[start.Offset:l.pos],
		Span:    token.Span{Start: start, End: l.currentPos()},
	}
}

// advance consumes n chars.
func (l *Lexer) advance(n int) {
	for range n {
		l.readChar()
	}
}

//nolint:gocyclo // one case per lexical form
func (l *Lexer) scan(start token.Position) token.TokenType {
	if l.atEOF() {
		return token.EOF
	}

	switch {
	case l.ch == '\n' || (l.ch == '\r' && l.peekChar() == '\n'):
		if l.ch == '\r' {
			l.readChar()
		}
		l.readChar()
		return token.NEWLINE
	case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f':
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\f' || (l.ch == '\r' && l.peekChar() != '\n') {
			l.readChar()
		}
		return token.WHITESPACE
	case l.ch == '-' && l.peekChar() == '-',
		l.ch == '#' && l.dialect != nil && l.dialect.HashComments:
		for l.ch != '\n' && !l.atEOF() {
			l.readChar()
		}
		return token.COMMENT
	case l.ch == '/' && l.peekChar() == '*':
		l.readBlockComment(start)
		return token.COMMENT
	case l.ch == '\'':
		l.readString(start, '\'')
		return token.STRING
	case l.ch == '"':
		l.readQuoted(start, '"')
		return token.QUOTED_IDENT
	case l.ch == '`' || l.ch == '[':
		if closer, ok := l.dialect.IdentQuote(l.ch); ok {
			l.readQuoted(start, closer)
			return token.QUOTED_IDENT
		}
		if l.ch == '[' {
			l.readChar()
			return token.LBRACKET
		}
		l.readChar()
		l.addError(start, "unexpected character '`'")
		return token.ILLEGAL
	case (l.ch == 'E' || l.ch == 'e' || l.ch == 'N' || l.ch == 'n' || l.ch == 'B' || l.ch == 'b' ||
		l.ch == 'X' || l.ch == 'x' || l.ch == 'R' || l.ch == 'r') && l.peekChar() == '\'':
		// prefixed string: E'..', N'..', B'..', X'..', R'..'
		l.readChar()
		l.readString(start, '\'')
		return token.STRING
	case l.ch == '$' && l.dialect != nil && l.dialect.DollarQuoting && l.isDollarQuote():
		l.readDollarQuoted(start)
		return token.STRING
	case l.ch == '$' || l.ch == '?' || (l.ch == ':' && isIdentStart(l.peekChar())) ||
		(l.ch == '@' && l.peekChar() == '@'):
		l.readParam()
		return token.PARAM
	case l.ch == '@':
		return l.readAt()
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		l.readNumber()
		return token.NUMBER
	case isIdentStart(l.ch):
		l.readIdentifier()
		return token.IDENT
	case l.ch == '#' && (l.peekChar() == '#' || isIdentStart(l.peekChar())):
		// T-SQL temporary tables: #tmp, ##global
		l.readChar()
		if l.ch == '#' {
			l.readChar()
		}
		l.readIdentifier()
		return token.IDENT
	}

	return l.readOperator(start)
}

//nolint:gocyclo // operator table
func (l *Lexer) readOperator(start token.Position) token.TokenType {
	two := ""
	if l.pos+2 <= len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}
	three := ""
	if l.pos+3 <= len(l.input) {
		three = l.input[l.pos : l.pos+3]
	}

	switch three {
	case "<=>":
		l.advance(3)
		return token.NULLSAFE
	case "->>":
		l.advance(3)
		return token.DARROW
	}
	switch two {
	case "::":
		l.advance(2)
		return token.DCOLON
	case "->":
		l.advance(2)
		return token.ARROW
	case "=>":
		l.advance(2)
		return token.FATARROW
	case "==":
		l.advance(2)
		return token.EQEQ
	case "!=", "<>":
		l.advance(2)
		return token.NE
	case "<=":
		l.advance(2)
		return token.LE
	case ">=":
		l.advance(2)
		return token.GE
	case "||":
		l.advance(2)
		return token.DPIPE
	}

	if typ, ok := singleCharOps[l.ch]; ok {
		l.readChar()
		return typ
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.advance(size)
	l.addError(start, "unexpected character "+quoteRune(r))
	return token.ILLEGAL
}

var singleCharOps = map[byte]token.TokenType{
	'+': token.PLUS, '-': token.MINUS, '*': token.STAR, '/': token.SLASH,
	'%': token.PERCENT, '|': token.PIPE, '&': token.AMP, '^': token.CARET,
	'~': token.TILDE, '!': token.BANG, '=': token.EQ, '<': token.LT,
	'>': token.GT, ':': token.COLON, '.': token.DOT, ',': token.COMMA,
	';': token.SEMICOLON, '(': token.LPAREN, ')': token.RPAREN,
	']': token.RBRACKET, '{': token.LBRACE, '}': token.RBRACE,
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

// readBlockComment reads a /* ... */ comment.
func (l *Lexer) readBlockComment(start token.Position) {
	l.advance(2)
	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.advance(2)
			return
		}
		l.readChar()
	}
	l.addError(start, ErrUnterminatedComment)
}

// readString reads a string literal delimited by quote. A doubled quote is
// an escape; so is a backslash when the dialect allows it.
func (l *Lexer) readString(start token.Position, quote byte) {
	l.readChar() // skip opening quote
	for !l.atEOF() {
		switch {
		case l.ch == '\\' && l.dialect != nil && l.dialect.BackslashEscapes:
			l.advance(2)
		case l.ch == quote && l.peekChar() == quote:
			l.advance(2)
		case l.ch == quote:
			l.readChar()
			return
		default:
			l.readChar()
		}
	}
	l.addError(start, ErrUnterminatedString)
}

// readQuoted reads a quoted identifier closed by closer.
func (l *Lexer) readQuoted(start token.Position, closer byte) {
	l.readChar() // skip opening quote
	for !l.atEOF() {
		if l.ch == closer {
			if l.peekChar() == closer {
				l.advance(2)
				continue
			}
			l.readChar()
			return
		}
		l.readChar()
	}
	l.addError(start, ErrUnterminatedIdentifier)
}

// isDollarQuote reports whether a $tag$ opener starts at the current char.
func (l *Lexer) isDollarQuote() bool {
	for i := 1; l.pos+i < len(l.input); i++ {
		c := l.input[l.pos+i]
		if c == '$' {
			return true
		}
		if !isIdentPart(c) || isDigit(c) && i == 1 {
			return false
		}
	}
	return false
}

func (l *Lexer) readDollarQuoted(start token.Position) {
	tagStart := l.pos
	l.readChar()
	for l.ch != '$' {
		l.readChar()
	}
	l.readChar()
	tag := l.input[tagStart:l.pos]
	for !l.atEOF() {
		if l.ch == '$' && len(l.input)-l.pos >= len(tag) && l.input[l.pos:l.pos+len(tag)] == tag {
			l.advance(len(tag))
			return
		}
		l.readChar()
	}
	l.addError(start, ErrUnterminatedString)
}

// readParam reads ?, :name, $1, ${var}, @@var.
func (l *Lexer) readParam() {
	switch {
	case l.ch == '$' && l.peekChar() == '{':
		for l.ch != '}' && !l.atEOF() {
			l.readChar()
		}
		l.readChar()
	case l.ch == '?':
		l.readChar()
	default:
		l.readChar()
		if l.ch == '@' {
			l.readChar()
		}
		for isIdentPart(l.ch) {
			l.readChar()
		}
	}
}

// readAt reads either a @variable or a @stage/path reference. Stage
// references keep consuming path characters after the name.
func (l *Lexer) readAt() token.TokenType {
	l.readChar()
	if l.ch == '~' || l.ch == '%' {
		l.readChar()
	}
	for isIdentPart(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if l.ch != '/' {
		return token.PARAM
	}
	for l.ch == '/' || l.ch == '.' || l.ch == '-' || l.ch == '=' || isIdentPart(l.ch) {
		l.readChar()
	}
	return token.STAGE
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() {
	for isIdentPart(l.ch) {
		if l.ch >= utf8.RuneSelf {
			_, size := utf8.DecodeRuneInString(l.input[l.pos:])
			l.advance(size)
			continue
		}
		l.readChar()
	}
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() {
	for isDigit(l.ch) {
		l.readChar()
	}

	// Read decimal part
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	} else if l.ch == '.' && !isIdentStart(l.peekChar()) {
		l.readChar()
	}

	// Read exponent part (e.g., 1e10, 1E-5)
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) ||
		((l.peekChar() == '+' || l.peekChar() == '-') && isDigit(l.peekAt(2)))) {
		l.advance(2)
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// 10L, 1.5BD style suffixes glue onto the number
	for isLetter(l.ch) {
		l.readChar()
	}
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch >= utf8.RuneSelf
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

// isLetter returns true if ch is an ASCII letter.
func isLetter(ch byte) bool {
	return ch < utf8.RuneSelf && unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, trivia included, ending with EOF.
func Tokenize(input string, d *dialect.Dialect) ([]token.Token, []*LexError) {
	l := NewLexer(input, d)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, l.errors
}
