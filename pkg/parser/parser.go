// Package parser turns SQL text into lossless segment trees for lineage
// extraction.
//
// # Usage
//
//	stmts, err := parser.Parse("INSERT INTO t SELECT a FROM s", parser.Options{Dialect: "ansi"})
//	for _, s := range stmts {
//	    if len(s.Violations) > 0 {
//	        // the statement could not be parsed
//	    }
//	    walk(s.Tree)
//	}
//
// # Grammar Overview
//
// The parser is a permissive recursive descent parser. It understands the
// statement shapes that carry lineage in detail and keeps everything else as
// flat token runs:
//
//	statement  → query | insert | create | merge | update | copy | unload
//	           | drop | alter | rename | opaque
//	query      → [WITH cte_list] set_expr
//	set_expr   → query_term ((UNION|INTERSECT|EXCEPT|MINUS) [ALL|DISTINCT] query_term)*
//	query_term → select | "(" query ")" | VALUES row_list
//	select     → SELECT [modifier] select_list [INTO table] [FROM from_list]
//	             [WHERE expr] [GROUP BY ...] [HAVING expr] [WINDOW ...]
//	             [QUALIFY expr] [ORDER BY ...] [LIMIT ...]
//
// Expressions are not precedence-parsed: an expression is a flat run of
// operands and operators, which is all lineage needs. See each file for
// the grammar of that section.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Options control statement splitting and lexing.
type Options struct {
	// Dialect name; empty means ansi.
	Dialect string
	// NoSemicolon lets statements follow each other without ';' (T-SQL
	// scripts). A new statement starts wherever the previous one is complete
	// and the next word opens a statement.
	NoSemicolon bool
}

// Statement is one parsed statement.
type Statement struct {
	// Raw is the statement text without the terminating semicolon.
	Raw  string
	Tree *segment.Segment
	// Violations lists lexer and parser diagnostics. A statement with
	// violations must not be trusted for extraction.
	Violations []Violation
}

// Parse splits sql into statements and parses each one. Empty statements
// (only whitespace, comments or semicolons) are skipped. The error is only
// non-nil for an unknown dialect; syntax problems are reported per
// statement as Violations.
func Parse(sql string, opts Options) ([]Statement, error) {
	d, err := dialect.Resolve(opts.Dialect)
	if err != nil {
		return nil, err
	}
	p := NewParser(sql, d)
	p.noSemicolon = opts.NoSemicolon
	return p.parseScript(), nil
}

// Split returns the text of each statement in sql.
func Split(sql string, opts Options) ([]string, error) {
	stmts, err := Parse(sql, opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, s.Raw)
	}
	return out, nil
}

// Parser parses SQL into segment trees.
type Parser struct {
	src       string
	toks      []token.Token // every token, trivia included
	code      []int         // indexes of non-trivia tokens in toks; ends with EOF
	i         int           // current index into code
	attached  int           // toks before this index already belong to a segment
	lexErrors []*LexError
	errors    []*ParseError
	dialect   *dialect.Dialect

	noSemicolon bool
}

// NewParser tokenizes sql and prepares a parser for it.
func NewParser(sql string, d *dialect.Dialect) *Parser {
	toks, lexErrs := Tokenize(sql, d)
	p := &Parser{src: sql, toks: toks, lexErrors: lexErrs, dialect: d}
	for i, t := range toks {
		if !t.Type.IsTrivia() {
			p.code = append(p.code, i)
		}
	}
	return p
}

// ---------- Script ----------

func (p *Parser) parseScript() []Statement {
	var out []Statement
	for {
		p.skipSeparators()
		if p.atEOF() {
			return out
		}
		firstErr := len(p.errors)
		startIdx := p.i

		tree := p.parseStatement()
		switch {
		case !p.atStatementEnd():
			if len(p.errors) == firstErr {
				p.errorf(ErrUnexpectedInput, p.tok().Literal)
			}
			tree = p.absorbRest(tree)
		case tree == nil || p.i == startIdx:
			// nothing consumed; make progress so the loop terminates
			tree = p.absorbRest(tree)
		}

		stmt := Statement{Raw: tree.Raw(), Tree: tree}
		span := tree.Span()
		for _, e := range p.lexErrors {
			if e.Pos.Offset >= span.Start.Offset && e.Pos.Offset < span.End.Offset {
				stmt.Violations = append(stmt.Violations, Violation{Stage: StageLex, Pos: e.Pos, Message: e.Message})
			}
		}
		for _, e := range p.errors[firstErr:] {
			stmt.Violations = append(stmt.Violations, Violation{Stage: StageParse, Pos: e.Pos, Message: e.Message})
		}
		out = append(out, stmt)
	}
}

// skipSeparators steps over semicolons and T-SQL GO batch separators
// between statements.
func (p *Parser) skipSeparators() {
	for {
		switch {
		case p.is(token.SEMICOLON):
			p.i++
		case p.dialect != nil && p.dialect.BatchSeparator && p.isWord("GO"):
			p.i++
		default:
			p.attached = p.code[p.i]
			return
		}
	}
}

// atStatementEnd reports whether the current token may follow a complete
// statement.
func (p *Parser) atStatementEnd() bool {
	if p.atEOF() || p.is(token.SEMICOLON) {
		return true
	}
	if p.noSemicolon && p.startsStatement() {
		return true
	}
	return p.dialect != nil && p.dialect.BatchSeparator && p.isWord("GO")
}

var statementStarters = map[string]struct{}{
	"SELECT": {}, "WITH": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {},
	"CREATE": {}, "DROP": {}, "ALTER": {}, "TRUNCATE": {}, "DECLARE": {}, "SET": {},
	"USE": {}, "EXEC": {}, "EXECUTE": {}, "PRINT": {}, "BEGIN": {}, "COMMIT": {},
	"ROLLBACK": {}, "IF": {}, "RETURN": {},
}

func (p *Parser) startsStatement() bool {
	if p.tok().Type != token.IDENT {
		return false
	}
	_, ok := statementStarters[strings.ToUpper(p.tok().Literal)]
	return ok
}

// absorbRest appends every token up to the end of the statement to tree as
// unparsable leaves.
func (p *Parser) absorbRest(tree *segment.Segment) *segment.Segment {
	b := p.start()
	if tree != nil {
		b.add(tree)
	}
	for !p.atEOF() && !p.is(token.SEMICOLON) {
		b.take(segment.Unparsable)
		if p.noSemicolon && p.startsStatement() {
			break
		}
	}
	kind := segment.KindUnknown
	if tree != nil {
		kind = tree.Kind()
	}
	return b.build(kind)
}

// ---------- Token Helpers ----------

func (p *Parser) tok() token.Token {
	return p.toks[p.code[p.i]]
}

// peek returns the n-th code token after the current one.
func (p *Parser) peek(n int) token.Token {
	j := p.i + n
	if j >= len(p.code) {
		j = len(p.code) - 1
	}
	return p.toks[p.code[j]]
}

func (p *Parser) atEOF() bool {
	return p.tok().Type == token.EOF
}

// is returns true if the current token is of the given type.
func (p *Parser) is(t token.TokenType) bool {
	return p.tok().Type == t
}

// peekIs returns true if the n-th next token is of one of the given types.
func (p *Parser) peekIs(n int, types ...token.TokenType) bool {
	t := p.peek(n).Type
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// isWord reports whether the current token is an unquoted word equal to
// one of words (case-insensitive).
func (p *Parser) isWord(words ...string) bool {
	return wordIs(p.tok(), words...)
}

func (p *Parser) peekWord(n int, words ...string) bool {
	return wordIs(p.peek(n), words...)
}

func wordIs(t token.Token, words ...string) bool {
	if t.Type != token.IDENT {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.Literal, w) {
			return true
		}
	}
	return false
}

// isName reports whether the current token can be an identifier: quoted, or
// an unquoted word that is not reserved.
func (p *Parser) isName() bool {
	return isName(p.tok())
}

func isName(t token.Token) bool {
	switch t.Type {
	case token.QUOTED_IDENT:
		return true
	case token.IDENT:
		return !token.IsReserved(t.Literal)
	}
	return false
}

// isIdent reports whether the current token is any identifier-like token.
// After a dot every word is a name, reserved or not.
func (p *Parser) isIdent() bool {
	return p.is(token.IDENT) || p.is(token.QUOTED_IDENT)
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.tok().Span.Start,
		Message: fmt.Sprintf(format, args...),
	})
}

// describe renders the current token for error messages.
func (p *Parser) describe() string {
	if p.atEOF() {
		return "end of input"
	}
	return p.tok().Literal
}

// ---------- Segment Builder ----------

// builder collects the children of a segment under construction. Trivia
// seen before a consumed token is attached to the builder that consumes it.
type builder struct {
	p    *Parser
	kids []*segment.Segment
}

func (p *Parser) start() *builder {
	return &builder{p: p}
}

// add appends already built segments, skipping nils.
func (b *builder) add(segs ...*segment.Segment) {
	for _, s := range segs {
		if s != nil {
			b.kids = append(b.kids, s)
		}
	}
}

// take consumes the current token as a leaf of the given kind.
func (b *builder) take(kind segment.Kind) *segment.Segment {
	p := b.p
	b.flush()
	t := p.tok()
	leaf := segment.NewLeaf(kind, t.Literal, t.Span)
	b.kids = append(b.kids, leaf)
	if t.Type != token.EOF {
		p.attached = p.code[p.i] + 1
		p.i++
	}
	return leaf
}

// flush attaches trivia pending before the current token.
func (b *builder) flush() {
	p := b.p
	end := p.code[p.i]
	for ; p.attached < end; p.attached++ {
		t := p.toks[p.attached]
		b.kids = append(b.kids, segment.NewLeaf(triviaKind(t.Type), t.Literal, t.Span))
	}
}

func triviaKind(t token.TokenType) segment.Kind {
	switch t {
	case token.NEWLINE:
		return segment.Newline
	case token.COMMENT:
		return segment.Comment
	}
	return segment.Whitespace
}

// leaf consumes the current token as a standalone segment of the given kind.
// Leading trivia, if any, is kept by wrapping the leaf in a node of the same
// kind.
func (p *Parser) leaf(kind segment.Kind) *segment.Segment {
	b := p.start()
	b.take(kind)
	if len(b.kids) == 1 {
		return b.kids[0]
	}
	return b.build(kind)
}

func (b *builder) keyword() *segment.Segment { return b.take(segment.Keyword) }
func (b *builder) symbol() *segment.Segment  { return b.take(segment.Symbol) }

// ident consumes the current identifier token, quoted or not.
func (b *builder) ident() *segment.Segment {
	if b.p.is(token.QUOTED_IDENT) {
		return b.take(segment.QuotedIdentifier)
	}
	return b.take(segment.Identifier)
}

// keywords consumes the given words in order if all are present.
func (b *builder) keywords(words ...string) bool {
	for i, w := range words {
		if !b.p.peekWord(i, w) {
			return false
		}
	}
	for range words {
		b.keyword()
	}
	return true
}

// optKeyword consumes the current token as a keyword when it is one of words.
func (b *builder) optKeyword(words ...string) bool {
	if b.p.isWord(words...) {
		b.keyword()
		return true
	}
	return false
}

// expectSymbol consumes a token of type t or records an error.
func (b *builder) expectSymbol(t token.TokenType) bool {
	if b.p.is(t) {
		b.symbol()
		return true
	}
	b.p.errorf(ErrUnexpectedToken, b.p.describe(), t)
	return false
}

// expectKeyword consumes word or records an error.
func (b *builder) expectKeyword(word string) bool {
	if b.p.isWord(word) {
		b.keyword()
		return true
	}
	b.p.errorf(ErrUnexpectedToken, b.p.describe(), word)
	return false
}

func (b *builder) build(kind segment.Kind) *segment.Segment {
	return segment.NewNode(kind, b.p.src, b.kids)
}

// generic consumes the current token as a leaf whose kind follows from its
// token type.
func (b *builder) generic() *segment.Segment {
	t := b.p.tok()
	switch t.Type {
	case token.IDENT:
		if token.IsKeyword(t.Literal) {
			return b.keyword()
		}
		return b.take(segment.Identifier)
	case token.QUOTED_IDENT:
		return b.take(segment.QuotedIdentifier)
	case token.STRING, token.NUMBER:
		return b.take(segment.Literal)
	case token.PARAM:
		return b.take(segment.Parameter)
	case token.ILLEGAL:
		return b.take(segment.Unparsable)
	}
	if t.Type.IsOperator() {
		return b.take(segment.Operator)
	}
	return b.symbol()
}

// balanced consumes a parenthesized token run generically, keeping nested
// parentheses as Bracketed segments.
func (p *Parser) balanced() *segment.Segment {
	b := p.start()
	b.symbol() // (
	for !p.is(token.RPAREN) {
		if p.atEOF() {
			p.errorf(ErrUnclosedParen)
			return b.build(segment.Bracketed)
		}
		if p.is(token.LPAREN) {
			b.add(p.balanced())
			continue
		}
		b.generic()
	}
	b.symbol()
	return b.build(segment.Bracketed)
}
