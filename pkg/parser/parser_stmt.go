package parser

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Statement dispatch.
//
// Grammar:
//
//	statement → query | insert | create | merge | update | copy | unload
//	          | drop | alter | rename | opaque
//	opaque    → keyword token* (DELETE, TRUNCATE, SHOW, USE, SET, ...)

// opaqueKinds maps the leading word of statements parsed as flat token runs.
var opaqueKinds = map[string]segment.Kind{
	"DELETE":   segment.DeleteStatement,
	"TRUNCATE": segment.TruncateStatement,
	"REFRESH":  segment.RefreshStatement,
	"CACHE":    segment.CacheStatement,
	"UNCACHE":  segment.UncacheStatement,
	"SHOW":     segment.ShowStatement,
	"DESCRIBE": segment.DescribeStatement,
	"DESC":     segment.DescribeStatement,
	"USE":      segment.UseStatement,
	"DECLARE":  segment.DeclareStatement,
	"ANALYZE":  segment.AnalyzeStatement,
	"SET":      segment.SetStatement,
	"GRANT":    segment.GrantStatement,
	"REVOKE":   segment.GrantStatement,
	"BEGIN":    segment.TransactionStatement,
	"START":    segment.TransactionStatement,
	"COMMIT":   segment.TransactionStatement,
	"ROLLBACK": segment.TransactionStatement,
	"END":      segment.TransactionStatement,
	"EXPLAIN":  segment.ExplainStatement,
	"CALL":     segment.CallStatement,
	"EXEC":     segment.CallStatement,
	"EXECUTE":  segment.CallStatement,
}

func (p *Parser) parseStatement() *segment.Segment {
	switch {
	case p.isWord("SELECT", "WITH", "VALUES") || p.is(token.LPAREN):
		return p.parseQueryStatement()
	case p.isWord("INSERT") || (p.isWord("REPLACE") && p.peekWord(1, "INTO")):
		return p.parseInsert()
	case p.isWord("CREATE"):
		return p.parseCreate()
	case p.isWord("MERGE"):
		return p.parseMerge()
	case p.isWord("UPDATE"):
		return p.parseUpdate()
	case p.isWord("COPY"):
		return p.parseCopy()
	case p.isWord("UNLOAD"):
		return p.parseUnload()
	case p.isWord("DROP"):
		return p.parseDrop()
	case p.isWord("ALTER"):
		return p.parseAlter()
	case p.isWord("RENAME"):
		return p.parseRename()
	case p.isWord("ADD") && p.peekWord(1, "JAR", "FILE", "ARCHIVE"):
		return p.parseOpaque(segment.AddJarStatement)
	case p.isWord("CLEAR") && p.peekWord(1, "CACHE"):
		return p.parseOpaque(segment.CacheStatement)
	}
	if p.is(token.IDENT) {
		if kind, ok := opaqueKinds[strings.ToUpper(p.tok().Literal)]; ok {
			return p.parseOpaque(kind)
		}
	}
	p.errorf(ErrUnknownStatement, p.describe())
	return nil
}

// parseQueryStatement parses a query at statement level. A query wrapped in
// parentheses as a whole becomes a BracketedStatement.
func (p *Parser) parseQueryStatement() *segment.Segment {
	q := p.parseQuery()
	if q.Is(segment.Bracketed) {
		b := p.start()
		b.add(q)
		return b.build(segment.BracketedStatement)
	}
	return q
}

// parseOpaque consumes a statement as a flat run of leaves, keeping balanced
// parentheses.
func (p *Parser) parseOpaque(kind segment.Kind) *segment.Segment {
	b := p.start()
	b.keyword()
	for !p.atEOF() && !p.is(token.SEMICOLON) {
		if p.noSemicolon && p.startsStatement() {
			break
		}
		if p.is(token.LPAREN) {
			b.add(p.balanced())
			continue
		}
		if p.is(token.RPAREN) {
			p.errorf(ErrUnexpectedInput, ")")
			b.symbol()
			continue
		}
		b.generic()
	}
	return b.build(kind)
}
