package parser

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Query parsing: WITH, set operations, SELECT and its clauses.
//
// Grammar:
//
//	query      → with | set_expr
//	with       → WITH [RECURSIVE] cte ("," cte)* (set_expr | insert | update | merge | delete)
//	cte        → name ["(" name_list ")"] AS [[NOT] MATERIALIZED] "(" query ")"
//	set_expr   → query_term (set_op query_term)* [order_by] [limit]
//	set_op     → (UNION | INTERSECT | EXCEPT | MINUS) [ALL | DISTINCT]
//	query_term → select | "(" query ")" | values
//	select     → select_clause [into] [from] clause*

func (p *Parser) parseQuery() *segment.Segment {
	if p.isWord("WITH") {
		return p.parseWith()
	}
	return p.parseSetExpr()
}

// queryAhead reports whether a query starts at the n-th token, looking
// through any number of opening parentheses.
func (p *Parser) queryAhead(n int) bool {
	for p.peekIs(n, token.LPAREN) {
		n++
	}
	return p.peekWord(n, "SELECT", "WITH")
}

func (p *Parser) parseWith() *segment.Segment {
	b := p.start()
	b.keyword() // WITH
	b.optKeyword("RECURSIVE")
	for {
		b.add(p.parseCTE())
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	switch {
	case p.isWord("INSERT"):
		b.add(p.parseInsert())
	case p.isWord("UPDATE"):
		b.add(p.parseUpdate())
	case p.isWord("MERGE"):
		b.add(p.parseMerge())
	case p.isWord("DELETE"):
		b.add(p.parseOpaque(segment.DeleteStatement))
	case p.isWord("SELECT", "VALUES") || p.is(token.LPAREN):
		b.add(p.parseSetExpr())
	default:
		p.errorf(ErrUnexpectedToken, p.describe(), "SELECT")
	}
	return b.build(segment.WithCompoundStatement)
}

func (p *Parser) parseCTE() *segment.Segment {
	b := p.start()
	if !p.isIdent() {
		p.errorf(ErrExpectedIdentifier, p.describe())
		return nil
	}
	b.ident()
	if p.is(token.LPAREN) {
		b.add(p.parseNameList())
	}
	b.expectKeyword("AS")
	if !b.keywords("NOT", "MATERIALIZED") {
		b.optKeyword("MATERIALIZED")
	}
	if p.is(token.LPAREN) {
		b.add(p.parseBracketed())
	} else {
		p.errorf(ErrUnexpectedToken, p.describe(), "(")
	}
	return b.build(segment.CommonTableExpression)
}

// parseNameList parses "(" name ("," name)* ")" into a Bracketed of column
// references.
func (p *Parser) parseNameList() *segment.Segment {
	b := p.start()
	b.symbol() // (
	for p.isIdent() {
		ref := p.start()
		ref.ident()
		b.add(ref.build(segment.ColumnReference))
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	b.expectSymbol(token.RPAREN)
	return b.build(segment.Bracketed)
}

func (p *Parser) isSetOperator() bool {
	if p.isWord("UNION", "INTERSECT", "EXCEPT") {
		return true
	}
	// MINUS is also an arithmetic word in some dialects
	return p.isWord("MINUS") && (p.peekWord(1, "SELECT", "ALL", "DISTINCT") || p.peekIs(1, token.LPAREN))
}

func (p *Parser) parseSetExpr() *segment.Segment {
	first := p.parseQueryTerm()
	if !p.isSetOperator() {
		return first
	}
	b := p.start()
	b.add(first)
	for p.isSetOperator() {
		op := p.start()
		op.keyword()
		op.optKeyword("ALL", "DISTINCT")
		op.keywords("BY", "NAME")
		b.add(op.build(segment.SetOperator))
		b.add(p.parseQueryTerm())
	}
	p.parseTrailingClauses(b)
	return b.build(segment.SetExpression)
}

func (p *Parser) parseQueryTerm() *segment.Segment {
	switch {
	case p.isWord("SELECT"):
		return p.parseSelect()
	case p.is(token.LPAREN):
		return p.parseBracketed()
	case p.isWord("VALUES"):
		return p.parseValues()
	case p.isWord("WITH"):
		return p.parseWith()
	}
	p.errorf(ErrUnexpectedToken, p.describe(), "SELECT")
	return nil
}

func (p *Parser) parseSelect() *segment.Segment {
	b := p.start()
	b.add(p.parseSelectClause())
	if p.isWord("INTO") {
		b.add(p.parseIntoClause())
	}
	if p.isWord("FROM") {
		b.add(p.parseFromClause())
	}
	for {
		switch {
		case p.isWord("WHERE"):
			b.add(p.parseExprClause(segment.WhereClause))
		case p.isWord("GROUP") && p.peekWord(1, "BY"):
			b.add(p.parseGroupBy())
		case p.isWord("HAVING"):
			b.add(p.parseExprClause(segment.HavingClause))
		case p.isWord("QUALIFY"):
			b.add(p.parseExprClause(segment.QualifyClause))
		case p.isWord("WINDOW"):
			b.add(p.parseWindowClause())
		default:
			p.parseTrailingClauses(b)
			return b.build(segment.SelectStatement)
		}
	}
}

// parseTrailingClauses parses ORDER BY, LIMIT and friends, which may close
// both a single select and a whole set expression.
func (p *Parser) parseTrailingClauses(b *builder) {
	for {
		switch {
		case p.isWord("ORDER", "CLUSTER", "DISTRIBUTE", "SORT") && p.peekWord(1, "BY"):
			b.add(p.parseOrderBy())
		case p.isWord("LIMIT", "OFFSET", "FETCH"):
			b.add(p.parseLimit())
		case p.isWord("FOR") && p.peekWord(1, "UPDATE", "SHARE", "XML", "JSON", "BROWSE", "READ"):
			b.add(p.parseLockingClause())
		default:
			return
		}
	}
}

// ---------- SELECT clause ----------

func (p *Parser) parseSelectClause() *segment.Segment {
	b := p.start()
	b.keyword() // SELECT
	if m := p.parseSelectModifier(); m != nil {
		b.add(m)
	}
	for {
		if p.isWord("FROM") || p.atStatementEnd() || p.is(token.RPAREN) {
			p.errorf(ErrExpectedExpression, p.describe())
			break
		}
		b.add(p.parseSelectElement())
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
		if p.isWord("FROM") {
			// trailing comma, allowed by bigquery and duckdb
			break
		}
	}
	return b.build(segment.SelectClause)
}

func (p *Parser) parseSelectModifier() *segment.Segment {
	b := p.start()
	found := false
	for {
		switch {
		case p.isWord("DISTINCT"):
			b.keyword()
			if p.isWord("ON") && p.peekIs(1, token.LPAREN) {
				b.keyword()
				b.add(p.parseBracketed())
			}
		case p.isWord("ALL", "DISTINCTROW", "STRAIGHT_JOIN", "SQL_CALC_FOUND_ROWS", "SQL_NO_CACHE", "HIGH_PRIORITY"):
			b.keyword()
		case p.isWord("AS") && p.peekWord(1, "STRUCT", "VALUE"):
			b.keyword()
			b.keyword()
		case p.isWord("TOP"):
			b.keyword()
			if p.is(token.LPAREN) {
				b.add(p.parseBracketed())
			} else if p.is(token.NUMBER) || p.is(token.PARAM) {
				b.take(segment.Literal)
			}
			b.optKeyword("PERCENT")
			b.keywords("WITH", "TIES")
		default:
			if !found {
				return nil
			}
			return b.build(segment.SelectClauseModifier)
		}
		found = true
	}
}

func (p *Parser) parseSelectElement() *segment.Segment {
	b := p.start()
	e := p.parseExpression()
	if e == nil {
		return nil
	}
	b.add(e)
	b.add(p.parseAlias(true))
	return b.build(segment.SelectClauseElement)
}

// nonAliasWords may not serve as a bare alias even though they are not
// reserved, because in that position they start further syntax.
var nonAliasWords = []string{"PARTITION", "START", "CONNECT", "SAMPLE", "MATCH_RECOGNIZE", "FINAL", "PREWHERE"}

// parseAlias parses [AS] name. With list set, "AS (a, b)" and "name (a, b)"
// column alias lists are accepted too.
func (p *Parser) parseAlias(list bool) *segment.Segment {
	b := p.start()
	switch {
	case p.isWord("AS"):
		b.keyword()
		switch {
		case p.isIdent():
			b.ident()
		case p.is(token.STRING):
			b.take(segment.Literal)
		case list && p.is(token.LPAREN):
			b.add(p.parseNameList())
			return b.build(segment.AliasExpression)
		default:
			p.errorf(ErrExpectedIdentifier, p.describe())
			return b.build(segment.AliasExpression)
		}
	case p.isName() && !p.isWord(nonAliasWords...):
		b.ident()
	default:
		return nil
	}
	if list && p.is(token.LPAREN) && p.peekIs(1, token.IDENT, token.QUOTED_IDENT) {
		b.add(p.parseNameList())
	}
	return b.build(segment.AliasExpression)
}

func (p *Parser) parseIntoClause() *segment.Segment {
	b := p.start()
	b.keyword() // INTO
	for p.isWord("TEMP", "TEMPORARY", "UNLOGGED", "TABLE") {
		b.keyword()
	}
	switch {
	case p.isWord("OUTFILE", "DUMPFILE"):
		b.keyword()
		if p.is(token.STRING) {
			b.take(segment.Literal)
		}
	case p.is(token.PARAM):
		for p.is(token.PARAM) {
			b.take(segment.Parameter)
			if !p.is(token.COMMA) {
				break
			}
			b.symbol()
		}
	case p.isIdent():
		b.add(p.parseTableName())
	default:
		p.errorf(ErrExpectedIdentifier, p.describe())
	}
	return b.build(segment.IntoClause)
}

// parseTableName parses a dotted object name into a TableReference. The
// T-SQL "db..table" form is accepted.
func (p *Parser) parseTableName() *segment.Segment {
	b := p.start()
	if !p.isIdent() {
		p.errorf(ErrExpectedIdentifier, p.describe())
		return nil
	}
	b.ident()
	for p.is(token.DOT) && (p.peekIs(1, token.IDENT, token.QUOTED_IDENT) || p.peekIs(1, token.DOT)) {
		b.symbol()
		if p.is(token.DOT) {
			b.symbol()
		}
		b.ident()
	}
	return b.build(segment.TableReference)
}

// ---------- FROM clause ----------
//
//	from_clause  → FROM from_expr ("," from_expr)*
//	from_expr    → from_element join* lateral_view*
//	from_element → [LATERAL] table_expr [alias] [TABLESAMPLE ...] [PIVOT ...]
//	table_expr   → table_name | "(" query ")" | "(" from_expr ")" | function
//	             | 'file' | @stage | VALUES ...
//	join         → [NATURAL] [INNER|LEFT|RIGHT|FULL [OUTER]|CROSS|SEMI|ANTI] JOIN
//	               from_element [ON expr | USING "(" names ")"]
//	             | (CROSS|OUTER) APPLY from_element

func (p *Parser) parseFromClause() *segment.Segment {
	b := p.start()
	b.keyword() // FROM
	for {
		b.add(p.parseFromExpression())
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	return b.build(segment.FromClause)
}

func (p *Parser) parseFromExpression() *segment.Segment {
	b := p.start()
	b.add(p.parseFromElement())
	for p.isJoinStart() {
		b.add(p.parseJoin())
	}
	for p.isWord("LATERAL") && p.peekWord(1, "VIEW") {
		b.add(p.parseLateralView())
	}
	return b.build(segment.FromExpression)
}

var joinModifiers = []string{"INNER", "LEFT", "RIGHT", "FULL", "OUTER", "CROSS", "NATURAL", "SEMI", "ANTI", "ASOF", "POSITIONAL", "GLOBAL", "ANY", "HASH", "LOOP"}

func (p *Parser) isJoinStart() bool {
	switch {
	case p.isWord("JOIN", "STRAIGHT_JOIN", "INNER", "NATURAL", "SEMI", "ANTI", "ASOF", "POSITIONAL"):
		return true
	case p.isWord("LEFT", "RIGHT", "FULL"):
		return p.peekWord(1, "JOIN", "OUTER", "SEMI", "ANTI", "ANY", "ASOF", "HASH", "LOOP")
	case p.isWord("CROSS"):
		return p.peekWord(1, "JOIN", "APPLY")
	case p.isWord("OUTER"):
		return p.peekWord(1, "APPLY")
	}
	return false
}

func (p *Parser) parseJoin() *segment.Segment {
	b := p.start()
	for p.isWord(joinModifiers...) {
		b.keyword()
	}
	if !b.optKeyword("JOIN", "APPLY", "STRAIGHT_JOIN") {
		p.errorf(ErrUnexpectedToken, p.describe(), "JOIN")
		return b.build(segment.JoinClause)
	}
	b.add(p.parseFromElement())
	switch {
	case p.isWord("ON"):
		cond := p.start()
		cond.keyword()
		cond.add(p.parseExpression())
		b.add(cond.build(segment.JoinOnCondition))
	case p.isWord("USING"):
		cond := p.start()
		cond.keyword()
		if p.is(token.LPAREN) {
			cond.add(p.parseNameList())
		}
		b.add(cond.build(segment.JoinOnCondition))
	}
	return b.build(segment.JoinClause)
}

func (p *Parser) parseFromElement() *segment.Segment {
	b := p.start()
	b.optKeyword("LATERAL")
	b.add(p.parseTableExpression())
	p.parseTableSuffix(b)
	b.add(p.parseAlias(true))
	p.parseTableSuffix(b)
	return b.build(segment.FromExpressionElement)
}

// parseTableSuffix consumes sampling, pivots, time travel and T-SQL hints
// that may follow a table in FROM.
func (p *Parser) parseTableSuffix(b *builder) {
	for {
		switch {
		case p.isWord("TABLESAMPLE", "SAMPLE") && p.peekIs(1, token.LPAREN) ||
			p.isWord("TABLESAMPLE") && p.peekIs(2, token.LPAREN):
			b.keyword()
			if !p.is(token.LPAREN) {
				b.keyword()
			}
			b.add(p.balanced())
			b.keywords("REPEATABLE")
			if p.is(token.LPAREN) {
				b.add(p.balanced())
			}
		case p.isWord("PIVOT", "UNPIVOT") && (p.peekIs(1, token.LPAREN) || p.peekIs(2, token.LPAREN)):
			b.keyword()
			if !p.is(token.LPAREN) {
				b.keyword()
			}
			b.add(p.balanced())
		case p.isWord("WITH") && p.peekIs(1, token.LPAREN) && !p.queryAhead(1):
			b.keyword()
			b.add(p.balanced())
		case p.isWord("FOR") && p.peekWord(1, "SYSTEM_TIME", "SYSTEM_VERSION", "TIMESTAMP", "VERSION"):
			b.keyword()
			b.keyword()
			b.keywords("AS", "OF")
			b.add(p.parseExpression())
		default:
			return
		}
	}
}

var fileFormats = []string{"PARQUET", "CSV", "JSON", "ORC", "AVRO", "TEXT", "DELTA", "BINARYFILE"}

func (p *Parser) parseTableExpression() *segment.Segment {
	b := p.start()
	switch {
	case p.is(token.LPAREN):
		b.add(p.parseFromBracketed())
	case p.is(token.STRING):
		ref := p.start()
		ref.take(segment.Literal)
		b.add(ref.build(segment.FileReference))
	case p.isStageRef():
		loc := p.start()
		loc.take(segment.Literal)
		b.add(loc.build(segment.StorageLocation))
	case p.isWord("VALUES"):
		b.add(p.parseValues())
	case p.isWord(fileFormats...) && p.peekIs(1, token.DOT) && p.peekIs(2, token.QUOTED_IDENT):
		// spark: parquet.`/path/to/data`
		ref := p.start()
		ref.ident()
		ref.symbol()
		ref.take(segment.QuotedIdentifier)
		b.add(ref.build(segment.FileReference))
	case p.isIdent():
		name := p.parseTableName()
		if p.is(token.LPAREN) {
			b.add(p.parseFunctionFrom(name))
		} else {
			b.add(name)
		}
	default:
		p.errorf(ErrExpectedIdentifier, p.describe())
		return nil
	}
	return b.build(segment.TableExpression)
}

// isStageRef reports whether the current token names a storage stage:
// @stage or @stage/path.
func (p *Parser) isStageRef() bool {
	t := p.tok()
	return t.Type == token.STAGE ||
		t.Type == token.PARAM && strings.HasPrefix(t.Literal, "@") && !strings.HasPrefix(t.Literal, "@@")
}

// parseFromBracketed parses a parenthesized FROM item: a subquery or a
// nested join.
func (p *Parser) parseFromBracketed() *segment.Segment {
	if p.queryAhead(1) || p.peekWord(1, "VALUES") {
		return p.parseBracketed()
	}
	b := p.start()
	b.symbol() // (
	b.add(p.parseFromExpression())
	b.expectSymbol(token.RPAREN)
	return b.build(segment.Bracketed)
}

//	lateral_view → LATERAL VIEW [OUTER] function [name] [AS] name ("," name)*
func (p *Parser) parseLateralView() *segment.Segment {
	b := p.start()
	b.keyword() // LATERAL
	b.keyword() // VIEW
	b.optKeyword("OUTER")
	b.add(p.parseOperand())
	if p.isName() {
		b.ident()
	}
	b.optKeyword("AS")
	for p.isName() {
		b.ident()
		if !p.is(token.COMMA) || !p.peekIs(1, token.IDENT, token.QUOTED_IDENT) || p.peekWord(1, "LATERAL") {
			break
		}
		b.symbol()
	}
	return b.build(segment.LateralViewClause)
}

// ---------- Trailing clauses ----------

func (p *Parser) parseExprClause(kind segment.Kind) *segment.Segment {
	b := p.start()
	b.keyword()
	b.add(p.parseExpression())
	return b.build(kind)
}

func (p *Parser) parseGroupBy() *segment.Segment {
	b := p.start()
	b.keyword() // GROUP
	b.keyword() // BY
	if b.optKeyword("ALL") {
		return b.build(segment.GroupByClause)
	}
	p.parseExpressionList(b)
	if p.isWord("WITH") && p.peekWord(1, "ROLLUP", "CUBE") {
		b.keyword()
		b.keyword()
	}
	return b.build(segment.GroupByClause)
}

func (p *Parser) parseOrderBy() *segment.Segment {
	b := p.start()
	b.keyword() // ORDER
	b.keyword() // BY
	for {
		b.add(p.parseExpression())
		b.optKeyword("ASC", "DESC")
		if p.isWord("NULLS") {
			b.keyword()
			b.optKeyword("FIRST", "LAST")
		}
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	return b.build(segment.OrderByClause)
}

func (p *Parser) parseLimit() *segment.Segment {
	b := p.start()
	b.keyword()
	for {
		switch {
		case p.isWord("OFFSET", "FETCH", "FIRST", "NEXT", "ROWS", "ROW", "ONLY", "PERCENT", "TIES", "WITH", "ALL"):
			b.keyword()
		case p.is(token.COMMA):
			b.symbol()
		case p.is(token.NUMBER), p.is(token.PARAM), p.is(token.LPAREN), p.isName():
			b.add(p.parseExpression())
		default:
			return b.build(segment.LimitClause)
		}
	}
}

func (p *Parser) parseLockingClause() *segment.Segment {
	b := p.start()
	b.keyword() // FOR
	for p.is(token.IDENT) || p.is(token.QUOTED_IDENT) || p.is(token.COMMA) || p.is(token.DOT) {
		if p.atStatementEnd() || p.isSetOperator() {
			break
		}
		b.generic()
	}
	return b.build(segment.LimitClause)
}

//	window_clause → WINDOW name AS "(" window_spec ")" ("," ...)*
func (p *Parser) parseWindowClause() *segment.Segment {
	b := p.start()
	b.keyword() // WINDOW
	for p.isIdent() {
		b.ident()
		b.expectKeyword("AS")
		if p.is(token.LPAREN) {
			b.add(p.parseWindowSpec())
		}
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	return b.build(segment.WindowClause)
}

//	values → VALUES row ("," row)*
//	row    → "(" expr_list ")" | expr
func (p *Parser) parseValues() *segment.Segment {
	b := p.start()
	b.keyword() // VALUES
	for {
		if p.is(token.LPAREN) {
			b.add(p.parseBracketed())
		} else {
			b.add(p.parseExpression())
		}
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	return b.build(segment.ValuesClause)
}
