package parser

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Expression parsing.
//
// Lineage does not care about operator precedence, so an expression is a
// flat run of operands joined by operators:
//
//	expr     → prefix* operand postfix* (binop prefix* operand postfix*)*
//	prefix   → NOT | "-" | "+" | "~" | ALL | ANY | SOME
//	postfix  → "::" type | "[" expr "]" | COLLATE name | AT TIME ZONE operand
//	binop    → arithmetic/comparison operators | AND | OR | [NOT] LIKE | [NOT] IN
//	         | [NOT] BETWEEN | IS [NOT] [DISTINCT FROM] | ...
//	operand  → literal | column_ref | wildcard | function | case | "(" ... ")"
//
// A lone operand is returned as is; anything longer is wrapped in an
// Expression segment.

var binaryOperators = map[token.TokenType]bool{
	token.PLUS: true, token.MINUS: true, token.STAR: true, token.SLASH: true,
	token.PERCENT: true, token.DPIPE: true, token.PIPE: true, token.AMP: true,
	token.CARET: true, token.TILDE: true, token.EQ: true, token.EQEQ: true,
	token.NE: true, token.LT: true, token.GT: true, token.LE: true, token.GE: true,
	token.NULLSAFE: true, token.ARROW: true, token.DARROW: true, token.FATARROW: true,
}

var keywordOperators = []string{
	"AND", "OR", "XOR", "LIKE", "ILIKE", "RLIKE", "REGEXP", "GLOB", "IN", "BETWEEN",
	"ESCAPE", "DIV", "MOD", "OVERLAPS",
}

var niladicFunctions = map[string]bool{
	"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
	"CURRENT_USER": true, "SESSION_USER": true, "SYSTEM_USER": true,
	"LOCALTIME": true, "LOCALTIMESTAMP": true, "SYSDATE": true,
	"SYSTIMESTAMP": true, "CURRENT_CATALOG": true, "CURRENT_SCHEMA": true,
}

// reservedFunctions are reserved words that still name functions when
// followed by "(".
var reservedFunctions = map[string]bool{
	"LEFT": true, "RIGHT": true, "INSERT": true, "TRUNCATE": true,
}

var typedLiteralPrefixes = map[string]bool{
	"DATE": true, "TIME": true, "TIMESTAMP": true, "DATETIME": true,
	"TIMESTAMPTZ": true, "TIMESTAMP_NTZ": true, "TIMESTAMP_LTZ": true,
	"NUMERIC": true, "DECIMAL": true, "JSON": true, "BIGNUMERIC": true,
}

var intervalUnits = map[string]bool{
	"YEAR": true, "YEARS": true, "QUARTER": true, "MONTH": true, "MONTHS": true,
	"WEEK": true, "WEEKS": true, "DAY": true, "DAYS": true, "HOUR": true,
	"HOURS": true, "MINUTE": true, "MINUTES": true, "SECOND": true, "SECONDS": true,
	"MILLISECOND": true, "MILLISECONDS": true, "MICROSECOND": true,
	"MICROSECONDS": true, "NANOSECOND": true, "DAYOFWEEK": true, "DAYOFYEAR": true,
	"DOW": true, "DOY": true, "EPOCH": true, "ISOWEEK": true, "ISOYEAR": true,
	"YY": true, "YYYY": true, "MM": true, "DD": true, "HH": true, "MI": true, "SS": true,
}

// datePartFunctions take a bare date part word as one of their arguments.
var datePartFunctions = map[string]bool{
	"EXTRACT": true, "DATEADD": true, "DATEDIFF": true, "DATEPART": true,
	"DATENAME": true, "DATETRUNC": true, "DATE_TRUNC": true, "DATE_DIFF": true,
	"DATE_ADD": true, "DATE_SUB": true, "DATETIME_TRUNC": true,
	"DATETIME_DIFF": true, "TIMESTAMP_TRUNC": true, "TIMESTAMP_DIFF": true,
	"TIMESTAMPADD": true, "TIMESTAMPDIFF": true, "LAST_DAY": true,
}

// typeFirstFunctions take a data type as their first argument.
var typeFirstFunctions = map[string]bool{"CONVERT": true, "TRY_CONVERT": true}

var frameWords = []string{
	"ROWS", "RANGE", "GROUPS", "BETWEEN", "AND", "UNBOUNDED", "PRECEDING",
	"FOLLOWING", "CURRENT", "ROW", "EXCLUDE", "NO", "OTHERS", "TIES", "GROUP",
}

func (p *Parser) parseExpression() *segment.Segment {
	return p.continueExpression(nil)
}

// continueExpression parses an expression whose first operand, when not
// nil, has already been parsed.
func (p *Parser) continueExpression(first *segment.Segment) *segment.Segment {
	b := p.start()
	if first != nil {
		b.add(first)
		p.parsePostfix(b)
		if !p.parseBinaryOperator(b) {
			return collapse(b)
		}
	}
	for {
		for p.parsePrefix(b) {
		}
		op := p.parseOperand()
		if op == nil {
			p.errorf(ErrExpectedExpression, p.describe())
			break
		}
		b.add(op)
		p.parsePostfix(b)
		if !p.parseBinaryOperator(b) {
			break
		}
	}
	return collapse(b)
}

func collapse(b *builder) *segment.Segment {
	switch len(b.kids) {
	case 0:
		return nil
	case 1:
		return b.kids[0]
	}
	return b.build(segment.Expression)
}

func (p *Parser) parsePrefix(b *builder) bool {
	switch {
	case p.isWord("NOT"):
		b.keyword()
	case p.is(token.MINUS), p.is(token.PLUS), p.is(token.TILDE), p.is(token.BANG):
		b.take(segment.Operator)
	case p.isWord("ALL", "ANY", "SOME") && p.peekIs(1, token.LPAREN) && p.queryAhead(1):
		b.keyword()
	case p.isWord("PRIOR", "BINARY") && (p.peekIs(1, token.IDENT, token.QUOTED_IDENT)):
		b.keyword()
	default:
		return false
	}
	return true
}

// parseBinaryOperator consumes an operator and reports whether an operand
// must follow.
func (p *Parser) parseBinaryOperator(b *builder) bool {
	switch {
	case binaryOperators[p.tok().Type]:
		b.take(segment.Operator)
	case p.isWord(keywordOperators...):
		b.keyword()
		b.optKeyword("ANY", "ALL", "SOME")
	case p.isWord("NOT") && p.peekWord(1, "LIKE", "ILIKE", "RLIKE", "REGEXP", "GLOB", "IN", "BETWEEN", "SIMILAR"):
		b.keyword()
		if p.isWord("SIMILAR") {
			b.keywords("SIMILAR", "TO")
		} else {
			b.keyword()
		}
	case p.isWord("SIMILAR") && p.peekWord(1, "TO"):
		b.keywords("SIMILAR", "TO")
	case p.isWord("IS"):
		b.keyword()
		b.optKeyword("NOT")
		if b.keywords("DISTINCT", "FROM") {
			return true
		}
		if p.isWord("NULL", "TRUE", "FALSE", "UNKNOWN", "NAN") {
			b.take(segment.Literal)
			p.parsePostfix(b)
			return p.parseBinaryOperator(b)
		}
	case p.isWord("ISNULL", "NOTNULL"):
		b.keyword()
		return p.parseBinaryOperator(b)
	default:
		return false
	}
	return true
}

func (p *Parser) parsePostfix(b *builder) {
	for {
		switch {
		case p.is(token.DCOLON):
			b.take(segment.Operator)
			b.add(p.parseDataType())
		case p.is(token.LBRACKET):
			b.add(p.parseArray())
		case p.isWord("COLLATE"):
			b.keyword()
			if p.isIdent() || p.is(token.STRING) {
				b.generic()
			}
		case p.isWord("AT") && p.peekWord(1, "TIME") && p.peekWord(2, "ZONE"):
			b.keywords("AT", "TIME", "ZONE")
			b.add(p.parseOperand())
		case p.is(token.DOT) && p.peekIs(1, token.IDENT, token.QUOTED_IDENT):
			b.symbol()
			b.ident()
		default:
			return
		}
	}
}

//nolint:gocyclo // one case per operand form
func (p *Parser) parseOperand() *segment.Segment {
	t := p.tok()
	switch t.Type {
	case token.LPAREN:
		return p.parseBracketed()
	case token.NUMBER, token.STRING:
		return p.leaf(segment.Literal)
	case token.PARAM:
		return p.leaf(segment.Parameter)
	case token.STAGE:
		b := p.start()
		b.take(segment.Literal)
		return b.build(segment.StorageLocation)
	case token.STAR:
		b := p.start()
		b.symbol()
		p.parseWildcardModifiers(b)
		return b.build(segment.WildcardExpression)
	case token.LBRACKET:
		return p.parseArray()
	case token.QUOTED_IDENT:
		return p.parseNameOperand()
	case token.IDENT:
	default:
		return nil
	}

	word := strings.ToUpper(t.Literal)
	switch {
	case word == "CASE":
		return p.parseCase()
	case word == "NULL" || word == "TRUE" || word == "FALSE":
		return p.leaf(segment.Literal)
	case word == "EXISTS" && p.peekIs(1, token.LPAREN):
		b := p.start()
		b.keyword()
		b.add(p.parseBracketed())
		return b.build(segment.Expression)
	case word == "INTERVAL":
		return p.parseInterval()
	case typedLiteralPrefixes[word] && p.peekIs(1, token.STRING):
		b := p.start()
		b.keyword()
		b.take(segment.Literal)
		return b.build(segment.Expression)
	case word == "ARRAY" && p.peekIs(1, token.LBRACKET):
		b := p.start()
		b.keyword()
		b.add(p.parseArray())
		return b.build(segment.Expression)
	case word == "GROUPING" && p.peekWord(1, "SETS"):
		b := p.start()
		b.keywords("GROUPING", "SETS")
		if p.is(token.LPAREN) {
			b.add(p.parseBracketed())
		}
		return b.build(segment.Expression)
	case niladicFunctions[word] && !p.peekIs(1, token.LPAREN):
		name := p.start()
		name.keyword()
		b := p.start()
		b.add(name.build(segment.FunctionName))
		return b.build(segment.Function)
	case token.IsReserved(word) && !(reservedFunctions[word] && p.peekIs(1, token.LPAREN)):
		return nil
	}
	return p.parseNameOperand()
}

// parseNameOperand parses a dotted name: a column reference, a qualified
// wildcard (t.*) or a function call.
func (p *Parser) parseNameOperand() *segment.Segment {
	b := p.start()
	b.ident()
	for p.is(token.DOT) {
		switch {
		case p.peekIs(1, token.STAR):
			b.symbol()
			b.symbol()
			p.parseWildcardModifiers(b)
			return b.build(segment.WildcardExpression)
		case p.peekIs(1, token.IDENT, token.QUOTED_IDENT):
			b.symbol()
			b.ident()
		default:
			return b.build(segment.ColumnReference)
		}
	}
	if p.is(token.LPAREN) {
		return p.parseFunctionFrom(b.build(segment.FunctionName))
	}
	return b.build(segment.ColumnReference)
}

// parseWildcardModifiers consumes "* EXCEPT (..)", "* EXCLUDE (..)",
// "* REPLACE (..)" and "* RENAME (..)".
func (p *Parser) parseWildcardModifiers(b *builder) {
	for p.isWord("EXCEPT", "EXCLUDE", "REPLACE", "RENAME") && p.peekIs(1, token.LPAREN) && !p.queryAhead(1) {
		b.keyword()
		b.add(p.balanced())
	}
}

// parseFunctionFrom parses the argument list and trailing clauses of a
// function whose name has been parsed.
func (p *Parser) parseFunctionFrom(name *segment.Segment) *segment.Segment {
	if !name.Is(segment.FunctionName) {
		name = segment.NewNode(segment.FunctionName, p.src, name.Children())
	}
	b := p.start()
	b.add(name)
	fn := ""
	if code := name.Code(); len(code) > 0 {
		fn = strings.ToUpper(code[len(code)-1].Raw())
	}
	b.add(p.parseFunctionArgs(fn))
	for {
		switch {
		case p.isWord("WITHIN") && p.peekWord(1, "GROUP"):
			b.keywords("WITHIN", "GROUP")
			if p.is(token.LPAREN) {
				within := p.start()
				within.symbol()
				if p.isWord("ORDER") {
					within.add(p.parseOrderBy())
				}
				within.expectSymbol(token.RPAREN)
				b.add(within.build(segment.Bracketed))
			}
		case p.isWord("FILTER") && p.peekIs(1, token.LPAREN):
			b.keyword()
			filter := p.start()
			filter.symbol()
			if p.isWord("WHERE") {
				filter.add(p.parseExprClause(segment.WhereClause))
			}
			filter.expectSymbol(token.RPAREN)
			b.add(filter.build(segment.Bracketed))
		case p.isWord("IGNORE", "RESPECT") && p.peekWord(1, "NULLS"):
			b.keyword()
			b.keyword()
		case p.isWord("OVER"):
			b.add(p.parseOver())
		default:
			return b.build(segment.Function)
		}
	}
}

// parseFunctionArgs parses "(" [DISTINCT] arg ("," arg)* ")".
//
//nolint:gocyclo // argument syntax varies per function
func (p *Parser) parseFunctionArgs(fn string) *segment.Segment {
	b := p.start()
	b.symbol() // (
	datePart := datePartFunctions[fn]
	first := true
	for !p.is(token.RPAREN) && !p.atEOF() {
		switch {
		case first && p.isWord("DISTINCT", "ALL"):
			b.keyword()
			continue
		case first && p.isWord("BOTH", "LEADING", "TRAILING") && !p.peekIs(1, token.COMMA, token.RPAREN):
			b.keyword()
			continue
		case first && typeFirstFunctions[fn] && p.isIdent() && p.peekIs(1, token.COMMA, token.LPAREN):
			b.add(p.parseDataType())
		case datePart && p.is(token.IDENT) && intervalUnits[strings.ToUpper(p.tok().Literal)] &&
			(p.peekIs(1, token.COMMA, token.RPAREN) || p.peekWord(1, "FROM")):
			b.keyword()
		case p.is(token.STAR) && p.peekIs(1, token.RPAREN):
			b.symbol()
		default:
			e := p.parseExpression()
			if e == nil {
				b.expectSymbol(token.RPAREN)
				return b.build(segment.Bracketed)
			}
			b.add(e)
		}
		first = false
		p.parseArgumentSuffix(b)
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	b.expectSymbol(token.RPAREN)
	return b.build(segment.Bracketed)
}

func (p *Parser) parseArgumentSuffix(b *builder) {
	for {
		switch {
		case p.isWord("AS"):
			b.keyword()
			b.add(p.parseDataType())
		case p.isWord("FROM", "FOR", "PLACING", "SEPARATOR"):
			b.keyword()
			b.add(p.parseExpression())
		case p.isWord("USING"):
			b.keyword()
			if p.isIdent() {
				b.take(segment.Keyword)
			}
		case p.isWord("ORDER") && p.peekWord(1, "BY"):
			b.add(p.parseOrderBy())
		case p.isWord("LIMIT"):
			b.add(p.parseLimit())
		case p.isWord("IGNORE", "RESPECT") && p.peekWord(1, "NULLS"):
			b.keyword()
			b.keyword()
		case p.isWord("ON") && p.peekWord(1, "OVERFLOW"):
			for !p.is(token.RPAREN) && !p.atEOF() {
				b.generic()
			}
		default:
			return
		}
	}
}

//	over_clause → OVER ("(" window_spec ")" | name)
func (p *Parser) parseOver() *segment.Segment {
	b := p.start()
	b.keyword() // OVER
	switch {
	case p.is(token.LPAREN):
		b.add(p.parseWindowSpec())
	case p.isIdent():
		b.ident()
	}
	return b.build(segment.OverClause)
}

//	window_spec → "(" [name] [PARTITION BY exprs] [ORDER BY ...] [frame] ")"
func (p *Parser) parseWindowSpec() *segment.Segment {
	b := p.start()
	b.symbol() // (
	if p.isName() && !p.isWord("PARTITION", "ORDER", "ROWS", "RANGE", "GROUPS") {
		b.ident()
	}
	if p.isWord("PARTITION") && p.peekWord(1, "BY") {
		pb := p.start()
		pb.keywords("PARTITION", "BY")
		p.parseExpressionList(pb)
		b.add(pb.build(segment.PartitionByClause))
	}
	if p.isWord("ORDER") && p.peekWord(1, "BY") {
		b.add(p.parseOrderBy())
	}
	for !p.is(token.RPAREN) && !p.atEOF() {
		switch {
		case p.isWord(frameWords...):
			b.keyword()
		case p.isWord("INTERVAL"):
			b.add(p.parseInterval())
		case p.is(token.NUMBER), p.is(token.STRING), p.is(token.PARAM):
			b.generic()
		default:
			p.errorf(ErrUnexpectedInput, p.describe())
			b.expectSymbol(token.RPAREN)
			return b.build(segment.Bracketed)
		}
	}
	b.expectSymbol(token.RPAREN)
	return b.build(segment.Bracketed)
}

//	case → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
func (p *Parser) parseCase() *segment.Segment {
	b := p.start()
	b.keyword() // CASE
	if !p.isWord("WHEN") {
		b.add(p.parseExpression())
	}
	for p.isWord("WHEN") {
		w := p.start()
		w.keyword()
		w.add(p.parseExpression())
		w.expectKeyword("THEN")
		w.add(p.parseExpression())
		b.add(w.build(segment.WhenClause))
	}
	if p.isWord("ELSE") {
		e := p.start()
		e.keyword()
		e.add(p.parseExpression())
		b.add(e.build(segment.ElseClause))
	}
	b.expectKeyword("END")
	return b.build(segment.CaseExpression)
}

//	interval → INTERVAL operand [unit [TO unit]]
func (p *Parser) parseInterval() *segment.Segment {
	b := p.start()
	b.keyword() // INTERVAL
	for p.parsePrefix(b) {
	}
	b.add(p.parseOperand())
	if p.is(token.IDENT) && intervalUnits[strings.ToUpper(p.tok().Literal)] {
		b.keyword()
		if p.isWord("TO") && p.peekIs(1, token.IDENT) {
			b.keyword()
			b.keyword()
		}
	}
	return b.build(segment.Expression)
}

// parseArray parses "[" expr_list "]", used for array literals and
// subscripts.
func (p *Parser) parseArray() *segment.Segment {
	b := p.start()
	b.symbol() // [
	if !p.is(token.RBRACKET) {
		p.parseExpressionList(b)
	}
	b.expectSymbol(token.RBRACKET)
	return b.build(segment.Bracketed)
}

// parseBracketed parses a parenthesized query or expression list.
func (p *Parser) parseBracketed() *segment.Segment {
	b := p.start()
	b.symbol() // (
	switch {
	case p.is(token.RPAREN):
	case p.isWord("SELECT", "WITH"):
		b.add(p.parseQuery())
	case p.isWord("VALUES"):
		b.add(p.parseValues())
	case p.is(token.LPAREN) && p.queryAhead(0):
		q := p.parseQuery()
		if !p.is(token.RPAREN) && !p.is(token.COMMA) {
			q = p.continueExpression(q)
		}
		b.add(q)
		if p.is(token.COMMA) {
			b.symbol()
			p.parseExpressionList(b)
		}
	default:
		p.parseExpressionList(b)
	}
	b.expectSymbol(token.RPAREN)
	return b.build(segment.Bracketed)
}

// parseExpressionList appends expr ("," expr)* to b.
func (p *Parser) parseExpressionList(b *builder) {
	for {
		e := p.parseExpression()
		if e == nil {
			return
		}
		b.add(e)
		b.optKeyword("ASC", "DESC")
		if !p.is(token.COMMA) {
			return
		}
		b.symbol()
	}
}

var typeContinuations = []string{"PRECISION", "VARYING", "UNSIGNED", "SIGNED", "ZEROFILL"}

//	data_type → name [name...] ["(" args ")"] ["<" ... ">"] ("[" "]")* [ARRAY]
func (p *Parser) parseDataType() *segment.Segment {
	b := p.start()
	if !p.isIdent() {
		p.errorf(ErrExpectedIdentifier, p.describe())
		return nil
	}
	b.keyword()
	for p.is(token.DOT) && p.peekIs(1, token.IDENT, token.QUOTED_IDENT) {
		b.symbol()
		b.keyword()
	}
	for {
		switch {
		case p.isWord(typeContinuations...):
			b.keyword()
		case p.isWord("WITH", "WITHOUT") && p.peekWord(1, "TIME", "LOCAL"):
			for p.isWord("WITH", "WITHOUT", "LOCAL", "TIME", "ZONE") {
				b.keyword()
			}
		case p.is(token.LPAREN):
			b.add(p.balanced())
		case p.is(token.LT):
			depth := 0
			for !p.atEOF() {
				if p.is(token.LT) {
					depth++
				} else if p.is(token.GT) {
					depth--
				}
				b.generic()
				if depth == 0 {
					break
				}
			}
		case p.is(token.LBRACKET) && p.peekIs(1, token.RBRACKET):
			b.symbol()
			b.symbol()
		case p.isWord("ARRAY") && !p.peekIs(1, token.LT, token.LBRACKET):
			b.keyword()
		default:
			return b.build(segment.DataType)
		}
	}
}
