package parser

import (
	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// DML and DDL statements.
//
// Grammar:
//
//	insert  → (INSERT [OR word] | REPLACE) (INTO | OVERWRITE) [TABLE] name
//	          [PARTITION "(" ... ")"] [IF NOT EXISTS] ["(" names ")"] body
//	        | INSERT OVERWRITE [LOCAL] DIRECTORY 'path' option* query
//	create  → CREATE modifier* (TABLE | VIEW) [IF NOT EXISTS] name
//	          ["(" column_def ("," column_def)* ")"] [LIKE | CLONE name]
//	          table_option* [AS query]
//	merge   → MERGE [INTO] name [alias] USING (name | "(" query ")") [alias]
//	          ON expr merge_when+
//	update  → UPDATE from_expr ("," from_expr)* SET set_clause ("," set_clause)*
//	          [FROM ...] [WHERE expr]
//	copy    → COPY [INTO] name ["(" names ")"] (FROM | TO) source option*
//	unload  → UNLOAD "(" 'query' ")" TO 'path' option*
//	drop    → DROP (TABLE | VIEW) [IF EXISTS] name ("," name)* [CASCADE]
//	alter   → ALTER (TABLE | VIEW) name (RENAME TO name | SWAP WITH name
//	          | EXCHANGE PARTITION ... WITH TABLE name | ...)
//	rename  → RENAME TABLE name TO name ("," name TO name)*

var createModifiers = []string{
	"TEMP", "TEMPORARY", "EXTERNAL", "TRANSIENT", "VOLATILE", "GLOBAL", "LOCAL",
	"MATERIALIZED", "SECURE", "RECURSIVE", "UNLOGGED", "MULTISET", "ICEBERG",
	"DYNAMIC", "HYBRID", "FORCE", "NOFORCE", "STREAMING", "LIVE",
}

// ---------- INSERT ----------

func (p *Parser) parseInsert() *segment.Segment {
	b := p.start()
	b.keyword() // INSERT or REPLACE
	if p.isWord("OR") {
		b.keyword()
		if p.isIdent() {
			b.keyword()
		}
	}
	for p.isWord("IGNORE", "LOW_PRIORITY", "DELAYED", "HIGH_PRIORITY") {
		b.keyword()
	}
	switch {
	case p.isWord("INTO"):
		b.keyword()
		b.optKeyword("TABLE")
		b.add(p.parseTableName())
	case p.isWord("OVERWRITE"):
		b.keyword()
		switch {
		case p.isWord("TABLE"):
			b.keyword()
			b.add(p.parseTableName())
		case p.isWord("LOCAL", "DIRECTORY"):
			b.optKeyword("LOCAL")
			b.expectKeyword("DIRECTORY")
			if p.is(token.STRING) {
				b.take(segment.Literal)
			} else {
				p.errorf(ErrUnexpectedToken, p.describe(), "'path'")
			}
			if opt := p.parseTableOptions(); opt != nil {
				b.add(opt)
			}
		default:
			b.add(p.parseTableName())
		}
	case p.isIdent():
		// T-SQL allows INSERT without INTO
		b.add(p.parseTableName())
	default:
		p.errorf(ErrUnexpectedToken, p.describe(), "INTO")
		return b.build(segment.InsertStatement)
	}
	for {
		switch {
		case p.isWord("PARTITION") && p.peekIs(1, token.LPAREN):
			part := p.start()
			part.keyword()
			part.add(p.balanced())
			b.add(part.build(segment.PartitionClause))
			continue
		case p.isWord("IF") && p.peekWord(1, "NOT"):
			b.keywords("IF", "NOT", "EXISTS")
			continue
		case p.isWord("BY") && p.peekWord(1, "NAME", "POSITION"):
			b.keywords("BY")
			b.keyword()
			continue
		case p.is(token.LPAREN) && !p.queryAhead(0) && p.peekIs(1, token.IDENT, token.QUOTED_IDENT):
			b.add(p.parseNameList())
			continue
		}
		break
	}
	switch {
	case p.isWord("SELECT", "WITH") || p.is(token.LPAREN):
		b.add(p.parseQuery())
	case p.isWord("VALUES"):
		b.add(p.parseValues())
	case p.isWord("DEFAULT") && p.peekWord(1, "VALUES"):
		b.keywords("DEFAULT", "VALUES")
	case p.isWord("TABLE"):
		b.keyword()
		b.add(p.parseTableName())
	default:
		p.errorf(ErrUnexpectedToken, p.describe(), "SELECT")
	}
	if p.isWord("ON", "RETURNING") {
		b.add(p.parseRestAsOption())
	}
	return b.build(segment.InsertStatement)
}

// parseTableOptions consumes storage options (ROW FORMAT, STORED AS,
// OPTIONS (...), TBLPROPERTIES (...), ...) up to the start of a query.
func (p *Parser) parseTableOptions() *segment.Segment {
	b := p.start()
	for !p.atStatementEnd() && !p.isWord("SELECT", "AS", "VALUES", "FROM") &&
		!(p.is(token.LPAREN) && p.queryAhead(0)) && !p.is(token.RPAREN) {
		switch {
		case p.isWord("STORED") && p.peekWord(1, "AS"):
			b.keywords("STORED", "AS")
			b.generic()
			continue
		case p.isWord("WITH") && !(p.peekIs(1, token.LPAREN) && !p.queryAhead(1)):
			return p.optionsOrNil(b)
		}
		if p.is(token.LPAREN) {
			b.add(p.balanced())
			continue
		}
		b.generic()
	}
	return p.optionsOrNil(b)
}

func (p *Parser) optionsOrNil(b *builder) *segment.Segment {
	if len(b.kids) == 0 {
		return nil
	}
	return b.build(segment.TableOption)
}

// parseRestAsOption consumes everything up to the end of the statement.
func (p *Parser) parseRestAsOption() *segment.Segment {
	b := p.start()
	for !p.atStatementEnd() && !p.is(token.RPAREN) {
		if p.is(token.LPAREN) {
			b.add(p.balanced())
			continue
		}
		b.generic()
	}
	return b.build(segment.TableOption)
}

// ---------- CREATE ----------

func (p *Parser) parseCreate() *segment.Segment {
	b := p.start()
	b.keyword() // CREATE
	for {
		switch {
		case p.isWord("OR") && p.peekWord(1, "REPLACE", "ALTER"):
			b.keyword()
			b.keyword()
			continue
		case p.isWord(createModifiers...):
			b.keyword()
			continue
		}
		break
	}
	switch {
	case p.isWord("TABLE"):
		return p.parseCreateTable(b)
	case p.isWord("VIEW"):
		return p.parseCreateView(b)
	case p.isWord("FUNCTION", "MACRO", "PROCEDURE", "AGGREGATE"):
		return p.parseOpaqueRest(b, segment.CreateFunctionStatement)
	case p.isWord("SCHEMA", "DATABASE"):
		return p.parseOpaqueRest(b, segment.CreateSchemaStatement)
	case p.isWord("INDEX", "UNIQUE", "CLUSTERED", "NONCLUSTERED", "BITMAP"):
		return p.parseOpaqueRest(b, segment.CreateIndexStatement)
	}
	return p.parseOpaqueRest(b, segment.OtherDDLStatement)
}

// parseOpaqueRest finishes a statement started in b as a flat token run.
func (p *Parser) parseOpaqueRest(b *builder, kind segment.Kind) *segment.Segment {
	if !p.atStatementEnd() {
		b.add(p.parseRestAsOption())
	}
	return b.build(kind)
}

func (p *Parser) parseCreateTable(b *builder) *segment.Segment {
	b.keyword() // TABLE
	b.keywords("IF", "NOT", "EXISTS")
	b.add(p.parseTableName())
	if p.is(token.LPAREN) && !p.queryAhead(0) {
		b.add(p.parseColumnDefinitions())
	}
	for !p.atStatementEnd() && !p.is(token.RPAREN) {
		switch {
		case p.isWord("LIKE", "CLONE"):
			b.keyword()
			b.add(p.parseTableName())
			p.parseTimeTravel(b)
		case p.is(token.LPAREN) && p.peekWord(1, "LIKE"):
			// mysql: CREATE TABLE t (LIKE s)
			like := p.start()
			like.symbol()
			like.keyword()
			like.add(p.parseTableName())
			like.expectSymbol(token.RPAREN)
			b.add(like.build(segment.Bracketed))
		case p.isWord("AS"):
			b.keyword()
			b.add(p.parseQuery())
		case p.isWord("SELECT", "WITH") || (p.is(token.LPAREN) && p.queryAhead(0)):
			b.add(p.parseQuery())
		default:
			opt := p.parseTableOptions()
			if opt == nil {
				p.errorf(ErrUnexpectedInput, p.describe())
				return b.build(segment.CreateTableStatement)
			}
			b.add(opt)
		}
	}
	return b.build(segment.CreateTableStatement)
}

// parseTimeTravel consumes snowflake "AT (...)" / "BEFORE (...)" after CLONE.
func (p *Parser) parseTimeTravel(b *builder) {
	if p.isWord("AT", "BEFORE") && p.peekIs(1, token.LPAREN) {
		b.keyword()
		b.add(p.balanced())
	}
}

//	column_defs → "(" (column_def | constraint) ("," ...)* ")"
//	column_def  → name [data_type constraint*]
func (p *Parser) parseColumnDefinitions() *segment.Segment {
	b := p.start()
	b.symbol() // (
	for !p.is(token.RPAREN) && !p.atEOF() {
		switch {
		case p.isWord("PRIMARY", "UNIQUE", "CONSTRAINT", "FOREIGN", "CHECK", "KEY", "INDEX", "PERIOD", "EXCLUDE"):
			b.add(p.parseConstraint())
		case p.isIdent():
			b.add(p.parseColumnDefinition())
		default:
			p.errorf(ErrExpectedIdentifier, p.describe())
			b.add(p.parseConstraint())
		}
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	b.expectSymbol(token.RPAREN)
	return b.build(segment.Bracketed)
}

func (p *Parser) parseColumnDefinition() *segment.Segment {
	b := p.start()
	b.ident()
	if p.is(token.COMMA) || p.is(token.RPAREN) {
		// a bare name list, as in CREATE VIEW v (a, b) or hive partitioned-by
		return b.build(segment.ColumnReference)
	}
	b.add(p.parseDataType())
	if c := p.parseConstraint(); c != nil {
		b.add(c)
	}
	return b.build(segment.ColumnDefinition)
}

// parseConstraint consumes tokens up to the next top-level comma or the
// closing parenthesis.
func (p *Parser) parseConstraint() *segment.Segment {
	b := p.start()
	for !p.is(token.COMMA) && !p.is(token.RPAREN) && !p.atEOF() {
		if p.is(token.LPAREN) {
			b.add(p.balanced())
			continue
		}
		b.generic()
	}
	if len(b.kids) == 0 {
		return nil
	}
	return b.build(segment.TableOption)
}

func (p *Parser) parseCreateView(b *builder) *segment.Segment {
	b.keyword() // VIEW
	b.keywords("IF", "NOT", "EXISTS")
	b.add(p.parseTableName())
	if p.is(token.LPAREN) && !p.queryAhead(0) {
		b.add(p.parseColumnDefinitions())
	}
	if opt := p.parseTableOptions(); opt != nil {
		b.add(opt)
	}
	if b.optKeyword("AS") || p.isWord("SELECT", "WITH") || p.is(token.LPAREN) {
		b.add(p.parseQuery())
	} else {
		p.errorf(ErrUnexpectedToken, p.describe(), "AS")
	}
	return b.build(segment.CreateViewStatement)
}

// ---------- MERGE ----------

func (p *Parser) parseMerge() *segment.Segment {
	b := p.start()
	b.keyword() // MERGE
	b.optKeyword("INTO")
	b.add(p.parseTableName())
	b.add(p.parseMergeAlias())
	if !b.expectKeyword("USING") {
		return b.build(segment.MergeStatement)
	}
	if p.is(token.LPAREN) {
		b.add(p.parseBracketed())
	} else {
		b.add(p.parseTableName())
	}
	b.add(p.parseMergeAlias())
	if p.isWord("ON") {
		cond := p.start()
		cond.keyword()
		cond.add(p.parseExpression())
		b.add(cond.build(segment.JoinOnCondition))
	} else {
		p.errorf(ErrUnexpectedToken, p.describe(), "ON")
	}
	match := p.start()
	for p.isWord("WHEN") {
		match.add(p.parseMergeWhen())
	}
	if len(match.kids) > 0 {
		b.add(match.build(segment.MergeMatch))
	}
	return b.build(segment.MergeStatement)
}

func (p *Parser) parseMergeAlias() *segment.Segment {
	if p.isWord("USING", "ON") {
		return nil
	}
	return p.parseAlias(false)
}

//	merge_when → WHEN [NOT] MATCHED [BY (TARGET|SOURCE)] [AND expr] THEN action
//	action     → UPDATE SET set_clause ("," set_clause)* | DELETE
//	           | INSERT ["(" names ")"] VALUES "(" exprs ")" | INSERT ROW
func (p *Parser) parseMergeWhen() *segment.Segment {
	b := p.start()
	b.keyword() // WHEN
	kind := segment.MergeWhenMatchedClause
	if b.optKeyword("NOT") {
		kind = segment.MergeWhenNotMatchedClause
	}
	b.expectKeyword("MATCHED")
	if b.keywords("BY", "TARGET") {
		kind = segment.MergeWhenNotMatchedClause
	} else if b.keywords("BY", "SOURCE") {
		kind = segment.MergeWhenMatchedClause
	}
	if p.isWord("AND") {
		b.keyword()
		b.add(p.parseExpression())
	}
	b.expectKeyword("THEN")
	switch {
	case p.isWord("UPDATE"):
		act := p.start()
		act.keyword()
		act.add(p.parseSetClauseList())
		b.add(act.build(segment.MergeUpdateClause))
	case p.isWord("DELETE"):
		act := p.start()
		act.keyword()
		b.add(act.build(segment.MergeDeleteClause))
	case p.isWord("INSERT"):
		act := p.start()
		act.keyword()
		if p.is(token.LPAREN) {
			act.add(p.parseBracketed())
		}
		switch {
		case p.isWord("VALUES"):
			act.keyword()
			if p.is(token.LPAREN) {
				act.add(p.parseBracketed())
			}
		case p.isWord("ROW"):
			act.keyword()
		}
		b.add(act.build(segment.MergeInsertClause))
	case p.isWord("DO") && p.peekWord(1, "NOTHING"):
		b.keywords("DO", "NOTHING")
	default:
		p.errorf(ErrUnexpectedToken, p.describe(), "UPDATE")
	}
	return b.build(kind)
}

//	set_clause_list → SET set_clause ("," set_clause)*
//	set_clause      → column_ref "=" expr | "(" names ")" "=" expr
func (p *Parser) parseSetClauseList() *segment.Segment {
	b := p.start()
	b.expectKeyword("SET")
	for {
		sc := p.start()
		switch {
		case p.is(token.LPAREN):
			sc.add(p.parseBracketed())
		case p.isIdent():
			sc.add(p.parseNameOperand())
		default:
			p.errorf(ErrExpectedIdentifier, p.describe())
			return b.build(segment.SetClauseList)
		}
		if p.is(token.EQ) {
			sc.take(segment.Operator)
		} else {
			p.errorf(ErrUnexpectedToken, p.describe(), "=")
		}
		sc.add(p.parseExpression())
		b.add(sc.build(segment.SetClause))
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	return b.build(segment.SetClauseList)
}

// ---------- UPDATE ----------

func (p *Parser) parseUpdate() *segment.Segment {
	b := p.start()
	b.keyword() // UPDATE
	for p.isWord("LOW_PRIORITY", "IGNORE", "ONLY") {
		b.keyword()
	}
	// a single plain table keeps its reference and alias at the top level;
	// joins and table lists are kept as from expressions
	first := p.parseFromExpression()
	if p.is(token.COMMA) || len(first.ChildrenOf(segment.JoinClause)) > 0 {
		b.add(first)
		for p.is(token.COMMA) {
			b.symbol()
			b.add(p.parseFromExpression())
		}
	} else {
		b.add(unwrapFromExpression(first)...)
	}
	if p.isWord("SET") {
		b.add(p.parseSetClauseList())
	} else {
		p.errorf(ErrUnexpectedToken, p.describe(), "SET")
	}
	if p.isWord("FROM") {
		b.add(p.parseFromClause())
	}
	if p.isWord("WHERE") {
		b.add(p.parseExprClause(segment.WhereClause))
	}
	p.parseTrailingClauses(b)
	if p.isWord("RETURNING", "OUTPUT") {
		b.add(p.parseRestAsOption())
	}
	return b.build(segment.UpdateStatement)
}

// unwrapFromExpression flattens a single-table from expression into its
// table reference and alias.
func unwrapFromExpression(fe *segment.Segment) []*segment.Segment {
	var out []*segment.Segment
	for _, el := range fe.Children() {
		if !el.Is(segment.FromExpressionElement) {
			out = append(out, el)
			continue
		}
		for _, c := range el.Children() {
			if te := c; te.Is(segment.TableExpression) {
				if ref := te.Child(segment.TableReference); ref != nil && len(te.Code()) == 1 {
					out = append(out, leadingTrivia(te)...)
					out = append(out, ref)
					continue
				}
			}
			out = append(out, c)
		}
	}
	return out
}

// leadingTrivia returns the trivia children before the first code child.
func leadingTrivia(s *segment.Segment) []*segment.Segment {
	var out []*segment.Segment
	for _, c := range s.Children() {
		if !c.IsTrivia() {
			break
		}
		out = append(out, c)
	}
	return out
}

// ---------- COPY / UNLOAD ----------

func (p *Parser) parseCopy() *segment.Segment {
	b := p.start()
	b.keyword() // COPY
	b.optKeyword("INTO")
	switch {
	case p.isStageRef() || p.is(token.STRING):
		// snowflake: COPY INTO @stage FROM table
		b.add(p.parseTableExpression())
	case p.is(token.LPAREN):
		b.add(p.parseBracketed())
	default:
		b.add(p.parseTableName())
	}
	if p.is(token.LPAREN) && !p.queryAhead(0) {
		b.add(p.parseNameList())
	}
	if p.isWord("FROM", "TO") {
		dir := p.start()
		dir.keyword()
		switch {
		case p.is(token.LPAREN) && p.queryAhead(0):
			dir.add(p.parseBracketed())
		case p.is(token.STRING), p.isStageRef():
			dir.add(p.parseTableExpression())
		case p.isWord("STDIN", "STDOUT", "PROGRAM"):
			dir.keyword()
			if p.is(token.STRING) {
				dir.take(segment.Literal)
			}
		case p.isIdent():
			dir.add(p.parseTableExpression())
		default:
			p.errorf(ErrExpectedExpression, p.describe())
		}
		b.add(dir.build(segment.FromClause))
	} else {
		p.errorf(ErrUnexpectedToken, p.describe(), "FROM")
	}
	if !p.atStatementEnd() {
		b.add(p.parseRestAsOption())
	}
	return b.build(segment.CopyStatement)
}

func (p *Parser) parseUnload() *segment.Segment {
	b := p.start()
	b.keyword() // UNLOAD
	if p.is(token.LPAREN) {
		q := p.start()
		q.symbol()
		if p.is(token.STRING) {
			q.take(segment.Literal)
		} else {
			p.errorf(ErrUnexpectedToken, p.describe(), "'query'")
		}
		q.expectSymbol(token.RPAREN)
		b.add(q.build(segment.Bracketed))
	} else {
		p.errorf(ErrUnexpectedToken, p.describe(), "(")
	}
	if b.expectKeyword("TO") && p.is(token.STRING) {
		b.take(segment.Literal)
	}
	if !p.atStatementEnd() {
		b.add(p.parseRestAsOption())
	}
	return b.build(segment.UnloadStatement)
}

// ---------- DROP / ALTER / RENAME ----------

func (p *Parser) parseDrop() *segment.Segment {
	b := p.start()
	b.keyword() // DROP
	for p.isWord("TEMPORARY", "TEMP", "EXTERNAL", "MATERIALIZED", "FOREIGN") {
		b.keyword()
	}
	var kind segment.Kind
	switch {
	case p.isWord("TABLE"):
		kind = segment.DropTableStatement
	case p.isWord("VIEW"):
		kind = segment.DropViewStatement
	case p.isWord("FUNCTION", "MACRO", "PROCEDURE"):
		return p.parseOpaqueRest(b, segment.DropFunctionStatement)
	case p.isWord("SCHEMA", "DATABASE"):
		return p.parseOpaqueRest(b, segment.DropSchemaStatement)
	default:
		return p.parseOpaqueRest(b, segment.OtherDDLStatement)
	}
	b.keyword()
	b.keywords("IF", "EXISTS")
	for {
		b.add(p.parseTableName())
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	b.optKeyword("CASCADE", "RESTRICT", "PURGE")
	return b.build(kind)
}

func (p *Parser) parseAlter() *segment.Segment {
	b := p.start()
	b.keyword() // ALTER
	b.optKeyword("MATERIALIZED", "EXTERNAL")
	if !b.optKeyword("TABLE", "VIEW") {
		return p.parseOpaqueRest(b, segment.OtherDDLStatement)
	}
	b.keywords("IF", "EXISTS")
	b.add(p.parseTableName())
	for !p.atStatementEnd() {
		switch {
		case p.isWord("RENAME") && p.peekWord(1, "TO", "AS"):
			b.keyword()
			b.keyword()
			b.add(p.parseTableName())
		case p.isWord("SWAP") && p.peekWord(1, "WITH"):
			b.keyword()
			b.keyword()
			b.add(p.parseTableName())
		case p.isWord("EXCHANGE"):
			b.keyword()
			for !p.atStatementEnd() && !p.isWord("WITH") {
				if p.is(token.LPAREN) {
					b.add(p.balanced())
					continue
				}
				b.generic()
			}
			if b.keywords("WITH", "TABLE") {
				b.add(p.parseTableName())
			}
		case p.is(token.LPAREN):
			b.add(p.balanced())
		default:
			b.generic()
		}
	}
	return b.build(segment.AlterTableStatement)
}

func (p *Parser) parseRename() *segment.Segment {
	b := p.start()
	b.keyword() // RENAME
	b.expectKeyword("TABLE")
	for {
		b.add(p.parseTableName())
		if !b.expectKeyword("TO") {
			break
		}
		b.add(p.parseTableName())
		if !p.is(token.COMMA) {
			break
		}
		b.symbol()
	}
	return b.build(segment.RenameStatement)
}
