package lineage

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/model"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
)

// extractWith handles WITH: every CTE becomes a SubQuery visible to the
// body and to the CTEs after it. CTE bodies are extracted once the body is
// done, each writing to its own SubQuery.
func (a *analyzer) extractWith(stmt *segment.Segment, sc scope) (*holder, error) {
	h := a.newHolder(sc)
	var bodies []cteParts
	for _, c := range stmt.Code() {
		var (
			child *holder
			err   error
		)
		switch c.Kind() {
		case segment.CommonTableExpression:
			var body cteParts
			if body, err = a.cte(c); err != nil {
				return nil, err
			}
			h.addCTE(body.sq)
			bodies = append(bodies, body)
			continue
		case segment.SelectStatement, segment.SetExpression, segment.Bracketed, segment.ValuesClause:
			child, err = a.extractQuery(c, scope{ctes: h.cte(), write: h.write(), writeColumns: h.writeColumns()})
		case segment.InsertStatement:
			child, err = a.extractCreateInsert(c, scope{ctes: h.cte()})
		case segment.UpdateStatement:
			child, err = a.extractUpdate(c, scope{ctes: h.cte()})
		case segment.MergeStatement:
			child, err = a.extractMerge(c, scope{ctes: h.cte()})
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		h.merge(child)
	}
	for _, b := range bodies {
		if b.query == nil {
			continue
		}
		child, err := a.extractQuery(b.query, scope{ctes: h.cte(), write: []model.Dataset{b.sq}, writeColumns: b.columns})
		if err != nil {
			return nil, err
		}
		h.merge(child)
	}
	return h, nil
}

type cteParts struct {
	sq      model.SubQuery
	query   *segment.Segment
	columns []model.Column
}

// cte reads the name, optional column list and body of a common table
// expression.
func (a *analyzer) cte(c *segment.Segment) (cteParts, error) {
	var (
		name    string
		body    *segment.Segment
		columns []model.Column
		afterAs bool
	)
	for _, part := range c.Code() {
		switch {
		case part.Is(segment.Identifier, segment.QuotedIdentifier) && name == "":
			name = model.Unquote(part.Raw())
		case part.IsKeyword("AS"):
			afterAs = true
		case part.Is(segment.Bracketed) && !afterAs:
			columns = columnList(part)
		case part.Is(segment.Bracketed):
			body = part
		}
	}
	if name == "" || body == nil {
		return cteParts{}, a.malformed("common table expression without name or body")
	}
	out := cteParts{sq: model.NewSubQuery(body.Raw(), name), columns: columns}
	if _, q := queryIn(body); q != nil {
		out.query = q
	}
	return out, nil
}

// columnList reads a parenthesized list of column names or definitions.
func columnList(b *segment.Segment) []model.Column {
	var cols []model.Column
	for _, c := range b.Code() {
		switch c.Kind() {
		case segment.ColumnReference:
			cols = append(cols, model.NewColumn(refSource(c).Name))
		case segment.ColumnDefinition:
			if id := c.Child(segment.Identifier, segment.QuotedIdentifier); id != nil {
				cols = append(cols, model.NewColumn(model.Unquote(id.Raw())))
			}
		}
	}
	return cols
}

// extractCreateInsert handles INSERT, CREATE TABLE and CREATE VIEW. The
// table after INTO, OVERWRITE, TABLE or VIEW is written; the one after LIKE
// or CLONE is read; the query, if any, is extracted against the target and
// its declared columns.
//
//nolint:gocyclo // statement shapes differ per dialect
func (a *analyzer) extractCreateInsert(stmt *segment.Segment, sc scope) (*holder, error) {
	h := a.newHolder(sc)
	var targetFlag, sourceFlag, targetSeen bool
	query := func(q *segment.Segment) error {
		child, err := a.extractQuery(q, scope{ctes: h.cte(), write: h.write(), writeColumns: h.writeColumns()})
		if err != nil {
			return err
		}
		h.merge(child)
		return nil
	}
	for _, c := range stmt.Code() {
		switch c.Kind() {
		case segment.Keyword:
			switch strings.ToUpper(c.Raw()) {
			case "INTO", "OVERWRITE", "TABLE", "VIEW", "DIRECTORY":
				if targetSeen {
					sourceFlag = true
				} else {
					targetFlag = true
				}
			case "LIKE", "CLONE":
				sourceFlag = true
			}
		case segment.TableReference:
			t, err := a.tableRef(c)
			if err != nil {
				return nil, err
			}
			switch {
			case sourceFlag:
				h.addRead(t, t.AliasName())
			case !targetSeen:
				h.addWrite(t)
				targetSeen = true
			}
			targetFlag, sourceFlag = false, false
		case segment.Literal:
			if targetFlag && !targetSeen && !isNumber(c.Raw()) {
				h.addWrite(model.NewPath(stripQuotes(c.Raw())))
				targetSeen = true
				targetFlag = false
			}
		case segment.Bracketed:
			switch {
			case isQuery(c):
				if err := query(c); err != nil {
					return nil, err
				}
			case c.Child(segment.Keyword) != nil && c.Child(segment.Keyword).IsKeyword("LIKE"):
				t, err := a.tableRef(c.Child(segment.TableReference))
				if err != nil {
					return nil, err
				}
				h.addRead(t, t.AliasName())
			default:
				if cols := columnList(c); len(cols) > 0 {
					h.addWriteColumns(cols...)
				}
			}
		case segment.SelectStatement, segment.SetExpression, segment.WithCompoundStatement:
			if err := query(c); err != nil {
				return nil, err
			}
		case segment.ValuesClause:
			for _, sub := range subqueriesIn(c) {
				if err := query(sub.query); err != nil {
					return nil, err
				}
			}
		}
	}
	if !targetSeen {
		return nil, a.malformed("no target table")
	}
	return h, nil
}

func isQuery(b *segment.Segment) bool {
	_, q := queryIn(b)
	return q != nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// extractMerge handles MERGE INTO target USING source ON ... WHEN ...: the
// target is written, the source is read, and the column pairs of UPDATE SET
// and INSERT (...) VALUES (...) actions become column lineage.
func (a *analyzer) extractMerge(stmt *segment.Segment, sc scope) (*holder, error) {
	h := a.newHolder(sc)
	var (
		target              model.Table
		direct              model.Dataset
		targetAlias, srcAls string
		using, hasTarget    bool
	)
	code := stmt.Code()
	for i, c := range code {
		var alias string
		if i+1 < len(code) && code[i+1].Is(segment.AliasExpression) {
			alias = aliasOf(code[i+1])
		}
		switch {
		case c.IsKeyword("USING"):
			using = true
		case c.Is(segment.TableReference) && !using:
			t, err := a.tableRef(c)
			if err != nil {
				return nil, err
			}
			h.addWrite(t)
			target, targetAlias, hasTarget = t, alias, true
		case c.Is(segment.TableReference):
			t, err := a.tableRef(c)
			if err != nil {
				return nil, err
			}
			t = t.WithAlias(alias)
			h.addRead(t, t.AliasName())
			direct, srcAls = t, t.AliasName()
		case c.Is(segment.Bracketed) && using:
			b, q := queryIn(c)
			if q == nil {
				return nil, a.malformed("MERGE USING expects a table or a subquery")
			}
			sq := model.NewSubQuery(b.Raw(), alias)
			h.addRead(sq, sq.Alias)
			child, err := a.extractQuery(q, scope{ctes: h.cte(), write: []model.Dataset{sq}})
			if err != nil {
				return nil, err
			}
			h.merge(child)
			direct, srcAls = sq, sq.Alias
		}
	}
	if !hasTarget {
		return nil, a.malformed("MERGE without target table")
	}
	if direct == nil {
		return nil, a.malformed("MERGE without source")
	}
	// a qualifier naming the target refers to the target, anything else to
	// the source
	parentOf := func(src model.SourceColumn) model.Dataset {
		q := strings.ToLower(src.Qualifier)
		if q != "" && q != strings.ToLower(srcAls) &&
			(q == strings.ToLower(targetAlias) || q == strings.ToLower(target.Name) || q == target.String()) {
			return target
		}
		return direct
	}
	link := func(name string, expr *segment.Segment) error {
		srcs, err := a.sourcesOf(expr, h.cte())
		if err != nil {
			return err
		}
		tgt := model.NewColumn(name).WithOnlyParent(target)
		for _, s := range srcs {
			h.addColumnLineage(model.NewColumn(s.Name).WithOnlyParent(parentOf(s)), tgt)
		}
		return nil
	}
	match := stmt.Child(segment.MergeMatch)
	for _, when := range match.ChildrenOf(segment.MergeWhenMatchedClause, segment.MergeWhenNotMatchedClause) {
		if upd := when.Child(segment.MergeUpdateClause); upd != nil {
			for _, set := range upd.Child(segment.SetClauseList).ChildrenOf(segment.SetClause) {
				name, expr := setPair(set)
				if name == "" || expr == nil {
					continue
				}
				if err := link(name, expr); err != nil {
					return nil, err
				}
			}
		}
		if ins := when.Child(segment.MergeInsertClause); ins != nil {
			lists := ins.ChildrenOf(segment.Bracketed)
			if len(lists) != 2 {
				continue
			}
			names, values := listItems(lists[0]), listItems(lists[1])
			for j := 0; j < len(names) && j < len(values); j++ {
				if !names[j].Is(segment.ColumnReference) {
					continue
				}
				if err := link(refSource(names[j]).Name, values[j]); err != nil {
					return nil, err
				}
			}
		}
	}
	return h, nil
}

// setPair splits "col = expr" into the assigned column name and the
// expression.
func setPair(set *segment.Segment) (string, *segment.Segment) {
	code := set.Code()
	if len(code) < 3 || !code[0].Is(segment.ColumnReference) {
		return "", nil
	}
	return refSource(code[0]).Name, code[len(code)-1]
}

// listItems returns the elements of a parenthesized list.
func listItems(b *segment.Segment) []*segment.Segment {
	var out []*segment.Segment
	for _, c := range b.Code() {
		if !c.Is(segment.Symbol) {
			out = append(out, c)
		}
	}
	return out
}

// extractUpdate handles UPDATE: the updated table is written, tables joined
// to it or listed in FROM are read, and SET pairs become column lineage.
func (a *analyzer) extractUpdate(stmt *segment.Segment, sc scope) (*holder, error) {
	h := a.newHolder(sc)
	var (
		target      model.Dataset
		targetAlias string
		reads       []source
		subs        []subquery
		sets        *segment.Segment
	)
	code := stmt.Code()
	for i, c := range code {
		switch c.Kind() {
		case segment.TableReference:
			if target != nil {
				continue
			}
			t, err := a.tableRef(c)
			if err != nil {
				return nil, err
			}
			target = t
			if i+1 < len(code) && code[i+1].Is(segment.AliasExpression) {
				targetAlias = aliasOf(code[i+1])
			}
		case segment.FromExpression:
			s := &selectScope{}
			if err := a.fromExpression(c, h, s); err != nil {
				return nil, err
			}
			for _, t := range s.tables {
				if target == nil {
					target, targetAlias = t.ds, t.alias
					continue
				}
				reads = append(reads, t)
			}
			subs = append(subs, s.subqueries...)
		case segment.SetClauseList:
			sets = c
			subs = append(subs, subqueriesIn(c)...)
		case segment.FromClause:
			s := &selectScope{}
			for _, fe := range c.ChildrenOf(segment.FromExpression) {
				if err := a.fromExpression(fe, h, s); err != nil {
					return nil, err
				}
			}
			reads = append(reads, s.tables...)
			subs = append(subs, s.subqueries...)
		case segment.WhereClause:
			subs = append(subs, subqueriesIn(c)...)
		}
	}
	if target == nil {
		return nil, a.malformed("UPDATE without target table")
	}
	h.addWrite(target)
	for _, r := range reads {
		h.addRead(r.ds, r.alias)
	}

	aliases := h.aliasMap(reads)
	datasets := visible(reads, aliases)
	if len(datasets) == 0 {
		datasets = []model.Dataset{target}
	}
	for _, name := range []string{targetAlias, target.String()} {
		if _, ok := aliases[strings.ToLower(name)]; name != "" && !ok {
			aliases[strings.ToLower(name)] = target
		}
	}
	if t, ok := target.(model.Table); ok {
		if _, exists := aliases[strings.ToLower(t.Name)]; !exists {
			aliases[strings.ToLower(t.Name)] = target
		}
	}
	for _, set := range sets.ChildrenOf(segment.SetClause) {
		name, expr := setPair(set)
		if name == "" || expr == nil {
			continue
		}
		srcs, err := a.sourcesOf(expr, h.cte())
		if err != nil {
			return nil, err
		}
		tgt := model.NewColumn(name).WithOnlyParent(target)
		for _, s := range srcs {
			cols, err := a.toSourceColumns(s, aliases, datasets)
			if err != nil {
				return nil, err
			}
			for _, col := range cols {
				h.addColumnLineage(col, tgt)
			}
		}
	}
	if err := a.extractSubqueries(h, subs); err != nil {
		return nil, err
	}
	return h, nil
}

// extractCopy handles COPY [INTO] target FROM source and COPY table TO
// location.
func (a *analyzer) extractCopy(stmt *segment.Segment) (*holder, error) {
	h := a.newHolder(scope{})
	var (
		table model.Dataset
		query *segment.Segment
	)
	for _, c := range stmt.Code() {
		switch c.Kind() {
		case segment.TableReference:
			t, err := a.tableRef(c)
			if err != nil {
				return nil, err
			}
			table = t
		case segment.TableExpression:
			d, err := a.locationOf(c)
			if err != nil {
				return nil, err
			}
			table = d
		case segment.Bracketed:
			if _, q := queryIn(c); q != nil {
				query = q
			}
		}
	}
	dir := stmt.Child(segment.FromClause)
	if table == nil && query == nil || dir == nil {
		return nil, a.malformed("COPY without table or direction")
	}
	var other model.Dataset
	var otherQuery *segment.Segment
	for _, c := range dir.Code() {
		switch c.Kind() {
		case segment.TableExpression:
			d, err := a.locationOf(c)
			if err != nil {
				return nil, err
			}
			other = d
		case segment.Bracketed:
			if _, q := queryIn(c); q != nil {
				otherQuery = q
			}
		case segment.Literal:
			other = model.NewPath(stripQuotes(c.Raw()))
		}
	}
	if dir.Code()[0].IsKeyword("TO") {
		if table != nil {
			h.addRead(table, aliasName(table))
		}
		if query != nil {
			if err := a.mergeQuery(h, query); err != nil {
				return nil, err
			}
		}
		if other != nil {
			h.addWrite(other)
		}
		return h, nil
	}
	if table == nil {
		return nil, a.malformed("COPY FROM without target table")
	}
	h.addWrite(table)
	if other != nil {
		h.addRead(other, aliasName(other))
	}
	if otherQuery != nil {
		if err := a.mergeQuery(h, otherQuery); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// mergeQuery extracts q as an anonymous scope and marks what it reads as
// read by h.
func (a *analyzer) mergeQuery(h *holder, q *segment.Segment) error {
	child, err := a.extractQuery(q, scope{})
	if err != nil {
		return err
	}
	h.merge(child)
	return nil
}

// locationOf resolves the dataset of a table expression used as a COPY
// endpoint.
func (a *analyzer) locationOf(te *segment.Segment) (model.Dataset, error) {
	for _, c := range te.Code() {
		switch c.Kind() {
		case segment.TableReference:
			return a.tableRef(c)
		case segment.FileReference, segment.StorageLocation:
			ic := c.Code()
			return model.NewPath(stripQuotes(ic[len(ic)-1].Raw())), nil
		}
	}
	return nil, nil
}

func aliasName(d model.Dataset) string {
	if al, ok := d.(model.Aliased); ok {
		return al.AliasName()
	}
	return ""
}

// extractUnload handles UNLOAD ('query') TO 'location': the quoted query is
// analyzed as a statement of its own and the location is written.
func (a *analyzer) extractUnload(stmt *segment.Segment) (*holder, error) {
	h := a.newHolder(scope{})
	b := stmt.Child(segment.Bracketed)
	lit := b.Child(segment.Literal)
	if lit == nil {
		return nil, a.malformed("UNLOAD expects a quoted query")
	}
	inner := strings.ReplaceAll(stripQuotes(lit.Raw()), "''", "'")
	stmts, err := a.parse(inner)
	if err != nil {
		return nil, err
	}
	for _, s := range stmts {
		child, err := a.analyzeTree(s)
		if err != nil {
			return nil, err
		}
		h.merge(child)
	}
	for _, c := range stmt.Code() {
		if c.Is(segment.Literal) {
			h.addWrite(model.NewPath(stripQuotes(c.Raw())))
		}
	}
	return h, nil
}

// extractDrop tags every dropped table.
func (a *analyzer) extractDrop(stmt *segment.Segment) (*holder, error) {
	h := a.newHolder(scope{})
	for _, ref := range stmt.ChildrenOf(segment.TableReference) {
		t, err := a.tableRef(ref)
		if err != nil {
			return nil, err
		}
		h.addDrop(t)
	}
	return h, nil
}

// extractRename handles ALTER TABLE ... RENAME TO, RENAME TABLE a TO b, and
// the EXCHANGE PARTITION / SWAP WITH forms, which move data from the
// second table into the first.
func (a *analyzer) extractRename(stmt *segment.Segment) (*holder, error) {
	h := a.newHolder(scope{})
	var (
		tables           []model.Table
		rename, exchange bool
	)
	for _, c := range stmt.Code() {
		switch {
		case c.Is(segment.TableReference):
			t, err := a.tableRef(c)
			if err != nil {
				return nil, err
			}
			tables = append(tables, t)
		case c.IsKeyword("RENAME"):
			rename = true
		case c.IsKeyword("EXCHANGE", "SWAP"):
			exchange = true
		}
	}
	switch {
	case rename && len(tables)%2 == 0:
		for i := 0; i < len(tables); i += 2 {
			h.addRename(tables[i], tables[i+1])
		}
	case exchange && len(tables) == 2:
		h.addWrite(tables[0])
		h.addRead(tables[1], tables[1].AliasName())
	}
	return h, nil
}
