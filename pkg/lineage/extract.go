package lineage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/metadata"
	"github.com/leapstack-labs/sqllineage/pkg/model"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
)

// scope is what an enclosing scope passes down to the extraction of a
// nested one: the CTEs visible to it, the dataset it writes to and the
// columns declared for that dataset.
type scope struct {
	ctes         []model.SubQuery
	write        []model.Dataset
	writeColumns []model.Column
}

// source is a dataset read in FROM or JOIN position, with the alias it is
// read under.
type source struct {
	ds    model.Dataset
	alias string
}

// subquery is a nested query registered for extraction once the enclosing
// scope is done.
type subquery struct {
	ds    model.SubQuery
	query *segment.Segment
}

type barrier struct {
	columns, tables int
}

// selectScope accumulates the clauses of one SELECT-shaped scope until
// column resolution runs.
type selectScope struct {
	columns    []model.Column
	tables     []source
	barriers   []barrier
	subqueries []subquery
}

// analyzer extracts lineage from the statements of one run.
type analyzer struct {
	ctx      context.Context
	newGraph func() graph.Operator
	meta     *metadata.Session
	schema   model.Schema
	lateral  bool
	logger   *slog.Logger
	opts     parser.Options

	// sql is the statement being analyzed, for error reports.
	sql string
}

func (a *analyzer) newHolder(sc scope) *holder {
	h := &holder{g: a.newGraph()}
	for _, c := range sc.ctes {
		h.addCTE(c)
	}
	for _, w := range sc.write {
		h.addWrite(w)
	}
	if len(sc.writeColumns) > 0 {
		h.addWriteColumns(sc.writeColumns...)
	}
	return h
}

func (a *analyzer) malformed(reason string) error {
	return &MalformedStatementError{Reason: reason, SQL: a.sql}
}

// columns asks the metadata provider for the columns of t.
func (a *analyzer) columns(t model.Table) ([]string, error) {
	if a.meta == nil {
		return nil, nil
	}
	cols, err := a.meta.Columns(a.ctx, t)
	if err != nil {
		return nil, &MetadataError{Schema: t.Schema.String(), Table: t.Name, Err: err}
	}
	if cols == nil && a.meta.HasBase() {
		a.logger.Warn("no metadata for table", "table", t.String())
	}
	return cols, nil
}

// table builds a table from a possibly qualified name, applying the
// default schema.
func (a *analyzer) table(name string) (model.Table, error) {
	t, err := model.NewTable(name, a.schema)
	if err != nil {
		return model.Table{}, a.malformed(err.Error())
	}
	return t, nil
}

// tableRef builds a table from a TableReference segment.
func (a *analyzer) tableRef(ref *segment.Segment) (model.Table, error) {
	if ref == nil {
		return model.Table{}, a.malformed("table name expected")
	}
	var parts []string
	for _, c := range ref.Code() {
		if c.Is(segment.Identifier, segment.QuotedIdentifier) {
			parts = append(parts, c.Raw())
		}
	}
	if len(parts) == 0 {
		return model.Table{}, a.malformed("table name expected, found " + ref.Raw())
	}
	return a.table(strings.Join(parts, "."))
}

// extractStatement dispatches a statement tree to the extractor of its
// kind.
//
//nolint:gocyclo // one case per statement kind
func (a *analyzer) extractStatement(tree *segment.Segment) (*holder, error) {
	sc := scope{}
	switch tree.Kind() {
	case segment.SelectStatement, segment.SetExpression, segment.WithCompoundStatement, segment.ValuesClause:
		return a.extractQuery(tree, sc)
	case segment.BracketedStatement:
		return a.extractQuery(tree.Child(segment.Bracketed), sc)
	case segment.InsertStatement, segment.CreateTableStatement, segment.CreateViewStatement:
		return a.extractCreateInsert(tree, sc)
	case segment.MergeStatement:
		return a.extractMerge(tree, sc)
	case segment.UpdateStatement:
		return a.extractUpdate(tree, sc)
	case segment.CopyStatement:
		return a.extractCopy(tree)
	case segment.UnloadStatement:
		return a.extractUnload(tree)
	case segment.DropTableStatement, segment.DropViewStatement:
		return a.extractDrop(tree)
	case segment.AlterTableStatement, segment.RenameStatement:
		return a.extractRename(tree)
	case segment.DeleteStatement, segment.TruncateStatement, segment.RefreshStatement,
		segment.CacheStatement, segment.UncacheStatement, segment.ShowStatement,
		segment.DescribeStatement, segment.UseStatement, segment.DeclareStatement,
		segment.AnalyzeStatement, segment.AddJarStatement, segment.CreateFunctionStatement,
		segment.DropFunctionStatement, segment.SetStatement:
		return a.newHolder(sc), nil
	}
	return nil, &UnsupportedStatementError{Kind: tree.Kind(), SQL: a.sql}
}

// extractQuery extracts a query shaped segment as one scope.
func (a *analyzer) extractQuery(seg *segment.Segment, sc scope) (*holder, error) {
	switch seg.Kind() {
	case segment.SelectStatement, segment.SetExpression:
		return a.extractSelect(seg, sc)
	case segment.WithCompoundStatement:
		return a.extractWith(seg, sc)
	case segment.Bracketed:
		if _, q := queryIn(seg); q != nil {
			return a.extractQuery(q, sc)
		}
	}
	return a.newHolder(sc), nil
}

func (a *analyzer) extractSelect(stmt *segment.Segment, sc scope) (*holder, error) {
	h := a.newHolder(sc)
	s := &selectScope{}
	if stmt.Is(segment.SetExpression) {
		for i, branch := range setBranches(stmt) {
			if i > 0 {
				s.barriers = append(s.barriers, barrier{columns: len(s.columns), tables: len(s.tables)})
			}
			switch branch.Kind() {
			case segment.SelectStatement:
				if err := a.scanSelect(branch, h, s); err != nil {
					return nil, err
				}
			case segment.WithCompoundStatement:
				child, err := a.extractWith(branch, scope{ctes: h.cte(), write: h.write(), writeColumns: h.writeColumns()})
				if err != nil {
					return nil, err
				}
				h.merge(child)
			}
		}
		for _, c := range stmt.ChildrenOf(segment.OrderByClause, segment.LimitClause) {
			s.subqueries = append(s.subqueries, subqueriesIn(c)...)
		}
	} else if err := a.scanSelect(stmt, h, s); err != nil {
		return nil, err
	}
	if err := a.resolveColumns(h, s); err != nil {
		return nil, err
	}
	if err := a.extractSubqueries(h, s.subqueries); err != nil {
		return nil, err
	}
	if err := h.expandWildcard(a.columns); err != nil {
		return nil, err
	}
	return h, nil
}

// setBranches flattens the operands of a set expression, unwrapping
// parenthesized and nested set expressions.
func setBranches(set *segment.Segment) []*segment.Segment {
	var out []*segment.Segment
	for _, c := range set.Code() {
		switch c.Kind() {
		case segment.SetOperator, segment.OrderByClause, segment.LimitClause:
			continue
		case segment.Bracketed:
			if _, q := queryIn(c); q != nil {
				c = q
			}
		}
		if c.Is(segment.SetExpression) {
			out = append(out, setBranches(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// scanSelect collects the tables, output columns and subqueries of one
// SELECT statement into s.
func (a *analyzer) scanSelect(stmt *segment.Segment, h *holder, s *selectScope) error {
	for _, c := range stmt.Code() {
		switch c.Kind() {
		case segment.SelectClause:
			if err := a.swapPartitions(c, h); err != nil {
				return err
			}
			for _, el := range c.ChildrenOf(segment.SelectClauseElement) {
				col, err := a.columnOf(el, h.cte())
				if err != nil {
					return err
				}
				s.columns = append(s.columns, col)
			}
			s.subqueries = append(s.subqueries, subqueriesIn(c)...)
		case segment.IntoClause:
			if ref := c.Child(segment.TableReference); ref != nil {
				t, err := a.tableRef(ref)
				if err != nil {
					return err
				}
				h.addWrite(t)
			}
		case segment.FromClause:
			for _, fe := range c.ChildrenOf(segment.FromExpression) {
				if err := a.fromExpression(fe, h, s); err != nil {
					return err
				}
			}
		default:
			s.subqueries = append(s.subqueries, subqueriesIn(c)...)
		}
	}
	return nil
}

// swapPartitions handles SELECT SWAP_PARTITIONS_BETWEEN_TABLES(src, from,
// to, tgt), which moves partitions from src into tgt.
func (a *analyzer) swapPartitions(clause *segment.Segment, h *holder) error {
	el := clause.Child(segment.SelectClauseElement)
	if el == nil {
		return nil
	}
	fn := el.Child(segment.Function)
	if fn == nil || !strings.EqualFold(fn.Child(segment.FunctionName).Raw(), "swap_partitions_between_tables") {
		return nil
	}
	var args []*segment.Segment
	for _, c := range fn.Child(segment.Bracketed).Code() {
		if !c.Is(segment.Symbol) {
			args = append(args, c)
		}
	}
	if len(args) != 4 {
		return a.malformed("swap_partitions_between_tables expects 4 arguments")
	}
	src, err := a.table(stripQuotes(args[0].Raw()))
	if err != nil {
		return err
	}
	tgt, err := a.table(stripQuotes(args[3].Raw()))
	if err != nil {
		return err
	}
	h.addRead(src, src.AliasName())
	h.addWrite(tgt)
	return nil
}

func (a *analyzer) fromExpression(fe *segment.Segment, h *holder, s *selectScope) error {
	for _, c := range fe.Code() {
		switch c.Kind() {
		case segment.FromExpressionElement:
			if err := a.fromElement(c, h, s); err != nil {
				return err
			}
		case segment.JoinClause:
			if err := a.fromElement(c.Child(segment.FromExpressionElement), h, s); err != nil {
				return err
			}
			if on := c.Child(segment.JoinOnCondition); on != nil {
				s.subqueries = append(s.subqueries, subqueriesIn(on)...)
			}
		}
	}
	return nil
}

// fromElement resolves one FROM item to the dataset it reads. Table
// functions and VALUES lists read no dataset.
func (a *analyzer) fromElement(el *segment.Segment, h *holder, s *selectScope) error {
	te := el.Child(segment.TableExpression)
	if te == nil {
		return nil
	}
	code := te.Code()
	if len(code) == 0 {
		return nil
	}
	alias := aliasOf(el.Child(segment.AliasExpression))
	switch inner := code[0]; inner.Kind() {
	case segment.TableReference:
		src, err := a.resolveTable(inner, alias, h)
		if err != nil {
			return err
		}
		s.tables = append(s.tables, src)
	case segment.Bracketed:
		if b, q := queryIn(inner); q != nil {
			sq := model.NewSubQuery(b.Raw(), alias)
			s.tables = append(s.tables, source{ds: sq, alias: sq.Alias})
			s.subqueries = append(s.subqueries, subquery{ds: sq, query: q})
			return nil
		}
		if fe := inner.Child(segment.FromExpression); fe != nil {
			return a.fromExpression(fe, h, s)
		}
	case segment.FileReference, segment.StorageLocation:
		ic := inner.Code()
		if len(ic) == 0 {
			return a.malformed("empty location reference")
		}
		p := model.NewPath(stripQuotes(ic[len(ic)-1].Raw()))
		s.tables = append(s.tables, source{ds: p})
	}
	return nil
}

// resolveTable turns a table reference into a dataset. An unqualified name
// matching a CTE in scope is that CTE.
func (a *analyzer) resolveTable(ref *segment.Segment, alias string, h *holder) (source, error) {
	t, err := a.tableRef(ref)
	if err != nil {
		return source{}, err
	}
	if len(nameParts(ref)) == 1 {
		for _, cte := range h.cte() {
			if strings.EqualFold(cte.Alias, t.Name) {
				if alias == "" {
					alias = t.Name
				}
				return source{ds: cte, alias: alias}, nil
			}
		}
	}
	t = t.WithAlias(alias)
	return source{ds: t, alias: t.AliasName()}, nil
}

// extractSubqueries extracts each registered subquery as its own scope
// writing to itself and merges the result.
func (a *analyzer) extractSubqueries(h *holder, subs []subquery) error {
	seen := map[string]bool{}
	for _, sq := range subs {
		if seen[sq.ds.Key()] {
			continue
		}
		seen[sq.ds.Key()] = true
		child, err := a.extractQuery(sq.query, scope{ctes: h.cte(), write: []model.Dataset{sq.ds}})
		if err != nil {
			return err
		}
		h.merge(child)
	}
	return nil
}
