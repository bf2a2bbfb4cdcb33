package lineage

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// holder accumulates the lineage of one scope: a statement body, a CTE or a
// subquery. Roles are vertex tags on its graph, so merging two holders is a
// graph union.
type holder struct {
	g graph.Operator
}

func (h *holder) datasets(tag model.Tag) []model.Dataset {
	var out []model.Dataset
	for _, v := range h.g.Vertices(tag) {
		if d, ok := v.(model.Dataset); ok {
			out = append(out, d)
		}
	}
	return out
}

func (h *holder) read() []model.Dataset  { return h.datasets(model.TagRead) }
func (h *holder) write() []model.Dataset { return h.datasets(model.TagWrite) }
func (h *holder) drop() []model.Dataset  { return h.datasets(model.TagDrop) }

func (h *holder) cte() []model.SubQuery {
	var out []model.SubQuery
	for _, v := range h.g.Vertices(model.TagCTE) {
		if sq, ok := v.(model.SubQuery); ok {
			out = append(out, sq)
		}
	}
	return out
}

// rename returns the (old, new) table pairs.
func (h *holder) rename() [][2]model.Dataset {
	var out [][2]model.Dataset
	for _, e := range h.g.Edges(model.EdgeRename) {
		src, ok1 := e.Source.(model.Dataset)
		tgt, ok2 := e.Target.(model.Dataset)
		if ok1 && ok2 {
			out = append(out, [2]model.Dataset{src, tgt})
		}
	}
	return out
}

// addRead records d as read under alias. The same dataset may be read
// several times under different aliases.
func (h *holder) addRead(d model.Dataset, alias string) {
	h.g.AddVertex(d, model.TagRead)
	if alias != "" {
		h.g.AddEdge(d, model.Alias(alias), model.EdgeHasAlias, nil)
	}
}

func (h *holder) addWrite(d model.Dataset) { h.g.AddVertex(d, model.TagWrite) }
func (h *holder) addCTE(sq model.SubQuery) { h.g.AddVertex(sq, model.TagCTE) }
func (h *holder) addDrop(d model.Dataset)  { h.g.AddVertex(d, model.TagDrop) }

func (h *holder) addRename(from, to model.Table) {
	h.g.AddEdge(from, to, model.EdgeRename, nil)
}

// targetTable is the dataset this scope writes to: the first write that is
// not also read, falling back to the first write.
func (h *holder) targetTable() model.Dataset {
	writes := h.write()
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if !h.g.HasTag(w, model.TagRead) {
			return w
		}
	}
	return writes[0]
}

// writeColumns returns the columns of the target table in declaration
// order.
func (h *holder) writeColumns() []model.Column {
	tgt := h.targetTable()
	if tgt == nil {
		return nil
	}
	edges := h.g.EdgesOf(tgt, graph.Out, model.EdgeHasColumn)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Index() < edges[j].Index() })
	cols := make([]model.Column, 0, len(edges))
	for _, e := range edges {
		if c, ok := e.Target.(model.Column); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// addWriteColumns declares the target columns of the scope, in order.
func (h *holder) addWriteColumns(cols ...model.Column) {
	tgt := h.targetTable()
	if tgt == nil {
		return
	}
	for i, c := range cols {
		h.g.AddEdge(tgt, c.WithOnlyParent(tgt), model.EdgeHasColumn, map[string]any{model.AttrIndex: i})
	}
}

func (h *holder) addColumnLineage(src, tgt model.Column) {
	h.g.AddEdge(src, tgt, model.EdgeLineage, nil)
	if p := tgt.Parent(); p != nil {
		h.g.AddEdge(p, tgt, model.EdgeHasColumn, nil)
	}
	if p := src.Parent(); p != nil {
		h.g.AddEdge(p, src, model.EdgeHasColumn, nil)
	}
}

// tableColumns returns the known columns of d, wildcard excluded.
func (h *holder) tableColumns(d model.Dataset) []model.Column {
	var out []model.Column
	for _, e := range h.g.EdgesOf(d, graph.Out, model.EdgeHasColumn) {
		if c, ok := e.Target.(model.Column); ok && !c.IsWildcard() {
			out = append(out, c)
		}
	}
	return out
}

// sourceColumns returns the columns tgt is directly derived from.
func (h *holder) sourceColumns(tgt model.Column) []model.Column {
	var out []model.Column
	for _, e := range h.g.EdgesOf(tgt, graph.In, model.EdgeLineage) {
		if c, ok := e.Source.(model.Column); ok {
			out = append(out, c)
		}
	}
	return out
}

// aliasMap maps every name a dataset of group can be referred to by, in
// lower case, to that dataset: the aliases it was read under, and for
// tables the bare and qualified name.
func (h *holder) aliasMap(group []source) map[string]model.Dataset {
	keys := make(map[string]model.Dataset, len(group))
	for _, s := range group {
		keys[s.ds.Key()] = s.ds
	}
	m := make(map[string]model.Dataset)
	for _, e := range h.g.Edges(model.EdgeHasAlias) {
		if d, ok := keys[e.Source.Key()]; ok {
			m[strings.ToLower(e.Target.String())] = d
		}
	}
	for _, s := range group {
		if t, ok := s.ds.(model.Table); ok {
			m[strings.ToLower(t.Name)] = s.ds
		}
	}
	for _, s := range group {
		if t, ok := s.ds.(model.Table); ok {
			m[t.String()] = s.ds
		}
	}
	return m
}

// columnLookup returns the real columns of a table, or nil when unknown.
type columnLookup func(model.Table) ([]string, error)

// expandWildcard replaces "*" target columns by the concrete columns of the
// datasets they read, when those are known: from the graph for subqueries,
// from metadata for tables.
func (h *holder) expandWildcard(lookup columnLookup) error {
	for _, tgt := range h.writeColumns() {
		if !tgt.IsWildcard() {
			continue
		}
		for _, src := range h.sourceColumns(tgt) {
			var cols []model.Column
			switch p := src.Parent().(type) {
			case model.SubQuery:
				cols = h.tableColumns(p)
			case model.Table:
				if lookup == nil {
					continue
				}
				names, err := lookup(p)
				if err != nil {
					return err
				}
				for _, n := range names {
					cols = append(cols, model.NewColumn(n).WithOnlyParent(p))
				}
			default:
				continue
			}
			if len(cols) > 0 {
				h.replaceWildcard(tgt, cols, src)
			}
		}
	}
	return nil
}

func (h *holder) replaceWildcard(tgt model.Column, srcCols []model.Column, src model.Column) {
	parent := tgt.Parent()
	existing := map[string]bool{}
	for _, c := range h.tableColumns(parent) {
		existing[c.Key()] = true
	}
	for _, s := range srcCols {
		if s.IsWildcard() {
			continue
		}
		col := model.NewColumn(s.Name).WithOnlyParent(parent)
		if existing[col.Key()] {
			continue
		}
		existing[col.Key()] = true
		h.g.AddEdge(parent, col, model.EdgeHasColumn, nil)
		h.g.AddEdge(s, col, model.EdgeLineage, nil)
		h.g.AddEdge(s.Parent(), s, model.EdgeHasColumn, nil)
	}
	if _, ok := parent.(model.Table); ok {
		h.g.DropVertices(tgt)
	}
	if _, ok := src.Parent().(model.Table); ok {
		h.g.DropVertices(src)
	}
}

func (h *holder) merge(other *holder) {
	if other != nil {
		h.g.Merge(other.g)
	}
}

// committed filters out subqueries, leaving the tables and paths a
// statement reads or writes.
func committed(ds []model.Dataset) []model.Dataset {
	out := make([]model.Dataset, 0, len(ds))
	for _, d := range ds {
		if _, ok := d.(model.SubQuery); !ok {
			out = append(out, d)
		}
	}
	return out
}

// String summarizes the statement level roles of the holder.
func (h *holder) String() string {
	var renames []string
	for _, r := range h.rename() {
		renames = append(renames, fmt.Sprintf("(%s, %s)", r[0], r[1]))
	}
	var ctes []model.Dataset
	for _, sq := range h.cte() {
		ctes = append(ctes, sq)
	}
	lines := []string{
		"table read: " + listNames(committed(h.read())),
		"table write: " + listNames(committed(h.write())),
		"table cte: " + listNames(ctes),
		"table drop: " + listNames(h.drop()),
		"table rename: " + bracket(renames),
	}
	return strings.Join(lines, "\n")
}

func listNames(ds []model.Dataset) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.String()
	}
	return bracket(names)
}

func bracket(items []string) string {
	slices.Sort(items)
	return "[" + strings.Join(items, ", ") + "]"
}
