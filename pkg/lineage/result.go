package lineage

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

type statement struct {
	sql string
	h   *holder
}

// ColumnPath is a chain of columns, each derived from the one before it.
type ColumnPath []model.Column

func (p ColumnPath) String() string {
	names := make([]string, len(p))
	for i, c := range p {
		names[len(p)-1-i] = c.String()
	}
	return strings.Join(names, " <- ")
}

// Result is the lineage of an analyzed script.
type Result struct {
	statements []statement
	graph      graph.Operator
}

// Statements returns the text of the analyzed statements in order.
func (r *Result) Statements() []string {
	out := make([]string, len(r.statements))
	for i, s := range r.statements {
		out[i] = s.sql
	}
	return out
}

// Graph returns a copy of the aggregated lineage graph.
func (r *Result) Graph() graph.Operator { return r.graph.Clone() }

// tableGraph is the subgraph induced by tables and paths.
func (r *Result) tableGraph() graph.Operator {
	var vs []model.Node
	for _, v := range r.graph.Vertices() {
		if isCommitted(v) {
			vs = append(vs, v)
		}
	}
	return r.graph.SubGraph(vs...)
}

func isCommitted(n model.Node) bool {
	switch n.(type) {
	case model.Table, model.Path:
		return true
	}
	return false
}

// SourceTables returns the datasets the script reads from without them
// being produced by it, plus tables that are both read and written by the
// same statement.
func (r *Result) SourceTables() []model.Dataset {
	g := r.tableGraph()
	out := g.SourceVertices()
	out = append(out, r.graph.Vertices(model.TagSelfLoop)...)
	out = append(out, r.graph.Vertices(model.TagSourceOnly)...)
	return sortedDatasets(out)
}

// TargetTables returns the datasets the script produces without reading
// them again, plus self-loop tables.
func (r *Result) TargetTables() []model.Dataset {
	g := r.tableGraph()
	out := g.TargetVertices()
	out = append(out, r.graph.Vertices(model.TagSelfLoop)...)
	out = append(out, r.graph.Vertices(model.TagTargetOnly)...)
	return sortedDatasets(out)
}

// IntermediateTables returns the datasets written by one statement and
// read by another.
func (r *Result) IntermediateTables() []model.Dataset {
	g := r.tableGraph()
	var out []model.Node
	for _, v := range g.Vertices() {
		if g.InDegree(v) > 0 && g.OutDegree(v) > 0 && !r.graph.HasTag(v, model.TagSelfLoop) {
			out = append(out, v)
		}
	}
	return sortedDatasets(out)
}

// sortedDatasets keeps the tables and paths of ns, deduplicated and sorted
// by display name.
func sortedDatasets(ns []model.Node) []model.Dataset {
	seen := map[string]bool{}
	var out []model.Dataset
	for _, n := range ns {
		if !isCommitted(n) || seen[n.Key()] {
			continue
		}
		seen[n.Key()] = true
		out = append(out, n.(model.Dataset))
	}
	slices.SortFunc(out, func(a, b model.Dataset) int { return strings.Compare(a.String(), b.String()) })
	return out
}

// ColumnLineage returns every path from a column with no upstream to a
// column with no downstream. With excludeSubqueryTargets set, paths ending
// at a column of a subquery are left out. A column read and written by the
// same statement yields the path (c, c).
func (r *Result) ColumnLineage(excludeSubqueryTargets bool) []ColumnPath {
	var cols []model.Node
	for _, v := range r.graph.Vertices() {
		if model.IsColumn(v) {
			cols = append(cols, v)
		}
	}
	g := r.graph.SubGraph(cols...)
	var sources, targets []model.Node
	for _, v := range g.Vertices() {
		if g.InDegree(v) == 0 {
			sources = append(sources, v)
		}
		if g.OutDegree(v) == 0 {
			c := v.(model.Column)
			if excludeSubqueryTargets && !isCommitted(c.Parent()) {
				continue
			}
			targets = append(targets, v)
		}
	}
	seen := map[string]bool{}
	var out []ColumnPath
	add := func(nodes []model.Node) {
		p := make(ColumnPath, len(nodes))
		for i, n := range nodes {
			p[i] = n.(model.Column)
		}
		if k := pathKey(p); !seen[k] {
			seen[k] = true
			out = append(out, p)
		}
	}
	for _, s := range sources {
		for _, t := range targets {
			for _, p := range g.Paths(s, t) {
				add(p)
			}
		}
	}
	for _, v := range g.SelfLoopVertices() {
		add([]model.Node{v, v})
	}
	slices.SortFunc(out, func(a, b ColumnPath) int {
		if c := strings.Compare(a[len(a)-1].String(), b[len(b)-1].String()); c != 0 {
			return c
		}
		return strings.Compare(pathKey(a), pathKey(b))
	})
	return out
}

func pathKey(p ColumnPath) string {
	keys := make([]string, len(p))
	for i, c := range p {
		keys[i] = c.String()
	}
	return strings.Join(keys, " -> ")
}

// columnGraph is the subgraph induced by datasets and columns. Alias
// vertices only name a dataset inside one scope and are left out.
func (r *Result) columnGraph() graph.Operator {
	var vs []model.Node
	for _, v := range r.graph.Vertices() {
		if model.IsDataset(v) || model.IsColumn(v) {
			vs = append(vs, v)
		}
	}
	return r.graph.SubGraph(vs...)
}

// Export returns the node/edge export of the table graph, or of the
// datasets and their columns at column level.
func (r *Result) Export(level model.Level, compound bool) []graph.Element {
	if level == model.LevelColumn {
		return graph.Export(r.columnGraph(), compound)
	}
	return graph.Export(r.tableGraph(), compound)
}

// String returns the combined summary of the script.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statements(#): %d\n", len(r.statements))
	b.WriteString("Source Tables:\n")
	writeDatasets(&b, r.SourceTables())
	b.WriteString("Target Tables:\n")
	writeDatasets(&b, r.TargetTables())
	if inter := r.IntermediateTables(); len(inter) > 0 {
		b.WriteString("Intermediate Tables:\n")
		writeDatasets(&b, inter)
	}
	return b.String()
}

func writeDatasets(b *strings.Builder, ds []model.Dataset) {
	for _, d := range ds {
		b.WriteString("    " + d.String() + "\n")
	}
}

// Verbose returns the per-statement summary followed by the combined one.
func (r *Result) Verbose() string {
	var b strings.Builder
	for i, s := range r.statements {
		sql := strings.TrimSpace(s.sql)
		if len(sql) > 50 {
			sql = sql[:50] + "..."
		}
		fmt.Fprintf(&b, "Statement #%d: %s\n", i+1, sql)
		b.WriteString("    " + strings.ReplaceAll(s.h.String(), "\n", "\n    ") + "\n")
	}
	b.WriteString("==========\nSummary:\n")
	b.WriteString(r.String())
	return b.String()
}

// ColumnReport prints every column path of ColumnLineage(true), one per
// line, as "target <- ... <- source".
func (r *Result) ColumnReport() string {
	var b strings.Builder
	for _, p := range r.ColumnLineage(true) {
		b.WriteString(p.String() + "\n")
	}
	return b.String()
}
