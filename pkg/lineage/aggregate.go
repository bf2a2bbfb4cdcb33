package lineage

import (
	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/metadata"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// aggregate folds statement holders, in order, into the graph of the whole
// script.
func aggregate(g graph.Operator, lookup columnLookup, holders []*holder) (graph.Operator, error) {
	for _, h := range holders {
		g.Merge(h.g)
		switch drops, renames := h.drop(), h.rename(); {
		case len(drops) > 0:
			for _, d := range drops {
				if g.HasVertex(d) && degree(g, d) == 0 {
					g.DropVertices(d)
				}
			}
		case len(renames) > 0:
			for _, r := range renames {
				relabelTable(g, r[0], r[1])
				g.DropEdge(r[1], r[1])
				if degree(g, r[1]) == 0 {
					g.DropVertices(r[1])
				}
			}
		default:
			reads, writes := committed(h.read()), committed(h.write())
			switch {
			case len(reads) > 0 && len(writes) == 0:
				g.SetTag(model.TagSourceOnly, datasetNodes(reads)...)
			case len(reads) == 0 && len(writes) > 0:
				g.SetTag(model.TagTargetOnly, datasetNodes(writes)...)
			default:
				for _, r := range reads {
					for _, w := range writes {
						g.AddEdge(r, w, model.EdgeLineage, nil)
					}
				}
			}
		}
	}
	g.SetTag(model.TagSelfLoop, g.SelfLoopVertices()...)
	if err := resolveAmbiguous(g, lookup); err != nil {
		return nil, err
	}
	for _, v := range g.Vertices() {
		if c, ok := v.(model.Column); ok && c.IsAmbiguous() && degree(g, c) == 0 {
			g.DropVertices(c)
		}
	}
	return g, nil
}

func degree(g graph.Operator, v model.Node) int {
	return g.InDegree(v) + g.OutDegree(v)
}

func datasetNodes(ds []model.Dataset) []model.Node {
	out := make([]model.Node, len(ds))
	for i, d := range ds {
		out[i] = d
	}
	return out
}

// relabelTable renames a table across the graph. Its columns move to the
// new table with it.
func relabelTable(g graph.Operator, from, to model.Dataset) {
	var cols []model.Column
	for _, e := range g.EdgesOf(from, graph.Out, model.EdgeHasColumn) {
		if c, ok := e.Target.(model.Column); ok && c.Parent() != nil && c.Parent().Key() == from.Key() {
			cols = append(cols, c)
		}
	}
	moveVertex(g, from, to)
	for _, c := range cols {
		moveVertex(g, c, c.WithOnlyParent(to))
	}
}

// moveVertex replaces from by to, keeping tags and edges.
func moveVertex(g graph.Operator, from, to model.Node) {
	if !g.HasVertex(from) {
		return
	}
	g.AddVertex(to, g.Tags(from)...)
	for _, e := range g.EdgesOf(from, graph.Out) {
		tgt := e.Target
		if tgt.Key() == from.Key() {
			tgt = to
		}
		g.AddEdge(to, tgt, e.Label, e.Attrs)
	}
	for _, e := range g.EdgesOf(from, graph.In) {
		if e.Source.Key() == from.Key() {
			continue
		}
		g.AddEdge(e.Source, to, e.Label, e.Attrs)
	}
	g.DropVertices(from)
}

// resolveAmbiguous settles column lineage edges whose source is still
// ambiguous: when exactly one candidate parent is known to have a column of
// that name, in the graph or else in metadata, the edge is moved to that
// column.
func resolveAmbiguous(g graph.Operator, lookup columnLookup) error {
	for _, e := range g.Edges(model.EdgeLineage) {
		src, ok := e.Source.(model.Column)
		if !ok || !src.IsAmbiguous() {
			continue
		}
		tgt, ok := e.Target.(model.Column)
		if !ok {
			continue
		}
		var matches []model.Column
		for _, p := range src.Candidates() {
			col := model.NewColumn(src.Name).WithOnlyParent(p)
			if g.HasEdge(p, col) {
				matches = append(matches, col)
			}
		}
		if len(matches) == 0 && lookup != nil {
			for _, p := range src.Candidates() {
				t, ok := p.(model.Table)
				if !ok {
					continue
				}
				cols, err := lookup(t)
				if err != nil {
					return err
				}
				if metadata.Contains(cols, src.Name) {
					matches = append(matches, model.NewColumn(src.Name).WithOnlyParent(t))
				}
			}
		}
		if len(matches) != 1 {
			continue
		}
		m := matches[0]
		g.AddEdge(m.Parent(), m, model.EdgeHasColumn, nil)
		g.AddEdge(m, tgt, model.EdgeLineage, nil)
		g.DropEdge(src, tgt)
	}
	return nil
}
