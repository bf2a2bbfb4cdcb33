package graph

import (
	"sort"

	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// EngineMemory is the name of the map based engine.
const EngineMemory = "memory"

func init() {
	Register(EngineMemory, NewMemory)
}

type memVertex struct {
	node model.Node
	tags map[model.Tag]struct{}
	seq  int
}

type memEdge struct {
	Edge
	seq int
}

// memoryGraph keeps vertices and adjacency in maps keyed by vertex key.
// Every vertex and edge carries a sequence number so results can be
// returned in insertion order.
type memoryGraph struct {
	vertices map[string]*memVertex
	out      map[string]map[string]*memEdge
	in       map[string]map[string]*memEdge
	seq      int
}

// NewMemory returns an empty map based graph.
func NewMemory() Operator {
	return &memoryGraph{
		vertices: make(map[string]*memVertex),
		out:      make(map[string]map[string]*memEdge),
		in:       make(map[string]map[string]*memEdge),
	}
}

func (g *memoryGraph) Engine() string { return EngineMemory }

func (g *memoryGraph) next() int {
	g.seq++
	return g.seq
}

func (g *memoryGraph) AddVertex(v model.Node, tags ...model.Tag) {
	if v == nil {
		return
	}
	mv := g.ensure(v)
	for _, t := range tags {
		mv.tags[t] = struct{}{}
	}
}

func (g *memoryGraph) ensure(v model.Node) *memVertex {
	k := v.Key()
	if mv, ok := g.vertices[k]; ok {
		return mv
	}
	mv := &memVertex{node: v, tags: make(map[model.Tag]struct{}), seq: g.next()}
	g.vertices[k] = mv
	g.out[k] = make(map[string]*memEdge)
	g.in[k] = make(map[string]*memEdge)
	return mv
}

func (g *memoryGraph) Vertex(v model.Node) (model.Node, bool) {
	if v == nil {
		return nil, false
	}
	mv, ok := g.vertices[v.Key()]
	if !ok {
		return nil, false
	}
	return mv.node, true
}

func (g *memoryGraph) HasVertex(v model.Node) bool {
	_, ok := g.Vertex(v)
	return ok
}

func (g *memoryGraph) sorted(keep func(k string, mv *memVertex) bool) []model.Node {
	var found []*memVertex
	for k, mv := range g.vertices {
		if keep(k, mv) {
			found = append(found, mv)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]model.Node, len(found))
	for i, mv := range found {
		out[i] = mv.node
	}
	return out
}

func (g *memoryGraph) Vertices(tags ...model.Tag) []model.Node {
	return g.sorted(func(_ string, mv *memVertex) bool { return hasAll(mv.tags, tags) })
}

func (g *memoryGraph) Tags(v model.Node) []model.Tag {
	mv, ok := g.vertices[v.Key()]
	if !ok {
		return nil
	}
	return tagList(mv.tags)
}

func (g *memoryGraph) HasTag(v model.Node, tag model.Tag) bool {
	mv, ok := g.vertices[v.Key()]
	if !ok {
		return false
	}
	_, ok = mv.tags[tag]
	return ok
}

func (g *memoryGraph) SetTag(tag model.Tag, vs ...model.Node) {
	for _, v := range vs {
		if mv, ok := g.vertices[v.Key()]; ok {
			mv.tags[tag] = struct{}{}
		}
	}
}

func (g *memoryGraph) SourceVertices() []model.Node {
	return g.sorted(func(k string, _ *memVertex) bool { return len(g.in[k]) == 0 && len(g.out[k]) > 0 })
}

func (g *memoryGraph) TargetVertices() []model.Node {
	return g.sorted(func(k string, _ *memVertex) bool { return len(g.out[k]) == 0 && len(g.in[k]) > 0 })
}

func (g *memoryGraph) SelfLoopVertices() []model.Node {
	return g.sorted(func(k string, _ *memVertex) bool {
		_, ok := g.out[k][k]
		return ok
	})
}

func (g *memoryGraph) InDegree(v model.Node) int  { return len(g.in[v.Key()]) }
func (g *memoryGraph) OutDegree(v model.Node) int { return len(g.out[v.Key()]) }

func (g *memoryGraph) DropVertices(vs ...model.Node) {
	for _, v := range vs {
		k := v.Key()
		if _, ok := g.vertices[k]; !ok {
			continue
		}
		for t := range g.out[k] {
			delete(g.in[t], k)
		}
		for s := range g.in[k] {
			delete(g.out[s], k)
		}
		delete(g.vertices, k)
		delete(g.out, k)
		delete(g.in, k)
	}
}

func (g *memoryGraph) AddEdge(src, tgt model.Node, label model.EdgeType, attrs map[string]any) {
	if src == nil || tgt == nil {
		return
	}
	g.ensure(src)
	g.ensure(tgt)
	sk, tk := src.Key(), tgt.Key()
	if e, ok := g.out[sk][tk]; ok {
		e.Label = label
		e.Attrs = copyAttrs(e.Attrs, attrs)
		return
	}
	e := &memEdge{
		Edge: Edge{Source: g.vertices[sk].node, Target: g.vertices[tk].node, Label: label, Attrs: copyAttrs(nil, attrs)},
		seq:  g.next(),
	}
	g.out[sk][tk] = e
	g.in[tk][sk] = e
}

func (g *memoryGraph) HasEdge(src, tgt model.Node) bool {
	_, ok := g.out[src.Key()][tgt.Key()]
	return ok
}

func collect(edges []*memEdge, labels []model.EdgeType) []Edge {
	sort.Slice(edges, func(i, j int) bool { return edges[i].seq < edges[j].seq })
	var out []Edge
	for _, e := range edges {
		if labelMatch(e.Label, labels) {
			out = append(out, Edge{Source: e.Source, Target: e.Target, Label: e.Label, Attrs: copyAttrs(nil, e.Attrs)})
		}
	}
	return out
}

func (g *memoryGraph) Edges(labels ...model.EdgeType) []Edge {
	var all []*memEdge
	for _, m := range g.out {
		for _, e := range m {
			all = append(all, e)
		}
	}
	return collect(all, labels)
}

func (g *memoryGraph) EdgesOf(v model.Node, dir Direction, labels ...model.EdgeType) []Edge {
	adj := g.out
	if dir == In {
		adj = g.in
	}
	m := adj[v.Key()]
	edges := make([]*memEdge, 0, len(m))
	for _, e := range m {
		edges = append(edges, e)
	}
	return collect(edges, labels)
}

func (g *memoryGraph) DropEdge(src, tgt model.Node) {
	sk, tk := src.Key(), tgt.Key()
	if _, ok := g.out[sk][tk]; !ok {
		return
	}
	delete(g.out[sk], tk)
	delete(g.in[tk], sk)
}

func (g *memoryGraph) SubGraph(vs ...model.Node) Operator {
	keep := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		keep[v.Key()] = struct{}{}
	}
	sub := NewMemory()
	for _, v := range g.Vertices() {
		if _, ok := keep[v.Key()]; ok {
			sub.AddVertex(v, g.Tags(v)...)
		}
	}
	for _, e := range g.Edges() {
		_, s := keep[e.Source.Key()]
		_, t := keep[e.Target.Key()]
		if s && t {
			sub.AddEdge(e.Source, e.Target, e.Label, e.Attrs)
		}
	}
	return sub
}

func (g *memoryGraph) Merge(other Operator) { merge(g, other) }

func (g *memoryGraph) Clone() Operator {
	c := NewMemory()
	merge(c, g)
	return c
}

func (g *memoryGraph) Paths(src, tgt model.Node) [][]model.Node {
	if !g.HasVertex(src) || !g.HasVertex(tgt) || src.Key() == tgt.Key() {
		return nil
	}
	return simplePaths(src, tgt, func(v model.Node) []model.Node {
		edges := g.EdgesOf(v, Out)
		next := make([]model.Node, len(edges))
		for i, e := range edges {
			next[i] = e.Target
		}
		return next
	})
}

// simplePaths enumerates cycle free paths from src to tgt depth-first,
// following successors in the order next returns them.
func simplePaths(src, tgt model.Node, next func(model.Node) []model.Node) [][]model.Node {
	var paths [][]model.Node
	onPath := map[string]bool{src.Key(): true}
	path := []model.Node{src}
	var visit func(v model.Node)
	visit = func(v model.Node) {
		for _, n := range next(v) {
			k := n.Key()
			if onPath[k] {
				continue
			}
			if k == tgt.Key() {
				p := make([]model.Node, len(path)+1)
				copy(p, path)
				p[len(path)] = n
				paths = append(paths, p)
				continue
			}
			onPath[k] = true
			path = append(path, n)
			visit(n)
			path = path[:len(path)-1]
			delete(onPath, k)
		}
	}
	visit(src)
	return paths
}
