package graph

import (
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// EngineIndexed is the name of the arena based engine.
const EngineIndexed = "indexed"

func init() {
	Register(EngineIndexed, NewIndexed)
}

type vertexSlot struct {
	node  model.Node
	tags  map[model.Tag]struct{}
	alive bool
	in    []int // edge slots, in insertion order
	out   []int
}

type edgeSlot struct {
	src, tgt int
	label    model.EdgeType
	attrs    map[string]any
	alive    bool
}

// indexedGraph stores vertices and edges in append-only slot arenas.
// Dropped slots are marked dead and never reused, so slot order is
// insertion order.
type indexedGraph struct {
	vertices []vertexSlot
	edges    []edgeSlot
	index    map[string]int
	pairs    map[[2]int]int
}

// NewIndexed returns an empty arena based graph.
func NewIndexed() Operator {
	return &indexedGraph{
		index: make(map[string]int),
		pairs: make(map[[2]int]int),
	}
}

func (g *indexedGraph) Engine() string { return EngineIndexed }

func (g *indexedGraph) lookup(v model.Node) (int, bool) {
	if v == nil {
		return 0, false
	}
	i, ok := g.index[v.Key()]
	return i, ok
}

func (g *indexedGraph) ensure(v model.Node) int {
	if i, ok := g.lookup(v); ok {
		return i
	}
	g.vertices = append(g.vertices, vertexSlot{node: v, tags: make(map[model.Tag]struct{}), alive: true})
	i := len(g.vertices) - 1
	g.index[v.Key()] = i
	return i
}

func (g *indexedGraph) AddVertex(v model.Node, tags ...model.Tag) {
	if v == nil {
		return
	}
	slot := &g.vertices[g.ensure(v)]
	for _, t := range tags {
		slot.tags[t] = struct{}{}
	}
}

func (g *indexedGraph) Vertex(v model.Node) (model.Node, bool) {
	i, ok := g.lookup(v)
	if !ok {
		return nil, false
	}
	return g.vertices[i].node, true
}

func (g *indexedGraph) HasVertex(v model.Node) bool {
	_, ok := g.lookup(v)
	return ok
}

func (g *indexedGraph) filter(keep func(*vertexSlot) bool) []model.Node {
	var out []model.Node
	for i := range g.vertices {
		s := &g.vertices[i]
		if s.alive && keep(s) {
			out = append(out, s.node)
		}
	}
	return out
}

func (g *indexedGraph) Vertices(tags ...model.Tag) []model.Node {
	return g.filter(func(s *vertexSlot) bool { return hasAll(s.tags, tags) })
}

func (g *indexedGraph) Tags(v model.Node) []model.Tag {
	i, ok := g.lookup(v)
	if !ok {
		return nil
	}
	return tagList(g.vertices[i].tags)
}

func (g *indexedGraph) HasTag(v model.Node, tag model.Tag) bool {
	i, ok := g.lookup(v)
	if !ok {
		return false
	}
	_, ok = g.vertices[i].tags[tag]
	return ok
}

func (g *indexedGraph) SetTag(tag model.Tag, vs ...model.Node) {
	for _, v := range vs {
		if i, ok := g.lookup(v); ok {
			g.vertices[i].tags[tag] = struct{}{}
		}
	}
}

func (g *indexedGraph) SourceVertices() []model.Node {
	return g.filter(func(s *vertexSlot) bool { return len(s.in) == 0 && len(s.out) > 0 })
}

func (g *indexedGraph) TargetVertices() []model.Node {
	return g.filter(func(s *vertexSlot) bool { return len(s.out) == 0 && len(s.in) > 0 })
}

func (g *indexedGraph) SelfLoopVertices() []model.Node {
	var out []model.Node
	for i := range g.vertices {
		if !g.vertices[i].alive {
			continue
		}
		if _, ok := g.pairs[[2]int{i, i}]; ok {
			out = append(out, g.vertices[i].node)
		}
	}
	return out
}

func (g *indexedGraph) InDegree(v model.Node) int {
	if i, ok := g.lookup(v); ok {
		return len(g.vertices[i].in)
	}
	return 0
}

func (g *indexedGraph) OutDegree(v model.Node) int {
	if i, ok := g.lookup(v); ok {
		return len(g.vertices[i].out)
	}
	return 0
}

func (g *indexedGraph) DropVertices(vs ...model.Node) {
	for _, v := range vs {
		i, ok := g.lookup(v)
		if !ok {
			continue
		}
		s := &g.vertices[i]
		for _, e := range append(append([]int(nil), s.out...), s.in...) {
			g.dropEdgeSlot(e)
		}
		s.alive = false
		s.tags = nil
		delete(g.index, v.Key())
	}
}

func (g *indexedGraph) AddEdge(src, tgt model.Node, label model.EdgeType, attrs map[string]any) {
	if src == nil || tgt == nil {
		return
	}
	si, ti := g.ensure(src), g.ensure(tgt)
	if e, ok := g.pairs[[2]int{si, ti}]; ok {
		g.edges[e].label = label
		g.edges[e].attrs = copyAttrs(g.edges[e].attrs, attrs)
		return
	}
	g.edges = append(g.edges, edgeSlot{src: si, tgt: ti, label: label, attrs: copyAttrs(nil, attrs), alive: true})
	e := len(g.edges) - 1
	g.pairs[[2]int{si, ti}] = e
	g.vertices[si].out = append(g.vertices[si].out, e)
	g.vertices[ti].in = append(g.vertices[ti].in, e)
}

func (g *indexedGraph) HasEdge(src, tgt model.Node) bool {
	si, ok1 := g.lookup(src)
	ti, ok2 := g.lookup(tgt)
	if !ok1 || !ok2 {
		return false
	}
	_, ok := g.pairs[[2]int{si, ti}]
	return ok
}

func (g *indexedGraph) edge(e int) Edge {
	s := &g.edges[e]
	return Edge{
		Source: g.vertices[s.src].node,
		Target: g.vertices[s.tgt].node,
		Label:  s.label,
		Attrs:  copyAttrs(nil, s.attrs),
	}
}

func (g *indexedGraph) Edges(labels ...model.EdgeType) []Edge {
	var out []Edge
	for e := range g.edges {
		if g.edges[e].alive && labelMatch(g.edges[e].label, labels) {
			out = append(out, g.edge(e))
		}
	}
	return out
}

func (g *indexedGraph) EdgesOf(v model.Node, dir Direction, labels ...model.EdgeType) []Edge {
	i, ok := g.lookup(v)
	if !ok {
		return nil
	}
	adj := g.vertices[i].out
	if dir == In {
		adj = g.vertices[i].in
	}
	var out []Edge
	for _, e := range adj {
		if labelMatch(g.edges[e].label, labels) {
			out = append(out, g.edge(e))
		}
	}
	return out
}

func (g *indexedGraph) DropEdge(src, tgt model.Node) {
	si, ok1 := g.lookup(src)
	ti, ok2 := g.lookup(tgt)
	if !ok1 || !ok2 {
		return
	}
	if e, ok := g.pairs[[2]int{si, ti}]; ok {
		g.dropEdgeSlot(e)
	}
}

func (g *indexedGraph) dropEdgeSlot(e int) {
	s := &g.edges[e]
	if !s.alive {
		return
	}
	s.alive = false
	delete(g.pairs, [2]int{s.src, s.tgt})
	g.vertices[s.src].out = without(g.vertices[s.src].out, e)
	g.vertices[s.tgt].in = without(g.vertices[s.tgt].in, e)
}

func without(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func (g *indexedGraph) SubGraph(vs ...model.Node) Operator {
	keep := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		if i, ok := g.lookup(v); ok {
			keep[i] = struct{}{}
		}
	}
	sub := NewIndexed()
	for i := range g.vertices {
		if _, ok := keep[i]; ok {
			sub.AddVertex(g.vertices[i].node, tagList(g.vertices[i].tags)...)
		}
	}
	for e := range g.edges {
		s := &g.edges[e]
		if !s.alive {
			continue
		}
		_, ks := keep[s.src]
		_, kt := keep[s.tgt]
		if ks && kt {
			sub.AddEdge(g.vertices[s.src].node, g.vertices[s.tgt].node, s.label, s.attrs)
		}
	}
	return sub
}

func (g *indexedGraph) Merge(other Operator) { merge(g, other) }

func (g *indexedGraph) Clone() Operator {
	c := NewIndexed()
	merge(c, g)
	return c
}

func (g *indexedGraph) Paths(src, tgt model.Node) [][]model.Node {
	if !g.HasVertex(src) || !g.HasVertex(tgt) || src.Key() == tgt.Key() {
		return nil
	}
	return simplePaths(src, tgt, func(v model.Node) []model.Node {
		i, _ := g.lookup(v)
		out := g.vertices[i].out
		next := make([]model.Node, len(out))
		for j, e := range out {
			next[j] = g.vertices[g.edges[e].tgt].node
		}
		return next
	})
}
