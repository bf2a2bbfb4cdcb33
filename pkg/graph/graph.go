// Package graph provides the directed graph lineage holders are built on.
//
// An Operator stores model.Node vertices identified by Key, each carrying a
// set of tags, and at most one labeled edge per ordered vertex pair. Two
// engines are registered: "memory", a map based general purpose engine, and
// "indexed", an arena of vertex and edge slots with adjacency lists. Both
// produce identical results, including iteration order, which is always the
// order vertices and edges were first added.
package graph

import (
	"slices"

	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// Direction selects incoming or outgoing edges of a vertex.
type Direction int

// Edge directions.
const (
	In Direction = iota
	Out
)

// Edge is a labeled edge between two vertices.
type Edge struct {
	Source model.Node
	Target model.Node
	Label  model.EdgeType
	Attrs  map[string]any
}

// Index returns the model.AttrIndex attribute, or 0 when unset.
func (e Edge) Index() int {
	if v, ok := e.Attrs[model.AttrIndex].(int); ok {
		return v
	}
	return 0
}

// Operator is a directed graph of lineage vertices.
type Operator interface {
	// AddVertex adds v if no vertex with its key exists and sets the given
	// tags on it. An existing vertex keeps its original value.
	AddVertex(v model.Node, tags ...model.Tag)
	// Vertex returns the stored vertex with v's key.
	Vertex(v model.Node) (model.Node, bool)
	HasVertex(v model.Node) bool
	// Vertices returns the vertices carrying every given tag; all vertices
	// when no tag is given.
	Vertices(tags ...model.Tag) []model.Node
	// Tags returns the tags set on v.
	Tags(v model.Node) []model.Tag
	HasTag(v model.Node, tag model.Tag) bool
	// SetTag sets tag on the vertices that exist and ignores the others.
	SetTag(tag model.Tag, vs ...model.Node)
	// SourceVertices returns vertices with no incoming and some outgoing edge.
	SourceVertices() []model.Node
	// TargetVertices returns vertices with no outgoing and some incoming edge.
	TargetVertices() []model.Node
	// SelfLoopVertices returns vertices with an edge to themselves.
	SelfLoopVertices() []model.Node
	InDegree(v model.Node) int
	OutDegree(v model.Node) int
	// DropVertices removes the vertices that exist and their edges.
	DropVertices(vs ...model.Node)

	// AddEdge adds an edge, creating missing vertices. If the pair is
	// already connected the label is replaced and attrs are merged into the
	// existing attributes. A nil endpoint makes the call a no-op.
	AddEdge(src, tgt model.Node, label model.EdgeType, attrs map[string]any)
	HasEdge(src, tgt model.Node) bool
	// Edges returns the edges with one of the given labels; all edges when
	// no label is given.
	Edges(labels ...model.EdgeType) []Edge
	// EdgesOf returns the edges entering or leaving v, optionally filtered
	// by label.
	EdgesOf(v model.Node, dir Direction, labels ...model.EdgeType) []Edge
	DropEdge(src, tgt model.Node)

	// SubGraph returns the graph induced by vs, as a new graph of the same
	// engine.
	SubGraph(vs ...model.Node) Operator
	// Merge composes other into the graph. Tags are unioned and attributes
	// of edges present in both graphs are taken from other.
	Merge(other Operator)
	// Paths returns every simple path from src to tgt.
	Paths(src, tgt model.Node) [][]model.Node
	// Clone returns an independent copy.
	Clone() Operator
	// Engine returns the registered engine name.
	Engine() string
}

// merge is the engine independent composition used by both engines.
func merge(g, other Operator) {
	for _, v := range other.Vertices() {
		g.AddVertex(v, other.Tags(v)...)
	}
	for _, e := range other.Edges() {
		g.AddEdge(e.Source, e.Target, e.Label, e.Attrs)
	}
}

func hasAll(tags map[model.Tag]struct{}, want []model.Tag) bool {
	for _, t := range want {
		if _, ok := tags[t]; !ok {
			return false
		}
	}
	return true
}

func labelMatch(label model.EdgeType, want []model.EdgeType) bool {
	if len(want) == 0 {
		return true
	}
	for _, l := range want {
		if l == label {
			return true
		}
	}
	return false
}

func copyAttrs(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func tagList(tags map[model.Tag]struct{}) []model.Tag {
	out := make([]model.Tag, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
