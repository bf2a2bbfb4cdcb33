package graph_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

var (
	tabA = model.MustTable("a")
	tabB = model.MustTable("b")
	tabC = model.MustTable("c")
	tabD = model.MustTable("d")
)

func strs(nodes []model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.String()
	}
	return out
}

func paths(ps [][]model.Node) [][]string {
	out := make([][]string, len(ps))
	for i, p := range ps {
		out[i] = strs(p)
	}
	return out
}

// forEachEngine runs fn against a fresh graph of every registered engine.
func forEachEngine(t *testing.T, fn func(t *testing.T, g graph.Operator)) {
	for _, name := range graph.ListEngines() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New(name)
			require.NoError(t, err)
			assert.Equal(t, name, g.Engine())
			fn(t, g)
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{graph.EngineIndexed, graph.EngineMemory}, graph.ListEngines())

	g, err := graph.New("")
	require.NoError(t, err)
	assert.Equal(t, graph.EngineMemory, g.Engine())

	_, err = graph.New("rustworkx")
	var unknown *graph.UnknownEngineError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "rustworkx", unknown.Engine)
	assert.Contains(t, err.Error(), "memory")
}

func TestVertices(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		g.AddVertex(tabA, model.TagRead)
		g.AddVertex(tabB, model.TagWrite)
		g.AddVertex(model.MustTable("A").WithAlias("x"), model.TagCTE)

		assert.Equal(t, []string{"<default>.a", "<default>.b"}, strs(g.Vertices()))
		assert.Equal(t, []string{"<default>.a"}, strs(g.Vertices(model.TagRead, model.TagCTE)))
		assert.Empty(t, g.Vertices(model.TagRead, model.TagWrite))
		assert.Equal(t, []model.Tag{model.TagCTE, model.TagRead}, g.Tags(tabA))

		stored, ok := g.Vertex(model.MustTable("a"))
		require.True(t, ok)
		assert.Equal(t, "a", stored.(model.Table).AliasName(), "first value wins")

		g.SetTag(model.TagDrop, tabB, tabC)
		assert.True(t, g.HasTag(tabB, model.TagDrop))
		assert.False(t, g.HasVertex(tabC), "tagging does not create vertices")

		g.DropVertices(tabA, tabD)
		assert.Equal(t, []string{"<default>.b"}, strs(g.Vertices()))
		assert.Nil(t, g.Tags(tabA))
	})
}

func TestEdges(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		g.AddEdge(tabA, tabB, model.EdgeLineage, nil)
		g.AddEdge(tabB, tabC, model.EdgeLineage, nil)
		g.AddEdge(tabA, model.Alias("x"), model.EdgeHasAlias, nil)
		g.AddEdge(nil, tabC, model.EdgeLineage, nil)

		assert.Len(t, g.Vertices(), 4)
		assert.Len(t, g.Edges(), 3)
		assert.Len(t, g.Edges(model.EdgeLineage), 2)
		assert.Len(t, g.Edges(model.EdgeLineage, model.EdgeHasAlias), 3)

		out := g.EdgesOf(tabA, graph.Out)
		require.Len(t, out, 2)
		assert.Equal(t, "<default>.b", out[0].Target.String())
		assert.Len(t, g.EdgesOf(tabA, graph.Out, model.EdgeHasAlias), 1)
		assert.Len(t, g.EdgesOf(tabC, graph.In), 1)
		assert.Empty(t, g.EdgesOf(tabD, graph.In))

		assert.Equal(t, 2, g.OutDegree(tabA))
		assert.Equal(t, 1, g.InDegree(tabC))

		g.DropEdge(tabA, tabB)
		g.DropEdge(tabA, tabD)
		assert.False(t, g.HasEdge(tabA, tabB))
		assert.True(t, g.HasEdge(tabB, tabC))
	})
}

func TestAddEdge_OnePerPairLaterAttrsWin(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		col := model.NewColumn("x").WithParent(tabA)
		g.AddEdge(tabA, col, model.EdgeHasColumn, map[string]any{model.AttrIndex: 2})
		g.AddEdge(tabA, col, model.EdgeHasColumn, nil)

		edges := g.Edges()
		require.Len(t, edges, 1)
		assert.Equal(t, 2, edges[0].Index(), "attributes not given are kept")

		g.AddEdge(tabA, col, model.EdgeLineage, map[string]any{model.AttrIndex: 5})
		edges = g.Edges()
		require.Len(t, edges, 1)
		assert.Equal(t, model.EdgeLineage, edges[0].Label)
		assert.Equal(t, 5, edges[0].Index())

		edges[0].Attrs[model.AttrIndex] = 9
		assert.Equal(t, 5, g.Edges()[0].Index(), "returned attributes are copies")
	})
}

func TestSourceTargetSelfLoop(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		g.AddEdge(tabA, tabB, model.EdgeLineage, nil)
		g.AddEdge(tabB, tabC, model.EdgeLineage, nil)
		g.AddEdge(tabD, tabD, model.EdgeLineage, nil)
		g.AddVertex(model.MustTable("lonely"))

		assert.Equal(t, []string{"<default>.a"}, strs(g.SourceVertices()))
		assert.Equal(t, []string{"<default>.c"}, strs(g.TargetVertices()))
		assert.Equal(t, []string{"<default>.d"}, strs(g.SelfLoopVertices()))
	})
}

func TestDropVertexRemovesEdges(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		g.AddEdge(tabA, tabB, model.EdgeLineage, nil)
		g.AddEdge(tabB, tabC, model.EdgeLineage, nil)
		g.DropVertices(tabB)

		assert.Empty(t, g.Edges())
		assert.Equal(t, 0, g.OutDegree(tabA))
		assert.Equal(t, 0, g.InDegree(tabC))

		g.AddEdge(tabC, tabB, model.EdgeLineage, nil)
		assert.Equal(t, []string{"<default>.a", "<default>.c", "<default>.b"}, strs(g.Vertices()))
	})
}

func TestSubGraph(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		g.AddVertex(tabA, model.TagRead)
		g.AddEdge(tabA, tabB, model.EdgeLineage, nil)
		g.AddEdge(tabB, tabC, model.EdgeLineage, nil)

		sub := g.SubGraph(tabA, tabB, tabD)
		assert.Equal(t, g.Engine(), sub.Engine())
		assert.Equal(t, []string{"<default>.a", "<default>.b"}, strs(sub.Vertices()))
		assert.Len(t, sub.Edges(), 1)
		assert.True(t, sub.HasTag(tabA, model.TagRead))

		sub.DropVertices(tabA)
		assert.True(t, g.HasVertex(tabA), "subgraph is independent")
	})
}

func TestMerge(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		g.AddVertex(tabA, model.TagRead)
		g.AddEdge(tabA, tabB, model.EdgeLineage, map[string]any{model.AttrIndex: 1})

		other, err := graph.New(g.Engine())
		require.NoError(t, err)
		other.AddVertex(tabA, model.TagWrite)
		other.AddEdge(tabA, tabB, model.EdgeLineage, map[string]any{model.AttrIndex: 3})
		other.AddEdge(tabB, tabC, model.EdgeLineage, nil)

		g.Merge(other)
		assert.Equal(t, []string{"<default>.a", "<default>.b", "<default>.c"}, strs(g.Vertices()))
		assert.ElementsMatch(t, []model.Tag{model.TagRead, model.TagWrite}, g.Tags(tabA))
		require.Len(t, g.Edges(), 2)
		assert.Equal(t, 3, g.Edges()[0].Index())

		before := len(g.Edges())
		g.Merge(g.Clone())
		assert.Len(t, g.Edges(), before, "self union is idempotent")
	})
}

func TestMerge_AcrossEngines(t *testing.T) {
	mem := graph.NewMemory()
	idx := graph.NewIndexed()
	idx.AddEdge(tabA, tabB, model.EdgeLineage, nil)
	mem.Merge(idx)
	assert.True(t, mem.HasEdge(tabA, tabB))
}

func TestPaths(t *testing.T) {
	forEachEngine(t, func(t *testing.T, g graph.Operator) {
		// a -> b -> d, a -> c -> d, c -> a (cycle), d -> d
		g.AddEdge(tabA, tabB, model.EdgeLineage, nil)
		g.AddEdge(tabA, tabC, model.EdgeLineage, nil)
		g.AddEdge(tabB, tabD, model.EdgeLineage, nil)
		g.AddEdge(tabC, tabD, model.EdgeLineage, nil)
		g.AddEdge(tabC, tabA, model.EdgeLineage, nil)
		g.AddEdge(tabD, tabD, model.EdgeLineage, nil)

		assert.Equal(t, [][]string{
			{"<default>.a", "<default>.b", "<default>.d"},
			{"<default>.a", "<default>.c", "<default>.d"},
		}, paths(g.Paths(tabA, tabD)))
		assert.Equal(t, [][]string{{"<default>.c", "<default>.a"}}, paths(g.Paths(tabC, tabA)))
		assert.Empty(t, g.Paths(tabD, tabA))
		assert.Empty(t, g.Paths(tabD, tabD))
		assert.Empty(t, g.Paths(tabA, model.MustTable("missing")))
	})
}

func TestEnginesAgree(t *testing.T) {
	build := func(g graph.Operator) {
		for i := 0; i < 20; i++ {
			src := model.MustTable(fmt.Sprintf("t%d", i%7))
			tgt := model.MustTable(fmt.Sprintf("t%d", (i*3+1)%7))
			g.AddEdge(src, tgt, model.EdgeLineage, map[string]any{model.AttrIndex: i})
		}
		g.DropVertices(model.MustTable("t3"))
		g.AddEdge(model.MustTable("t3"), model.MustTable("t0"), model.EdgeRename, nil)
		g.DropEdge(model.MustTable("t1"), model.MustTable("t4"))
	}
	mem, idx := graph.NewMemory(), graph.NewIndexed()
	build(mem)
	build(idx)

	assert.Equal(t, strs(mem.Vertices()), strs(idx.Vertices()))
	assert.Equal(t, strs(mem.SourceVertices()), strs(idx.SourceVertices()))
	assert.Equal(t, strs(mem.TargetVertices()), strs(idx.TargetVertices()))
	assert.Equal(t, strs(mem.SelfLoopVertices()), strs(idx.SelfLoopVertices()))
	assert.Equal(t, graph.Export(mem, false), graph.Export(idx, false))
	for _, s := range mem.Vertices() {
		for _, d := range mem.Vertices() {
			assert.Equal(t, paths(mem.Paths(s, d)), paths(idx.Paths(s, d)), "%s -> %s", s, d)
		}
	}
}

func TestExport(t *testing.T) {
	g := graph.NewMemory()
	src := model.NewColumn("a").WithParent(model.MustTable("s"))
	tgt := model.NewColumn("a").WithParent(model.MustTable("t"))
	amb := model.NewColumn("b").WithParent(model.MustTable("s")).WithParent(model.MustTable("u"))
	g.AddEdge(src, tgt, model.EdgeLineage, nil)
	g.AddEdge(amb, tgt, model.EdgeLineage, nil)

	plain := graph.Export(g, false)
	require.Len(t, plain, 5)
	assert.Equal(t, map[string]any{"id": "<default>.s.a"}, plain[0].Data)
	assert.Equal(t, map[string]any{"id": "e0", "source": "<default>.s.a", "target": "<default>.t.a"}, plain[3].Data)

	compound := graph.Export(g, true)
	// 3 columns, 3 parent groups, 2 edges
	require.Len(t, compound, 8)
	assert.Equal(t, "<default>.s", compound[0].Data["parent"])
	assert.Equal(t, "Column", compound[0].Data["type"])
	assert.Equal(t, "<unknown>", compound[2].Data["parent"])
	assert.Len(t, compound[2].Data["parent_candidates"], 2)
	assert.Equal(t, map[string]any{"id": "<default>.s", "type": "Table"}, compound[3].Data)
	assert.Equal(t, map[string]any{"id": "<unknown>", "type": "Table or SubQuery"}, compound[5].Data)
}
