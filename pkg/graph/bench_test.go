package graph_test

import (
	"fmt"
	"testing"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// buildChain adds n tables, each with cols columns, where every column of
// table i feeds the same column of table i+1.
func buildChain(g graph.Operator, n, cols int) {
	for i := 0; i < n; i++ {
		src := model.MustTable(fmt.Sprintf("s.t%d", i))
		tgt := model.MustTable(fmt.Sprintf("s.t%d", i+1))
		g.AddEdge(src, tgt, model.EdgeLineage, nil)
		for c := 0; c < cols; c++ {
			sc := model.NewColumn(fmt.Sprintf("c%d", c)).WithParent(src)
			tc := model.NewColumn(fmt.Sprintf("c%d", c)).WithParent(tgt)
			g.AddEdge(src, sc, model.EdgeHasColumn, map[string]any{model.AttrIndex: c})
			g.AddEdge(tgt, tc, model.EdgeHasColumn, map[string]any{model.AttrIndex: c})
			g.AddEdge(sc, tc, model.EdgeLineage, nil)
		}
	}
}

func BenchmarkEngines(b *testing.B) {
	for _, name := range graph.ListEngines() {
		b.Run(name+"/build", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				g, _ := graph.New(name)
				buildChain(g, 50, 20)
			}
		})
		b.Run(name+"/query", func(b *testing.B) {
			g, _ := graph.New(name)
			buildChain(g, 50, 20)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for _, v := range g.Vertices() {
					g.EdgesOf(v, graph.Out, model.EdgeHasColumn)
				}
				g.SourceVertices()
				g.TargetVertices()
			}
		})
		b.Run(name+"/merge", func(b *testing.B) {
			part, _ := graph.New(name)
			buildChain(part, 20, 10)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				g, _ := graph.New(name)
				g.Merge(part)
				g.Merge(part)
			}
		})
	}
}
