package lineage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

func newTestHolder() *holder {
	return &holder{g: graph.NewMemory()}
}

func TestAggregate_SelfUnionIsIdempotent(t *testing.T) {
	res, err := New(Config{}).Analyze(context.Background(), `
INSERT INTO tab2 SELECT * FROM tab1;
INSERT INTO tab3 SELECT a, b FROM tab2;
INSERT OVERWRITE TABLE tab4 SELECT * FROM tab4`)
	require.NoError(t, err)

	doubled := &Result{statements: res.statements, graph: res.graph.Clone()}
	doubled.graph.Merge(res.graph.Clone())

	assert.Equal(t, res.SourceTables(), doubled.SourceTables())
	assert.Equal(t, res.TargetTables(), doubled.TargetTables())
	assert.Equal(t, res.IntermediateTables(), doubled.IntermediateTables())
}

func TestAggregate_ReadWriteProduct(t *testing.T) {
	s1, s2 := model.MustTable("s1"), model.MustTable("s2")
	t1, t2 := model.MustTable("t1"), model.MustTable("t2")
	h := newTestHolder()
	h.addRead(s1, "")
	h.addRead(s2, "")
	h.addWrite(t1)
	h.addWrite(t2)

	g, err := aggregate(graph.NewMemory(), nil, []*holder{h})
	require.NoError(t, err)
	for _, s := range []model.Table{s1, s2} {
		for _, tgt := range []model.Table{t1, t2} {
			assert.True(t, g.HasEdge(s, tgt), "%s -> %s", s, tgt)
		}
	}
}

func TestAggregate_SourceAndTargetOnly(t *testing.T) {
	read, write := newTestHolder(), newTestHolder()
	read.addRead(model.MustTable("s"), "")
	write.addWrite(model.MustTable("t"))

	g, err := aggregate(graph.NewMemory(), nil, []*holder{read, write})
	require.NoError(t, err)
	assert.True(t, g.HasTag(model.MustTable("s"), model.TagSourceOnly))
	assert.True(t, g.HasTag(model.MustTable("t"), model.TagTargetOnly))
}

func TestAggregate_RenameMovesColumns(t *testing.T) {
	src, old, renamed := model.MustTable("src"), model.MustTable("old"), model.MustTable("new")
	insert := newTestHolder()
	insert.addRead(src, "")
	insert.addWrite(old)
	insert.addColumnLineage(model.NewColumn("a").WithOnlyParent(src), model.NewColumn("a").WithOnlyParent(old))
	rename := newTestHolder()
	rename.addRename(old, renamed)

	g, err := aggregate(graph.NewMemory(), nil, []*holder{insert, rename})
	require.NoError(t, err)
	assert.False(t, g.HasVertex(old))
	assert.False(t, g.HasVertex(model.NewColumn("a").WithOnlyParent(old)))
	assert.True(t, g.HasEdge(src, renamed))
	assert.True(t, g.HasEdge(model.NewColumn("a").WithOnlyParent(src), model.NewColumn("a").WithOnlyParent(renamed)))
	assert.False(t, g.HasEdge(renamed, renamed))
}

func TestResolveAmbiguous(t *testing.T) {
	t1, t2, tgt := model.MustTable("t1"), model.MustTable("t2"), model.MustTable("tgt")
	lookup := func(tb model.Table) ([]string, error) {
		if tb.Name == "t1" {
			return []string{"x"}, nil
		}
		return []string{"y"}, nil
	}

	tests := []struct {
		name   string
		column string
		known  []model.Dataset // datasets an earlier statement gave the column
		lookup columnLookup
		want   model.Dataset
	}{
		{name: "settled by metadata", column: "x", lookup: lookup, want: t1},
		{name: "no candidate matches", column: "z", lookup: lookup},
		{name: "no metadata", column: "x"},
		{name: "settled by earlier statement", column: "x", known: []model.Dataset{t2}, want: t2},
		{name: "graph wins over metadata", column: "x", known: []model.Dataset{t2}, lookup: lookup, want: t2},
		{name: "several candidates match", column: "x", known: []model.Dataset{t1, t2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var holders []*holder
			for _, d := range tt.known {
				earlier := newTestHolder()
				earlier.addColumnLineage(
					model.NewColumn(tt.column).WithOnlyParent(model.MustTable("upstream")),
					model.NewColumn(tt.column).WithOnlyParent(d),
				)
				holders = append(holders, earlier)
			}
			h := newTestHolder()
			ambiguous := model.NewColumn(tt.column).WithParent(t1).WithParent(t2)
			out := model.NewColumn("o").WithOnlyParent(tgt)
			h.addColumnLineage(ambiguous, out)
			holders = append(holders, h)

			g, err := aggregate(graph.NewMemory(), tt.lookup, holders)
			require.NoError(t, err)
			if tt.want == nil {
				assert.True(t, g.HasEdge(ambiguous, out))
				return
			}
			settled := model.NewColumn(tt.column).WithOnlyParent(tt.want)
			assert.True(t, g.HasEdge(settled, out))
			assert.False(t, g.HasVertex(ambiguous))
		})
	}
}

func TestHolder_String(t *testing.T) {
	h := newTestHolder()
	h.addRead(model.MustTable("b"), "")
	h.addRead(model.MustTable("a"), "")
	h.addRead(model.NewSubQuery("(SELECT 1)", "sq"), "sq")
	h.addWrite(model.MustTable("c"))
	h.addCTE(model.NewSubQuery("(SELECT 2)", "w"))

	assert.Equal(t, `table read: [<default>.a, <default>.b]
table write: [<default>.c]
table cte: [w]
table drop: []
table rename: []`, h.String())
}

func TestHolder_WriteColumnsKeepOrder(t *testing.T) {
	h := newTestHolder()
	h.addWrite(model.MustTable("t"))
	h.addWriteColumns(model.NewColumn("z"), model.NewColumn("a"), model.NewColumn("m"))

	var got []string
	for _, c := range h.writeColumns() {
		got = append(got, c.Name)
	}
	assert.Equal(t, []string{"z", "a", "m"}, got)
}
