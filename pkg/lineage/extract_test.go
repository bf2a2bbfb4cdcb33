package lineage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

func leaf(kind segment.Kind, raw string, off int) *segment.Segment {
	return segment.NewLeaf(kind, raw, token.Span{
		Start: token.Position{Line: 1, Column: off + 1, Offset: off},
		End:   token.Position{Line: 1, Column: off + len(raw) + 1, Offset: off + len(raw)},
	})
}

// fromItem wraps ref as the table expression of a FROM element.
func fromItem(src string, ref *segment.Segment) *segment.Segment {
	te := segment.NewNode(segment.TableExpression, src, []*segment.Segment{ref})
	return segment.NewNode(segment.FromExpressionElement, src, []*segment.Segment{te})
}

func TestFromElement_Locations(t *testing.T) {
	const src = "'s3://bucket/key'"
	tests := []struct {
		name    string
		ref     *segment.Segment
		want    []model.Dataset
		wantErr error
	}{
		{
			name: "quoted path",
			ref: segment.NewNode(segment.StorageLocation, src, []*segment.Segment{
				leaf(segment.Literal, src, 0),
			}),
			want: []model.Dataset{model.NewPath("s3://bucket/key")},
		},
		{
			name:    "empty file reference",
			ref:     segment.NewNode(segment.FileReference, src, nil),
			wantErr: ErrMalformedStatement,
		},
		{
			name: "trivia only",
			ref: segment.NewNode(segment.StorageLocation, " ", []*segment.Segment{
				leaf(segment.Whitespace, " ", 0),
			}),
			wantErr: ErrMalformedStatement,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &analyzer{ctx: context.Background(), newGraph: func() graph.Operator { return graph.NewMemory() }, sql: src}
			s := &selectScope{}
			err := a.fromElement(fromItem(src, tt.ref), a.newHolder(scope{}), s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.tables)
				return
			}
			require.NoError(t, err)
			var got []model.Dataset
			for _, it := range s.tables {
				got = append(got, it.ds)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
