package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

func leaf(kind Kind, raw string, off int) *Segment {
	return NewLeaf(kind, raw, token.Span{
		Start: token.Position{Line: 1, Column: off + 1, Offset: off},
		End:   token.Position{Line: 1, Column: off + len(raw) + 1, Offset: off + len(raw)},
	})
}

// builds the tree for " select a -- c\n"
func sample() (string, *Segment) {
	src := " select a -- c\n"
	ref := NewNode(ColumnReference, src, []*Segment{leaf(Identifier, "a", 8)})
	clause := NewNode(SelectClause, src, []*Segment{
		leaf(Whitespace, " ", 0),
		leaf(Keyword, "select", 1),
		leaf(Whitespace, " ", 7),
		NewNode(SelectClauseElement, src, []*Segment{ref}),
		leaf(Whitespace, " ", 9),
		leaf(Comment, "-- c", 10),
		leaf(Newline, "\n", 14),
	})
	return src, NewNode(SelectStatement, src, []*Segment{clause})
}

func TestRawTrimsTrivia(t *testing.T) {
	src, stmt := sample()
	assert.Equal(t, "select a", stmt.Raw())
	assert.Equal(t, src, stmt.Text())
	assert.Equal(t, "SELECT A", stmt.Upper())
}

func TestNavigation(t *testing.T) {
	_, stmt := sample()
	clause := stmt.Child(SelectClause)
	require.NotNil(t, clause)

	code := clause.Code()
	require.Len(t, code, 2)
	assert.True(t, code[0].IsKeyword("SELECT"))
	assert.False(t, code[0].IsKeyword("FROM"))
	assert.Equal(t, SelectClauseElement, code[1].Kind())

	assert.Len(t, clause.ChildrenOf(Whitespace, Newline), 4)
	assert.Len(t, clause.ChildrenOf(Whitespace), 3)
	assert.Nil(t, clause.Child(FromClause))

	refs := stmt.Find(ColumnReference)
	require.Len(t, refs, 1)
	assert.Equal(t, "a", refs[0].Raw())
}

func TestNilSafety(t *testing.T) {
	var s *Segment
	assert.Equal(t, "", s.Raw())
	assert.Nil(t, s.Child(Keyword))
	assert.Nil(t, s.Code())
	assert.False(t, s.Is(Keyword))
}

func TestKindClassification(t *testing.T) {
	assert.True(t, SelectStatement.IsStatement())
	assert.True(t, CallStatement.IsStatement())
	assert.False(t, SelectClause.IsStatement())
	assert.True(t, Identifier.IsLeaf())
	assert.True(t, Comment.IsTrivia())
	assert.Equal(t, "select_clause_element", SelectClauseElement.String())
	assert.Equal(t, "unknown", Kind(255).String())
}
