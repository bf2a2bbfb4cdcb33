package lineage

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/model"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
)

// columnOf builds the output column of a select list element. The column
// is named by its alias, by the referenced column, or by the expression
// text, and carries the source columns found in the expression.
func (a *analyzer) columnOf(elem *segment.Segment, ctes []model.SubQuery) (model.Column, error) {
	var expr *segment.Segment
	for _, c := range elem.Code() {
		if !c.Is(segment.AliasExpression) {
			expr = c
			break
		}
	}
	if expr == nil {
		return model.Column{}, &MalformedStatementError{Reason: "empty select list element", SQL: elem.Raw()}
	}
	sources, err := a.sourcesOf(expr, ctes)
	if err != nil {
		return model.Column{}, err
	}
	if alias := elem.Child(segment.AliasExpression); alias != nil {
		if name := aliasOf(alias); name != "" {
			return model.Column{Name: name, Sources: sources, FromAlias: true}, nil
		}
	}
	switch expr.Kind() {
	case segment.ColumnReference:
		src := refSource(expr)
		return model.Column{Name: src.Name, Sources: sources}, nil
	case segment.WildcardExpression:
		return model.Column{Name: model.Wildcard, Sources: sources}, nil
	}
	return model.Column{Name: expr.Raw(), Sources: sources}, nil
}

// sourcesOf collects the columns an expression reads. Function names, data
// types, keywords and literals are not columns; "*" inside a function call
// is. A scalar subquery contributes the source columns of its own output.
func (a *analyzer) sourcesOf(seg *segment.Segment, ctes []model.SubQuery) ([]model.SourceColumn, error) {
	switch seg.Kind() {
	case segment.ColumnReference:
		return []model.SourceColumn{refSource(seg)}, nil
	case segment.WildcardExpression:
		return []model.SourceColumn{wildcardSource(seg)}, nil
	case segment.Symbol:
		if seg.Raw() == model.Wildcard {
			return []model.SourceColumn{{Name: model.Wildcard}}, nil
		}
		return nil, nil
	case segment.Bracketed:
		if b, q := queryIn(seg); q != nil {
			return a.scalarSources(b, q, ctes)
		}
	case segment.FunctionName, segment.DataType:
		return nil, nil
	}
	if seg.Kind().IsLeaf() {
		return nil, nil
	}
	var out []model.SourceColumn
	for _, c := range seg.Code() {
		srcs, err := a.sourcesOf(c, ctes)
		if err != nil {
			return nil, err
		}
		out = append(out, srcs...)
	}
	return out, nil
}

// scalarSources analyzes a subquery used as a value and returns the first
// column of every lineage path ending at one of its output columns.
func (a *analyzer) scalarSources(bracket, query *segment.Segment, ctes []model.SubQuery) ([]model.SourceColumn, error) {
	sq := model.NewSubQuery(bracket.Raw(), "")
	h, err := a.extractQuery(query, scope{ctes: ctes, write: []model.Dataset{sq}})
	if err != nil {
		return nil, err
	}
	var out []model.SourceColumn
	seen := map[string]bool{}
	for _, tgt := range h.writeColumns() {
		for _, root := range rootsOf(h, tgt, map[string]bool{}) {
			src := model.SourceColumn{Name: root.Name}
			if t, ok := root.Parent().(model.Table); ok {
				src.Qualifier = t.String()
				if !t.Schema.IsKnown() {
					src.Qualifier = t.Name
				}
			}
			key := strings.ToLower(src.Qualifier + "." + src.Name)
			if !seen[key] {
				seen[key] = true
				out = append(out, src)
			}
		}
	}
	return out, nil
}

// rootsOf walks lineage edges upstream from c to the columns nothing else
// feeds.
func rootsOf(h *holder, c model.Column, visiting map[string]bool) []model.Column {
	if visiting[c.Key()] {
		return nil
	}
	visiting[c.Key()] = true
	defer delete(visiting, c.Key())
	srcs := h.sourceColumns(c)
	if len(srcs) == 0 {
		return []model.Column{c}
	}
	var out []model.Column
	for _, s := range srcs {
		out = append(out, rootsOf(h, s, visiting)...)
	}
	return out
}

// refSource splits a column reference into its name and the dotted
// qualifier before it.
func refSource(ref *segment.Segment) model.SourceColumn {
	parts := nameParts(ref)
	if len(parts) == 0 {
		return model.SourceColumn{Name: ref.Raw()}
	}
	return model.SourceColumn{
		Name:      parts[len(parts)-1],
		Qualifier: strings.Join(parts[:len(parts)-1], "."),
	}
}

func wildcardSource(w *segment.Segment) model.SourceColumn {
	return model.SourceColumn{Name: model.Wildcard, Qualifier: strings.Join(nameParts(w), ".")}
}

// nameParts returns the unquoted identifiers of a dotted name.
func nameParts(s *segment.Segment) []string {
	var parts []string
	for _, c := range s.Code() {
		if c.Is(segment.Identifier, segment.QuotedIdentifier) {
			parts = append(parts, model.Unquote(c.Raw()))
		}
	}
	return parts
}

// aliasOf returns the name an AliasExpression introduces.
func aliasOf(alias *segment.Segment) string {
	if alias == nil {
		return ""
	}
	for _, c := range alias.Code() {
		switch c.Kind() {
		case segment.Identifier, segment.QuotedIdentifier, segment.Literal:
			return stripQuotes(c.Raw())
		case segment.Bracketed:
			if ref := c.Child(segment.ColumnReference); ref != nil {
				return refSource(ref).Name
			}
		}
	}
	return ""
}

// stripQuotes removes one level of identifier or string quoting.
func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return model.Unquote(s)
}

// queryIn looks through nested parentheses for a query. It returns the
// innermost bracket holding the query and the query itself, or nils.
func queryIn(b *segment.Segment) (*segment.Segment, *segment.Segment) {
	for b.Is(segment.Bracketed) {
		var inner []*segment.Segment
		for _, c := range b.Code() {
			if !c.Is(segment.Symbol) {
				inner = append(inner, c)
			}
		}
		if len(inner) != 1 {
			return nil, nil
		}
		switch inner[0].Kind() {
		case segment.SelectStatement, segment.SetExpression, segment.WithCompoundStatement:
			return b, inner[0]
		case segment.Bracketed:
			b = inner[0]
		default:
			return nil, nil
		}
	}
	return nil, nil
}

// subqueriesIn finds the queries nested in seg, without descending into
// the queries found.
func subqueriesIn(seg *segment.Segment) []subquery {
	var out []subquery
	seg.Walk(func(n *segment.Segment) bool {
		if !n.Is(segment.Bracketed) {
			return true
		}
		if b, q := queryIn(n); q != nil {
			out = append(out, subquery{ds: model.NewSubQuery(b.Raw(), ""), query: q})
			return false
		}
		return true
	})
	return out
}
