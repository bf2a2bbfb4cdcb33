package model

import (
	"sort"
	"strings"
)

// Wildcard is the name of the column standing for every column of its parent.
const Wildcard = "*"

// SourceColumn describes an upstream column an output column is derived
// from, as written in the query: a raw name and an optional qualifier.
type SourceColumn struct {
	Name      string
	Qualifier string
}

// Column is a column owned by zero, one or several candidate datasets.
//
// A column with exactly one parent is settled and identified by
// "parent.name". A column with several candidate parents is ambiguous and
// stays so until the aggregated graph can tell which one it belongs to.
type Column struct {
	// Name is the unquoted name as written.
	Name string
	// Sources describe how the column is derived within its scope. Only
	// meaningful before column resolution.
	Sources []SourceColumn
	// FromAlias marks a column named by an explicit alias in a select list.
	FromAlias bool

	parents []Dataset
}

// NewColumn creates an unparented column. Without sources the column is
// derived from a column of the same name.
func NewColumn(name string, sources ...SourceColumn) Column {
	name = Unquote(name)
	if len(sources) == 0 {
		sources = []SourceColumn{{Name: name}}
	}
	return Column{Name: name, Sources: sources}
}

// WithParent returns a copy of c with p added to its candidate parents.
func (c Column) WithParent(p Dataset) Column {
	if p == nil {
		return c
	}
	for _, existing := range c.parents {
		if existing.Key() == p.Key() {
			return c
		}
	}
	parents := make([]Dataset, 0, len(c.parents)+1)
	parents = append(parents, c.parents...)
	parents = append(parents, p)
	sort.SliceStable(parents, func(i, j int) bool { return parents[i].String() < parents[j].String() })
	c.parents = parents
	return c
}

// WithOnlyParent returns a copy of c whose single parent is p.
func (c Column) WithOnlyParent(p Dataset) Column {
	c.parents = nil
	return c.WithParent(p)
}

// Parent returns the settled parent, or nil when the column has no parent or
// several candidates.
func (c Column) Parent() Dataset {
	if len(c.parents) == 1 {
		return c.parents[0]
	}
	return nil
}

// Candidates returns the candidate parents sorted by display name.
func (c Column) Candidates() []Dataset {
	out := make([]Dataset, len(c.parents))
	copy(out, c.parents)
	return out
}

// IsAmbiguous reports whether the column has more than one candidate parent.
func (c Column) IsAmbiguous() bool { return len(c.parents) > 1 }

// IsWildcard reports whether the column is "*".
func (c Column) IsWildcard() bool { return c.Name == Wildcard }

// Key returns the identity of the column. Ambiguous columns are keyed by
// their whole candidate set so unrelated ambiguous columns never collapse.
func (c Column) Key() string {
	name := strings.ToLower(c.Name)
	switch len(c.parents) {
	case 0:
		return "column:" + name
	case 1:
		return "column:" + c.parents[0].Key() + "." + name
	}
	keys := make([]string, len(c.parents))
	for i, p := range c.parents {
		keys[i] = p.Key()
	}
	return "column:{" + strings.Join(keys, ",") + "}." + name
}

func (c Column) String() string {
	name := strings.ToLower(c.Name)
	p := c.Parent()
	if p == nil {
		return name
	}
	if _, ok := p.(Path); ok {
		return name
	}
	return p.String() + "." + name
}
