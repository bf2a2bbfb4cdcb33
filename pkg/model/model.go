// Package model defines the vertices of a lineage graph: datasets (tables,
// paths and subqueries), their columns and alias names, together with the
// tags and edge types the graph is built from.
//
// Every vertex has a Key. Two values with the same Key are the same vertex,
// however they were constructed, so re-deriving an entity collapses onto the
// existing node.
package model

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Node is a vertex of a lineage graph.
type Node interface {
	// Key is the identity of the node inside a graph.
	Key() string
	// String is the display form used in reports.
	String() string
}

// Dataset is anything that can be read from or written to: a Table, a Path
// or a SubQuery.
type Dataset interface {
	Node
	dataset()
}

// Aliased is implemented by datasets that can be referred to by an alias in
// the scope they are read from.
type Aliased interface {
	Dataset
	AliasName() string
}

// UnknownSchema is the display name of a schema that was not specified.
const UnknownSchema = "<default>"

// Schema is a namespace for tables.
type Schema struct {
	raw string
}

// NewSchema creates a schema from a possibly quoted name. An empty name is
// the unknown schema.
func NewSchema(name string) Schema {
	name = Unquote(name)
	if name == "" || name == UnknownSchema {
		return Schema{}
	}
	return Schema{raw: name}
}

// Raw returns the unquoted name as written, or "" for the unknown schema.
func (s Schema) Raw() string { return s.raw }

// IsKnown reports whether the schema was specified.
func (s Schema) IsKnown() bool { return s.raw != "" }

func (s Schema) String() string {
	if s.raw == "" {
		return UnknownSchema
	}
	return strings.ToLower(s.raw)
}

// Table is a physical table or view.
type Table struct {
	Schema Schema
	Name   string
	// Alias is the name the table is referred to by in the current scope.
	// It is not part of the identity.
	Alias string
}

// NewTable creates a table from a possibly qualified name. The name is split
// on its last dot, so "a.b.c" has schema "a.b" and name "c". schema is used
// when name is unqualified.
func NewTable(name string, schema Schema) (Table, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		n := Unquote(name)
		return Table{Schema: schema, Name: n, Alias: n}, nil
	}
	schemaName, tableName := name[:idx], name[idx+1:]
	if len(strings.Split(schemaName, ".")) > 2 {
		return Table{}, fmt.Errorf("invalid format for table name: %s", name)
	}
	n := Unquote(tableName)
	return Table{Schema: NewSchema(unquoteParts(schemaName)), Name: n, Alias: n}, nil
}

// MustTable is NewTable for names known to be valid. It panics otherwise.
func MustTable(name string) Table {
	t, err := NewTable(name, Schema{})
	if err != nil {
		panic(err)
	}
	return t
}

// WithAlias returns a copy of t referred to by alias. An empty alias keeps
// the current one.
func (t Table) WithAlias(alias string) Table {
	if alias != "" {
		t.Alias = alias
	}
	return t
}

// Key returns the identity of the table.
func (t Table) Key() string { return "table:" + t.String() }

func (t Table) String() string { return t.Schema.String() + "." + strings.ToLower(t.Name) }

// AliasName returns the alias, defaulting to the bare table name.
func (t Table) AliasName() string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Alias
}

func (Table) dataset() {}

// Path is a file or object store location used as a dataset.
type Path struct {
	URI string
}

// NewPath creates a path from a possibly quoted location.
func NewPath(uri string) Path {
	return Path{URI: Unquote(uri)}
}

// Key returns the identity of the path.
func (p Path) Key() string { return "path:" + p.URI }

func (p Path) String() string { return p.URI }

func (Path) dataset() {}

// SubQuery is an anonymous relation defined by a nested query. Two
// subqueries with the same text are the same dataset.
type SubQuery struct {
	// Query is the exact source text of the query body.
	Query string
	// Alias is the name given in the enclosing scope, or a synthesized one.
	Alias string
}

// NewSubQuery creates a subquery for the given body text. When alias is empty
// a stable name derived from the text is used.
func NewSubQuery(query, alias string) SubQuery {
	if alias == "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(query))
		alias = fmt.Sprintf("subquery_%d", h.Sum32())
	}
	return SubQuery{Query: query, Alias: alias}
}

// Key returns the identity of the subquery.
func (q SubQuery) Key() string { return "subquery:" + q.Query }

func (q SubQuery) String() string { return q.Alias }

// AliasName returns the alias.
func (q SubQuery) AliasName() string { return q.Alias }

func (SubQuery) dataset() {}

// Alias is the alias name a dataset is read under. It is linked to the
// dataset by a HasAlias edge.
type Alias string

// Key returns the identity of the alias.
func (a Alias) Key() string { return "alias:" + string(a) }

func (a Alias) String() string { return string(a) }

// Unquote strips one level of identifier quoting: "x", `x` or [x].
func Unquote(name string) string {
	if len(name) >= 2 && name[0] == '[' && name[len(name)-1] == ']' {
		return strings.Trim(name, "[]")
	}
	return strings.Trim(strings.Trim(name, "`"), `"`)
}

func unquoteParts(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = Unquote(p)
	}
	return strings.Join(parts, ".")
}
