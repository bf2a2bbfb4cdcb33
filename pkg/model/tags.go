package model

// Tag is a boolean role attached to a vertex.
type Tag string

// Vertex tags.
const (
	TagRead       Tag = "read"
	TagWrite      Tag = "write"
	TagCTE        Tag = "cte"
	TagDrop       Tag = "drop"
	TagSourceOnly Tag = "source_only"
	TagTargetOnly Tag = "target_only"
	TagSelfLoop   Tag = "selfloop"
)

// EdgeType labels an edge.
type EdgeType string

// Edge types.
const (
	// EdgeLineage connects dataset to dataset or column to column.
	EdgeLineage EdgeType = "lineage"
	// EdgeRename connects an old table name to the new one.
	EdgeRename EdgeType = "rename"
	// EdgeHasColumn connects a dataset to one of its columns.
	EdgeHasColumn EdgeType = "has_column"
	// EdgeHasAlias connects a dataset to an alias it was read under.
	EdgeHasAlias EdgeType = "has_alias"
)

// AttrIndex is the edge attribute holding a column's position among the
// write columns of its table.
const AttrIndex = "index"

// Level selects table or column lineage.
type Level string

// Lineage levels.
const (
	LevelTable  Level = "table"
	LevelColumn Level = "column"
)

// IsDataset reports whether n is a Table, Path or SubQuery.
func IsDataset(n Node) bool {
	_, ok := n.(Dataset)
	return ok
}

// IsTable reports whether n is a Table.
func IsTable(n Node) bool {
	_, ok := n.(Table)
	return ok
}

// IsColumn reports whether n is a Column.
func IsColumn(n Node) bool {
	_, ok := n.(Column)
	return ok
}
