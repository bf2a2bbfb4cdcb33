// Package config holds the runtime options of a lineage analysis.
//
// Process wide defaults are read once from SQLLINEAGE_* environment
// variables and never change afterwards. Callers that need different
// options for one analysis attach a Config to the context they pass down,
// so concurrent analyses never see each other's settings.
package config

import (
	"errors"
	"fmt"
)

// Config keys.
const (
	KeyDefaultSchema      = "default_schema"
	KeyDialect            = "dialect"
	KeyTSQLNoSemicolon    = "tsql_no_semicolon"
	KeyLateralColumnAlias = "lateral_column_alias"
	KeyGraphEngine        = "graph_engine"
	KeyDirectory          = "directory"
)

// Config holds the options an analysis runs with.
type Config struct {
	// DefaultSchema qualifies unqualified table names. Empty means the
	// unknown schema.
	DefaultSchema string `koanf:"default_schema"`
	// Dialect selects lexical rules for the parser.
	Dialect string `koanf:"dialect"`
	// TSQLNoSemicolon splits statements that are not separated by ';'.
	TSQLNoSemicolon bool `koanf:"tsql_no_semicolon"`
	// LateralColumnAlias lets a select list reference an alias defined
	// earlier in the same list.
	LateralColumnAlias bool `koanf:"lateral_column_alias"`
	// GraphEngine names the graph engine lineage is held in.
	GraphEngine string `koanf:"graph_engine"`
	// Directory holds sample SQL and metadata files. It can only be set
	// from the environment.
	Directory string `koanf:"directory"`
}

// ErrConfig is matched by every *Error.
var ErrConfig = errors.New("config error")

// Error reports an invalid configuration change.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %q: %s", e.Key, e.Reason)
}

// Is reports whether target is ErrConfig.
func (e *Error) Is(target error) bool { return target == ErrConfig }
