// Package config provides configuration management for the sqllineage CLI.
//
// Options come from built-in defaults, a sqllineage.yaml file, SQLLINEAGE_*
// environment variables and command-line flags, in increasing precedence.
// The analysis options share their keys with pkg/config so the same
// environment variables drive both the library and the CLI.
package config

import (
	pkgconfig "github.com/leapstack-labs/sqllineage/pkg/config"
)

// Config holds all CLI configuration options.
type Config struct {
	DefaultSchema      string          `koanf:"default_schema"`
	Dialect            string          `koanf:"dialect"`
	TSQLNoSemicolon    bool            `koanf:"tsql_no_semicolon"`
	LateralColumnAlias bool            `koanf:"lateral_column_alias"`
	GraphEngine        string          `koanf:"graph_engine"`
	Level              string          `koanf:"level"`
	OutputFormat       string          `koanf:"output"`
	Metadata           string          `koanf:"metadata"`     // YAML file of table columns
	MetadataDSN        string          `koanf:"metadata_dsn"` // driver=dsn
	HistoryPath        string          `koanf:"history_path"`
	Verbose            bool            `koanf:"verbose"`
	Tables             []TableMetadata `koanf:"tables"`
}

// TableMetadata declares the columns of one table inline in the config
// file. Columns may be a YAML list or a comma separated string.
type TableMetadata struct {
	Name    string   `koanf:"name"`
	Columns []string `koanf:"columns"`
}

// Default configuration values.
const (
	DefaultLevel       = "table"
	DefaultOutput      = "auto" // Auto-detect: TTY=table, non-TTY=text
	DefaultHistoryFile = ".sqllineage/history.db"
)

// Analysis returns the options a lineage run is configured with.
func (c *Config) Analysis() pkgconfig.Config {
	cfg := pkgconfig.Config{
		DefaultSchema:      c.DefaultSchema,
		Dialect:            c.Dialect,
		TSQLNoSemicolon:    c.TSQLNoSemicolon,
		LateralColumnAlias: c.LateralColumnAlias,
		GraphEngine:        c.GraphEngine,
		Directory:          pkgconfig.Defaults().Directory,
	}
	cfg.ApplyDefaults()
	return cfg
}

// InlineTables returns the tables declared in the config file as a map of
// table name to columns.
func (c *Config) InlineTables() map[string][]string {
	if len(c.Tables) == 0 {
		return nil
	}
	out := make(map[string][]string, len(c.Tables))
	for _, t := range c.Tables {
		out[t.Name] = append(out[t.Name], t.Columns...)
	}
	return out
}
