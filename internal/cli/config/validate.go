package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch model.Level(c.Level) {
	case model.LevelTable, model.LevelColumn:
	default:
		return fmt.Errorf("invalid level %q (want %s or %s)", c.Level, model.LevelTable, model.LevelColumn)
	}
	if !slices.Contains(output.Modes(), c.OutputFormat) {
		return fmt.Errorf("invalid output %q (want one of %s)", c.OutputFormat, strings.Join(output.Modes(), ", "))
	}
	if _, err := dialect.Resolve(c.Dialect); err != nil {
		return err
	}
	if _, ok := graph.Get(c.GraphEngine); !ok {
		return fmt.Errorf("unknown graph engine %q (available: %s)", c.GraphEngine, strings.Join(graph.ListEngines(), ", "))
	}
	if c.Metadata != "" && c.MetadataDSN != "" {
		return fmt.Errorf("metadata and metadata_dsn are mutually exclusive")
	}
	for _, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("tables: entry without a name")
		}
	}
	return nil
}
