// Package metadata provides table schemas to the lineage engine.
//
// Lineage can be derived from SQL text alone, but some questions cannot be
// answered without knowing the real columns of a table: which table an
// unqualified column belongs to in a join, and what "*" stands for. A
// Provider answers them. Providers never fail on unknown tables, they return
// no columns; errors are reserved for an unreachable or misconfigured
// backend.
package metadata

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// Provider looks up table columns.
type Provider interface {
	// Columns returns the column names of table in declaration order, or nil
	// when the table is unknown.
	Columns(ctx context.Context, table model.Table) ([]string, error)
}

// Static serves columns from an in-memory map.
type Static struct {
	tables map[string][]string
}

// NewStatic creates a provider from a map of table name to columns. Names
// are "schema.table" or bare "table" for the unknown schema, matched case
// insensitively.
func NewStatic(tables map[string][]string) (*Static, error) {
	s := &Static{tables: make(map[string][]string, len(tables))}
	for name, cols := range tables {
		t, err := model.NewTable(name, model.Schema{})
		if err != nil {
			return nil, fmt.Errorf("invalid table name in metadata: %w", err)
		}
		s.tables[t.String()] = append([]string(nil), cols...)
	}
	return s, nil
}

// LoadStaticFile reads a YAML document mapping table names to column lists:
//
//	db1.table1: [id, a, b]
//	db2.table2:
//	  - id
//	  - h
func LoadStaticFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	var tables map[string][]string
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file %s: %w", path, err)
	}
	return NewStatic(tables)
}

// Columns implements Provider.
func (s *Static) Columns(_ context.Context, table model.Table) ([]string, error) {
	return s.tables[table.String()], nil
}

// Tables returns the number of tables known to the provider.
func (s *Static) Tables() int { return len(s.tables) }

// Session overlays columns registered while analyzing a script, such as
// tables created by an earlier statement, on top of a base provider.
type Session struct {
	base Provider

	mu      sync.RWMutex
	overlay map[string][]string
}

// NewSession creates a session over base. A nil base knows no tables.
func NewSession(base Provider) *Session {
	return &Session{base: base, overlay: make(map[string][]string)}
}

// Columns implements Provider, preferring registered columns.
func (s *Session) Columns(ctx context.Context, table model.Table) ([]string, error) {
	s.mu.RLock()
	cols, ok := s.overlay[table.String()]
	s.mu.RUnlock()
	if ok {
		return cols, nil
	}
	if s.base == nil {
		return nil, nil
	}
	return s.base.Columns(ctx, table)
}

// HasBase reports whether a backing provider is configured.
func (s *Session) HasBase() bool { return s.base != nil }

// Register records the columns of table for the rest of the session.
func (s *Session) Register(table model.Table, columns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay[table.String()] = append([]string(nil), columns...)
}

// Deregister forgets every registered table.
func (s *Session) Deregister() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.overlay)
}

// Contains reports whether columns holds name, ignoring case.
func Contains(columns []string, name string) bool {
	for _, c := range columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
