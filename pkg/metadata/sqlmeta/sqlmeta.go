// Package sqlmeta is a metadata.Provider reading column lists from a live
// database through database/sql.
//
// Supported drivers are "sqlite" (modernc.org/sqlite), "pgx" (PostgreSQL
// through pgx) and "duckdb". SQLite is read with pragma_table_info, the
// others through information_schema.columns.
package sqlmeta

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

// Provider queries a database for table columns.
type Provider struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the database and verifies the connection.
// If logger is nil, a discard logger is used.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Provider, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverDuckDB:
	default:
		return nil, fmt.Errorf("unsupported metadata driver %q (want %s, %s or %s)", driver, DriverSQLite, DriverPostgres, DriverDuckDB)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return New(db, driver, logger), nil
}

// New wraps an open database. driver selects the query flavor.
func New(db *sql.DB, driver string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{db: db, driver: driver, logger: logger}
}

// ParseDSN splits "driver=dsn", the form the CLI accepts.
func ParseDSN(s string) (driver, dsn string, err error) {
	driver, dsn, ok := strings.Cut(s, "=")
	if !ok || driver == "" || dsn == "" {
		return "", "", fmt.Errorf("invalid metadata dsn %q, expected driver=dsn", s)
	}
	return driver, dsn, nil
}

// Close closes the database.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Columns implements metadata.Provider.
func (p *Provider) Columns(ctx context.Context, table model.Table) ([]string, error) {
	query, args := p.columnsQuery(table)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		p.logger.Debug("table not found in metadata database", slog.String("table", table.String()))
	}
	return columns, nil
}

// columnsQuery builds the flavor specific column listing for table.
func (p *Provider) columnsQuery(table model.Table) (string, []any) {
	if p.driver == DriverSQLite {
		if table.Schema.IsKnown() {
			return `SELECT name FROM pragma_table_info(?, ?) ORDER BY cid`, []any{table.Name, table.Schema.Raw()}
		}
		return `SELECT name FROM pragma_table_info(?) ORDER BY cid`, []any{table.Name}
	}

	query := `SELECT column_name FROM information_schema.columns WHERE lower(table_name) = lower($1)`
	args := []any{table.Name}
	if !table.Schema.IsKnown() {
		query += ` AND table_schema = current_schema()`
		return query + ` ORDER BY ordinal_position`, args
	}
	catalog, schema, qualified := strings.Cut(table.Schema.Raw(), ".")
	if !qualified {
		catalog, schema = "", catalog
	}
	query += ` AND lower(table_schema) = lower($2)`
	args = append(args, schema)
	if catalog != "" {
		query += ` AND lower(table_catalog) = lower($3)`
		args = append(args, catalog)
	}
	return query + ` ORDER BY ordinal_position`, args
}
