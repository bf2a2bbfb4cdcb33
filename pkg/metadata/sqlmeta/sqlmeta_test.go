package sqlmeta_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/testutil"
	"github.com/leapstack-labs/sqllineage/pkg/metadata/sqlmeta"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

func TestColumns_InformationSchema(t *testing.T) {
	tests := []struct {
		name  string
		table string
		query string
		args  []driver.Value
	}{
		{
			name:  "unknown schema",
			table: "orders",
			query: `SELECT column_name FROM information_schema.columns WHERE lower(table_name) = lower($1) AND table_schema = current_schema() ORDER BY ordinal_position`,
			args:  []driver.Value{"orders"},
		},
		{
			name:  "schema",
			table: "sales.orders",
			query: `SELECT column_name FROM information_schema.columns WHERE lower(table_name) = lower($1) AND lower(table_schema) = lower($2) ORDER BY ordinal_position`,
			args:  []driver.Value{"orders", "sales"},
		},
		{
			name:  "catalog and schema",
			table: "dw.sales.orders",
			query: `SELECT column_name FROM information_schema.columns WHERE lower(table_name) = lower($1) AND lower(table_schema) = lower($2) AND lower(table_catalog) = lower($3) ORDER BY ordinal_position`,
			args:  []driver.Value{"orders", "sales", "dw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("amount"))

			p := sqlmeta.New(db, sqlmeta.DriverPostgres, testutil.NewTestLogger(t))
			cols, err := p.Columns(context.Background(), model.MustTable(tt.table))
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "amount"}, cols)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestColumns_UnknownTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("pragma_table_info").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	p := sqlmeta.New(db, sqlmeta.DriverSQLite, nil)
	cols, err := p.Columns(context.Background(), model.MustTable("missing"))
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestColumns_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("information_schema").WillReturnError(assert.AnError)

	p := sqlmeta.New(db, sqlmeta.DriverDuckDB, nil)
	_, err = p.Columns(context.Background(), model.MustTable("t"))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to query columns of <default>.t")
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	setup, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = setup.Exec(`CREATE TABLE orders (id INTEGER, customer_id INTEGER, amount REAL)`)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	ctx := context.Background()
	p, err := sqlmeta.Open(ctx, sqlmeta.DriverSQLite, path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	cols, err := p.Columns(ctx, model.MustTable("orders"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer_id", "amount"}, cols)

	cols, err = p.Columns(ctx, model.MustTable("main.orders"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer_id", "amount"}, cols)

	cols, err = p.Columns(ctx, model.MustTable("nope"))
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := sqlmeta.Open(context.Background(), "mysql", "dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported metadata driver")
}

func TestParseDSN(t *testing.T) {
	driver, dsn, err := sqlmeta.ParseDSN("pgx=postgres://u@localhost/db?x=1")
	require.NoError(t, err)
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, "postgres://u@localhost/db?x=1", dsn)

	for _, bad := range []string{"", "sqlite", "=x", "sqlite="} {
		_, _, err := sqlmeta.ParseDSN(bad)
		assert.Error(t, err, bad)
	}
}
