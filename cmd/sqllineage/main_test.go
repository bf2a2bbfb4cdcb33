// Package main provides tests for the sqllineage CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/cli"
)

func testdataDir(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(wd, "testdata")
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "sqllineage")
}

func TestHelpCommand(t *testing.T) {
	out := execute(t, "--help")
	for _, expected := range []string{"analyze", "graph", "history", "dialects", "version"} {
		assert.Contains(t, out, expected)
	}
}

func TestAnalyzeTestdata(t *testing.T) {
	dir := testdataDir(t)
	t.Chdir(t.TempDir())
	etl := filepath.Join(dir, "etl.sql")

	t.Run("tables", func(t *testing.T) {
		out := execute(t, "analyze", "-f", etl)
		assert.Equal(t, `Statements(#): 2
Source Tables:
    raw.customers
    raw.orders
Target Tables:
    mart.revenue
Intermediate Tables:
    stg.orders
`, out)
	})

	t.Run("columns", func(t *testing.T) {
		out := execute(t, "analyze", "-f", etl, "--level", "column", "--metadata", filepath.Join(dir, "schema.yaml"))
		assert.Equal(t, `mart.revenue.customer <- stg.orders.customer <- raw.customers.name
mart.revenue.total <- stg.orders.amount <- raw.orders.amount
stg.orders.id <- raw.orders.id
`, out)
	})
}
