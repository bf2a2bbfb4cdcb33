package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

func readDoc(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path) //nolint:gosec // test output path
	require.NoError(t, err)
	return string(b)
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index := readDoc(t, filepath.Join(dir, "index.md"))
	assert.Contains(t, index, "[`analyze`](/cli/analyze)")
	assert.Contains(t, index, "| `graph_engine` | `SQLLINEAGE_GRAPH_ENGINE` | `--engine` | `memory` |")
	assert.Contains(t, index, "| `history_path` | `SQLLINEAGE_HISTORY_PATH` | `--history` |")
	assert.Contains(t, index, "| `metadata_dsn` | `SQLLINEAGE_METADATA_DSN` | `--metadata-dsn` | - |")

	analyze := readDoc(t, filepath.Join(dir, "analyze.md"))
	assert.Contains(t, analyze, "| `--engine` | - | `graph_engine` |")
	assert.Contains(t, analyze, "| `-e`, `--sql` | - | - |")
	assert.Contains(t, analyze, "## Global Options")
	assert.Contains(t, analyze, "## Examples")
	assert.Equal(t, 0, strings.Count(analyze, "```")%2)

	for _, name := range []string{"graph", "history", "dialects", "version", "completion"} {
		assert.FileExists(t, filepath.Join(dir, name+".md"))
	}
}

func TestFlagRows(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "Output format")
	flags.StringSlice("file", nil, "Files")
	flags.String("hidden", "", "")
	require.NoError(t, flags.MarkHidden("hidden"))

	assert.Equal(t, [][]string{
		{"`--file`", "-", "-", "Files"},
		{"`-o`, `--output`", "-", "`output`", "Output format"},
	}, flagRows(flags))
}

func TestDedent(t *testing.T) {
	assert.Equal(t, "# a\nsqllineage x\n  indented", dedent("\n  # a\n  sqllineage x\n    indented\n"))
}

func TestConfigFields(t *testing.T) {
	fields := configFields()
	require.NotEmpty(t, fields)

	byName := map[string]ConfigField{}
	for _, f := range fields {
		assert.NotEmpty(t, f.Description, "missing description for %s", f.Name)
		byName[f.Name] = f
	}
	assert.Equal(t, "ansi", byName["dialect"].Default)
	assert.Equal(t, "-", byName["default_schema"].Default)
	assert.Equal(t, "list", byName["tables"].Type)
	assert.Equal(t, "bool", byName["verbose"].Type)
}

func TestDialectRow(t *testing.T) {
	tsql, ok := dialect.Get("tsql")
	require.True(t, ok)
	assert.Equal(t, []string{"`tsql`", "Microsoft T-SQL", "`\"id\"` `[id]`", "GO batches"}, dialectRow(tsql))

	ansi, ok := dialect.Get("ansi")
	require.True(t, ok)
	assert.Equal(t, []string{"`ansi` (default)", "ANSI SQL", "`\"id\"`", "-"}, dialectRow(ansi))
}

func TestGenerateDialectDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateDialectDocs(dir))
	require.NoError(t, generateConfigDocs(dir))

	doc := readDoc(t, filepath.Join(dir, "dialects.md"))
	for _, name := range dialect.List() {
		assert.Contains(t, doc, "`"+name+"`")
	}
	assert.Contains(t, readDoc(t, filepath.Join(dir, "configuration.md")), "`history_path`")
}

func TestMarkdownTable(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"A", "B"}, [][]string{{"x|y", "z"}})
	w.Table([]string{"A"}, nil)
	assert.Equal(t, "| A | B |\n| --- | --- |\n| x\\|y | z |\n\n", string(w.Bytes()))
}
