package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/cli/config"
	clitest "github.com/leapstack-labs/sqllineage/internal/cli/testutil"
	"github.com/leapstack-labs/sqllineage/internal/store"
	"github.com/leapstack-labs/sqllineage/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Dialect:      "ansi",
		GraphEngine:  "memory",
		Level:        "table",
		OutputFormat: "auto",
		HistoryPath:  config.DefaultHistoryFile,
	}
}

// execute runs cmd with cfg in its context, the way the root command
// prepares it.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewAnalyzeCommand(), use: "analyze", flags: []string{"sql", "file", "level", "dialect", "default-schema", "metadata", "metadata-dsn", "engine", "lateral-alias", "tsql-no-semicolon", "save"}},
		{cmd: NewGraphCommand(), use: "graph", flags: []string{"sql", "file", "level", "compound"}},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"limit"}},
		{cmd: NewDialectsCommand(), use: "dialects"},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestAnalyze_Text(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		mutate func(c *config.Config)
		want   string
	}{
		{
			name: "table level",
			sql:  "INSERT INTO tab2 SELECT * FROM tab1",
			want: "Statements(#): 1\nSource Tables:\n    <default>.tab1\nTarget Tables:\n    <default>.tab2\n",
		},
		{
			name:   "column level",
			sql:    "INSERT INTO tab2 SELECT col1 AS c FROM tab1",
			mutate: func(c *config.Config) { c.Level = "column" },
			want:   "<default>.tab2.c <- <default>.tab1.col1\n",
		},
		{
			name:   "default schema",
			sql:    "INSERT INTO tab2 SELECT * FROM tab1",
			mutate: func(c *config.Config) { c.DefaultSchema = "ods" },
			want:   "Statements(#): 1\nSource Tables:\n    ods.tab1\nTarget Tables:\n    ods.tab2\n",
		},
		{
			name:   "inline metadata",
			sql:    "INSERT INTO tab2 SELECT * FROM tab1",
			mutate: func(c *config.Config) {
				c.Level = "column"
				c.Tables = []config.TableMetadata{{Name: "tab1", Columns: []string{"id", "a"}}}
			},
			want: "<default>.tab2.a <- <default>.tab1.a\n<default>.tab2.id <- <default>.tab1.id\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			out, _, err := execute(t, NewAnalyzeCommand(), cfg, "-e", tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestAnalyze_Verbose(t *testing.T) {
	cfg := testConfig()
	cfg.Verbose = true

	out, _, err := execute(t, NewAnalyzeCommand(), cfg, "-e", "INSERT INTO tab2 SELECT * FROM tab1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Statement #1: INSERT INTO tab2 SELECT * FROM tab1\n"))
	assert.Contains(t, out, "==========\nSummary:\n")
}

func TestAnalyze_MetadataFile(t *testing.T) {
	dir := t.TempDir()
	schema := clitest.WriteFile(t, dir, "schema.yaml", "tab1: [id, a]\n")
	cfg := testConfig()
	cfg.Level = "column"
	cfg.Metadata = schema

	out, _, err := execute(t, NewAnalyzeCommand(), cfg, "-e", "INSERT INTO tab2 SELECT * FROM tab1")
	require.NoError(t, err)
	assert.Equal(t, "<default>.tab2.a <- <default>.tab1.a\n<default>.tab2.id <- <default>.tab1.id\n", out)
}

func TestAnalyze_Files(t *testing.T) {
	dir := t.TempDir()
	a := clitest.WriteFile(t, dir, "a.sql", "INSERT INTO tab2 SELECT * FROM tab1")
	b := clitest.WriteFile(t, dir, "b.sql", "INSERT INTO tab3 SELECT * FROM tab2")

	cfg := testConfig()
	cfg.OutputFormat = "json"
	out, _, err := execute(t, NewAnalyzeCommand(), cfg, "-f", a, "-f", b)
	require.NoError(t, err)

	var got []AnalysisOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Name)
	assert.Equal(t, []string{"<default>.tab1"}, got[0].Sources)
	assert.Equal(t, []string{"<default>.tab2"}, got[0].Targets)
	assert.Equal(t, b, got[1].Name)
	assert.Equal(t, []string{"<default>.tab2"}, got[1].Sources)
	assert.Equal(t, []string{"<default>.tab3"}, got[1].Targets)
	assert.Empty(t, got[1].ColumnPaths)
}

func TestAnalyze_FilesText(t *testing.T) {
	dir := t.TempDir()
	a := clitest.WriteFile(t, dir, "a.sql", "SELECT * FROM tab1")
	b := clitest.WriteFile(t, dir, "b.sql", "SELECT * FROM tab2")

	out, _, err := execute(t, NewAnalyzeCommand(), testConfig(), "-f", a+","+b)
	require.NoError(t, err)
	assert.Contains(t, out, a+"\n")
	assert.Contains(t, out, b+"\n")
	assert.Less(t, strings.Index(out, a), strings.Index(out, b))
}

func TestAnalyze_Stdin(t *testing.T) {
	cmd := NewAnalyzeCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("INSERT INTO tab2 SELECT * FROM tab1"))
	cmd.SetArgs([]string{"-f", "-"})
	ctx := config.WithConfig(context.Background(), testConfig())

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "<default>.tab2")
}

func TestAnalyze_Table(t *testing.T) {
	cfg := testConfig()
	cfg.OutputFormat = "table"

	out, _, err := execute(t, NewAnalyzeCommand(), cfg, "-e", "INSERT INTO tab2 SELECT * FROM tab1")
	require.NoError(t, err)
	assert.Contains(t, out, "ROLE")
	assert.Contains(t, out, "source")
	assert.Contains(t, out, "<default>.tab1")
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		mutate    func(c *config.Config)
		errSubstr string
	}{
		{name: "no input", errSubstr: "no SQL given"},
		{name: "missing file", args: []string{"-f", "does-not-exist.sql"}, errSubstr: "failed to read"},
		{name: "invalid sql", args: []string{"-e", "SELECT FROM tab1"}, errSubstr: "<sql>:"},
		{name: "unsupported statement", args: []string{"-e", "CREATE INDEX i ON t (a)"}, errSubstr: "<sql>:"},
		{
			name:      "bad metadata dsn",
			args:      []string{"-e", "SELECT * FROM tab1"},
			mutate:    func(c *config.Config) { c.MetadataDSN = "nodriver" },
			errSubstr: "invalid metadata dsn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			_, _, err := execute(t, NewAnalyzeCommand(), cfg, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestAnalyze_SaveAndHistory(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryPath = filepath.Join(t.TempDir(), "nested", "history.db")

	_, errOut, err := execute(t, NewAnalyzeCommand(), cfg, "--save", "-e", "INSERT INTO tab2 SELECT * FROM tab1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Saved <sql> as run ")

	cfg.OutputFormat = "json"
	out, _, err := execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)

	var runs []store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, store.Digest("INSERT INTO tab2 SELECT * FROM tab1"), runs[0].SQLDigest)
	assert.Equal(t, "ansi", runs[0].Dialect)
	assert.Equal(t, []string{"<default>.tab2"}, runs[0].Targets)

	cfg.OutputFormat = "text"
	out, _, err = execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "[<default>.tab1] -> [<default>.tab2]")
}

func TestHistory_Empty(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")

	out, _, err := execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "No saved runs\n", out)

	cfg.OutputFormat = "json"
	out, _, err = execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, _, err = execute(t, NewHistoryCommand(), cfg, "--limit", "-1")
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		level     string
		wantNodes []string
	}{
		{
			name:      "table level",
			args:      []string{"-e", "INSERT INTO tab2 SELECT col1 FROM tab1"},
			level:     "table",
			wantNodes: []string{"<default>.tab1", "<default>.tab2"},
		},
		{
			name:      "column level",
			args:      []string{"-e", "INSERT INTO tab2 SELECT col1 FROM tab1"},
			level:     "column",
			wantNodes: []string{"<default>.tab1", "<default>.tab2", "<default>.tab1.col1", "<default>.tab2.col1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Level = tt.level
			out, _, err := execute(t, NewGraphCommand(), cfg, tt.args...)
			require.NoError(t, err)

			var elements []struct {
				Data map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &elements))
			var nodes []string
			for _, e := range elements {
				if _, isEdge := e.Data["source"]; !isEdge {
					nodes = append(nodes, e.Data["id"].(string))
				}
			}
			assert.ElementsMatch(t, tt.wantNodes, nodes)
		})
	}
}

func TestGraph_SingleScript(t *testing.T) {
	dir := t.TempDir()
	a := clitest.WriteFile(t, dir, "a.sql", "SELECT * FROM tab1")

	_, _, err := execute(t, NewGraphCommand(), testConfig(), "-e", "SELECT 1", "-f", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single script")
}

func TestDialects(t *testing.T) {
	out, _, err := execute(t, NewDialectsCommand(), testConfig())
	require.NoError(t, err)
	assert.Contains(t, out, "ansi")
	assert.Contains(t, out, "(default)")

	cfg := testConfig()
	cfg.OutputFormat = "json"
	out, _, err = execute(t, NewDialectsCommand(), cfg)
	require.NoError(t, err)
	var infos []DialectInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.NotEmpty(t, infos)
}
