package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfgFile = ""
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"analyze", "graph", "history", "dialects", "version", "completion"} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, found.Name())
	}
}

func TestRootCmd_FlagsReachConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "default schema flag",
			args: []string{"analyze", "--default-schema", "ods", "-e", "INSERT INTO tab2 SELECT * FROM tab1"},
			want: "Statements(#): 1\nSource Tables:\n    ods.tab1\nTarget Tables:\n    ods.tab2\n",
		},
		{
			name: "column level flag",
			args: []string{"analyze", "--level", "column", "-e", "INSERT INTO tab2 SELECT col1 FROM tab1"},
			want: "<default>.tab2.col1 <- <default>.tab1.col1\n",
		},
		{
			name: "engine flag",
			args: []string{"analyze", "--engine", "indexed", "-o", "text", "-e", "INSERT INTO tab2 SELECT * FROM tab1"},
			want: "Statements(#): 1\nSource Tables:\n    <default>.tab1\nTarget Tables:\n    <default>.tab2\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRootCmd_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqllineage.yaml"), []byte("default_schema: dw\n"), 0600))

	out, _, err := run(t, "analyze", "-e", "SELECT * FROM tab1")
	require.NoError(t, err)
	assert.Contains(t, out, "dw.tab1")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{name: "level", args: []string{"analyze", "--level", "row", "-e", "SELECT 1"}, errSubstr: "invalid level"},
		{name: "dialect", args: []string{"analyze", "--dialect", "cobol", "-e", "SELECT 1"}, errSubstr: "unknown dialect"},
		{name: "output", args: []string{"dialects", "-o", "xml"}, errSubstr: "invalid output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestRootCmd_Completion(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "sqllineage")
}
