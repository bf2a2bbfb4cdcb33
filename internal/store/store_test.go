package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/testutil"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Migrate(t *testing.T) {
	s := setupTestStore(t)

	version, err := s.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, s.Migrate())
}

func TestStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	id, err := s.SaveRun(ctx, Run{SQLDigest: Digest("SELECT 1"), Dialect: "ansi"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate())

	run, err := reopened.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ansi", run.Dialect)
	assert.Equal(t, path, reopened.Path())
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sql := "INSERT INTO tab2 SELECT col1 FROM tab1; INSERT INTO tab3 SELECT col1 FROM tab2"
	res, err := lineage.New(lineage.Config{}).Analyze(ctx, sql)
	require.NoError(t, err)
	run, err := NewRun(sql, "ansi", res)
	require.NoError(t, err)

	id, err := s.SaveRun(ctx, run)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, Digest(sql), got.SQLDigest)
	assert.Equal(t, 2, got.Statements)
	assert.Equal(t, []string{"<default>.tab1"}, got.Sources)
	assert.Equal(t, []string{"<default>.tab3"}, got.Targets)
	assert.Equal(t, []string{"<default>.tab2"}, got.Intermediate)
	assert.Equal(t, []string{"<default>.tab3.col1 <- <default>.tab2.col1 <- <default>.tab1.col1"}, got.ColumnPaths)

	var elements []map[string]any
	require.NoError(t, json.Unmarshal(got.Graph, &elements))
	assert.NotEmpty(t, elements)
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestStore_ListRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, d := range []string{"ansi", "mysql", "tsql"} {
		id, err := s.SaveRun(ctx, Run{SQLDigest: Digest(d), Dialect: d, Sources: []string{"a"}})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all newest first", limit: 10, want: []string{ids[2], ids[1], ids[0]}},
		{name: "limited", limit: 2, want: []string{ids[2], ids[1]}},
		{name: "zero", limit: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.limit)
			require.NoError(t, err)
			var got []string
			for _, r := range runs {
				got = append(got, r.ID)
				assert.Nil(t, r.Graph)
				assert.Equal(t, []string{"a"}, r.Sources)
				assert.Empty(t, r.Targets)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_NotOpened(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SaveRun(ctx, Run{})
	assert.Error(t, err)
	_, err = s.GetRun(ctx, "x")
	assert.Error(t, err)
	_, err = s.ListRuns(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, s.Migrate())
	assert.NoError(t, s.Close())
}

func TestDigest(t *testing.T) {
	assert.Equal(t, Digest("SELECT 1"), Digest("SELECT 1"))
	assert.NotEqual(t, Digest("SELECT 1"), Digest("SELECT 2"))
	assert.Len(t, Digest(""), 64)
}
