package config_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDialect, cfg.Dialect)
	assert.Equal(t, config.DefaultGraphEngine, cfg.GraphEngine)
	assert.False(t, cfg.LateralColumnAlias)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SQLLINEAGE_DEFAULT_SCHEMA", "ods")
	t.Setenv("SQLLINEAGE_TSQL_NO_SEMICOLON", "true")
	t.Setenv("SQLLINEAGE_DIRECTORY", "/tmp/data")
	t.Setenv("SQLLINEAGE_GRAPH_ENGINE", "indexed")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "ods", cfg.DefaultSchema)
	assert.True(t, cfg.TSQLNoSemicolon)
	assert.Equal(t, "/tmp/data", cfg.Directory)
	assert.Equal(t, "indexed", cfg.GraphEngine)
}

func TestSet(t *testing.T) {
	var cfg config.Config
	cfg, err := cfg.Set(config.KeyDefaultSchema, "dw")
	require.NoError(t, err)
	cfg, err = cfg.Set(config.KeyLateralColumnAlias, true)
	require.NoError(t, err)
	assert.Equal(t, "dw", cfg.DefaultSchema)
	assert.True(t, cfg.LateralColumnAlias)

	tests := []struct {
		key   string
		value any
	}{
		{config.KeyDirectory, "/elsewhere"},
		{"other", "xxx"},
		{config.KeyTSQLNoSemicolon, "yes"},
		{config.KeyDialect, 3},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := cfg.Set(tt.key, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrConfig))
			var cerr *config.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.key, cerr.Key)
		})
	}
}

func TestContext(t *testing.T) {
	base := context.Background()
	assert.Equal(t, config.Defaults(), config.FromContext(base))

	ctx, err := config.Override(base, config.KeyDefaultSchema, "ods")
	require.NoError(t, err)
	assert.Equal(t, "ods", config.FromContext(ctx).DefaultSchema)
	assert.Equal(t, config.DefaultDialect, config.FromContext(ctx).Dialect)
	assert.Equal(t, config.Defaults().DefaultSchema, config.FromContext(base).DefaultSchema, "parent context unchanged")

	same, err := config.Override(ctx, config.KeyDirectory, "x")
	require.Error(t, err)
	assert.Equal(t, ctx, same)
}

func TestContext_ConcurrentCallersAreIsolated(t *testing.T) {
	schemas := []string{"stg", "ods", "dwd", "dw", "dwa", "dwv"}
	var wg sync.WaitGroup
	got := make([]string, len(schemas))
	for i, s := range schemas {
		wg.Add(1)
		go func(i int, s string) {
			defer wg.Done()
			ctx, err := config.Override(context.Background(), config.KeyDefaultSchema, s)
			if err != nil {
				return
			}
			got[i] = config.FromContext(ctx).DefaultSchema
		}(i, s)
	}
	wg.Wait()
	assert.Equal(t, schemas, got)
}
