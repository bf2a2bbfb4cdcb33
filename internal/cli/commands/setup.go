package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/cli/config"
	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/store"
	"github.com/leapstack-labs/sqllineage/pkg/metadata"
	"github.com/leapstack-labs/sqllineage/pkg/metadata/sqlmeta"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config and logger the
// root command stored in the command context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// openMetadata builds the metadata provider the config asks for. A database
// DSN wins over a schema file, which wins over tables declared inline.
// Returns a nil provider when none is configured.
func openMetadata(ctx context.Context, cfg *config.Config, logger *slog.Logger) (metadata.Provider, func(), error) {
	noop := func() {}
	switch {
	case cfg.MetadataDSN != "":
		driver, dsn, err := sqlmeta.ParseDSN(cfg.MetadataDSN)
		if err != nil {
			return nil, noop, err
		}
		p, err := sqlmeta.Open(ctx, driver, dsn, logger)
		if err != nil {
			return nil, noop, err
		}
		return p, func() { _ = p.Close() }, nil
	case cfg.Metadata != "":
		p, err := metadata.LoadStaticFile(cfg.Metadata)
		if err != nil {
			return nil, noop, err
		}
		logger.Debug("loaded metadata file", slog.String("path", cfg.Metadata), slog.Int("tables", p.Tables()))
		return p, noop, nil
	case len(cfg.Tables) > 0:
		p, err := metadata.NewStatic(cfg.InlineTables())
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	}
	return nil, noop, nil
}

// openStore opens and migrates the run history database.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	// Ensure history directory exists
	dir := filepath.Dir(cfg.HistoryPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	s, err := store.Open(ctx, cfg.HistoryPath, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// input is one SQL script given on the command line.
type input struct {
	name string
	sql  string
}

// inputOptions holds the flags selecting the SQL to analyze.
type inputOptions struct {
	SQL   string
	Files []string
}

func addInputFlags(cmd *cobra.Command, opts *inputOptions) {
	cmd.Flags().StringVarP(&opts.SQL, "sql", "e", "", "SQL script to analyze")
	cmd.Flags().StringSliceVarP(&opts.Files, "file", "f", nil, "SQL file(s) to analyze, - for stdin")
}

// addAnalysisFlags registers the flags that override analysis options.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("level", config.DefaultLevel, "Lineage level (table|column)")
	f.String("dialect", "", "SQL dialect (see 'sqllineage dialects')")
	f.String("default-schema", "", "Schema for unqualified table names")
	f.String("metadata", "", "YAML file mapping tables to their columns")
	f.String("metadata-dsn", "", "Database to read columns from, as driver=dsn (sqlite, pgx, duckdb)")
	f.String("engine", "", "Graph engine (memory|indexed)")
	f.Bool("lateral-alias", false, "Allow select items to reference aliases defined before them")
	f.Bool("tsql-no-semicolon", false, "Split T-SQL statements not separated by ';'")

	_ = cmd.RegisterFlagCompletionFunc("level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "column"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"memory", "indexed"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// readInputs collects the scripts named by opts in command-line order.
func readInputs(cmd *cobra.Command, opts *inputOptions) ([]input, error) {
	var inputs []input
	if opts.SQL != "" {
		inputs = append(inputs, input{name: "<sql>", sql: opts.SQL})
	}
	for _, path := range opts.Files {
		if path == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			inputs = append(inputs, input{name: "<stdin>", sql: string(data)})
			continue
		}
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs = append(inputs, input{name: path, sql: string(data)})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no SQL given\nHint: pass a script with -e or a file with -f")
	}
	return inputs, nil
}
