package commands

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/store"
	pkgconfig "github.com/leapstack-labs/sqllineage/pkg/config"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	inputOptions
	Save bool
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the lineage of SQL scripts",
		Long: `Analyze SQL scripts and report the tables they read and write.

At table level the report lists source, target and intermediate tables.
At column level every column path is printed as target <- ... <- source.
Several files are analyzed concurrently, each as its own script.

Output adapts to environment:
  - Terminal: tables
  - Piped/Scripted: plain text`,
		Example: `  # Analyze a statement
  sqllineage analyze -e "INSERT INTO tab2 SELECT * FROM tab1"

  # Column lineage of a file, resolving columns against a schema file
  sqllineage analyze -f etl.sql --level column --metadata schema.yaml

  # Read columns from a live database
  sqllineage analyze -f etl.sql --level column --metadata-dsn "pgx=postgres://localhost/dw"

  # Analyze several files and save the runs
  sqllineage analyze -f a.sql -f b.sql --save -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	addInputFlags(cmd, &opts.inputOptions)
	addAnalysisFlags(cmd)
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Save the runs to the history database")

	return cmd
}

// analysis is the lineage of one input.
type analysis struct {
	input
	result *lineage.Result
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions) error {
	cc := NewCommandContext(cmd)
	inputs, err := readInputs(cmd, &opts.inputOptions)
	if err != nil {
		return err
	}

	results, err := analyzeInputs(cmd.Context(), cc, inputs)
	if err != nil {
		return err
	}

	if opts.Save {
		if err := saveRuns(cmd.Context(), cc, results); err != nil {
			return err
		}
	}

	level := model.Level(cc.Cfg.Level)
	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return analyzeJSON(r, level, results)
	case output.ModeTable:
		analyzeTable(r, level, results)
	default:
		analyzeText(r, level, cc.Cfg.Verbose, results)
	}
	return nil
}

// analyzeInputs runs the inputs concurrently and returns their results in
// input order. Every input gets its own context-scoped options.
func analyzeInputs(ctx context.Context, cc *CommandContext, inputs []input) ([]analysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	meta, closeMeta, err := openMetadata(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	defer closeMeta()

	runner := lineage.New(lineage.Config{Metadata: meta, Logger: cc.Logger})
	results := make([]analysis, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, in := range inputs {
		g.Go(func() error {
			actx := pkgconfig.WithConfig(gctx, cc.Cfg.Analysis())
			res, err := runner.Analyze(actx, in.sql)
			if err != nil {
				return fmt.Errorf("%s: %w", in.name, err)
			}
			cc.Logger.Debug("analyzed input", slog.String("name", in.name), slog.Int("statements", len(res.Statements())))
			results[i] = analysis{input: in, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func saveRuns(ctx context.Context, cc *CommandContext, results []analysis) error {
	s, err := openStore(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	dialect := cc.Cfg.Analysis().Dialect
	for _, a := range results {
		run, err := store.NewRun(a.sql, dialect, a.result)
		if err != nil {
			return err
		}
		id, err := s.SaveRun(ctx, run)
		if err != nil {
			return err
		}
		cc.Renderer.Success(fmt.Sprintf("Saved %s as run %s", a.name, id))
	}
	return nil
}

// analyzeText prints the reports the way the lineage package formats them.
func analyzeText(r *output.Renderer, level model.Level, verbose bool, results []analysis) {
	for i, a := range results {
		if len(results) > 1 {
			if i > 0 {
				r.Println("")
			}
			r.Header(1, a.name)
		}
		switch {
		case level == model.LevelColumn:
			r.Printf("%s", a.result.ColumnReport())
		case verbose:
			r.Printf("%s", a.result.Verbose())
		default:
			r.Printf("%s", a.result.String())
		}
	}
}

func analyzeTable(r *output.Renderer, level model.Level, results []analysis) {
	for _, a := range results {
		title := ""
		if len(results) > 1 {
			title = a.name
		}
		if level == model.LevelColumn {
			t := r.Table(title, "Target", "Lineage")
			for _, p := range a.result.ColumnLineage(true) {
				t.AppendRow([]any{p[len(p)-1].String(), p.String()})
			}
			t.Render()
			continue
		}
		t := r.Table(title, "Role", "Table")
		for _, row := range []struct {
			role string
			ds   []model.Dataset
		}{
			{"source", a.result.SourceTables()},
			{"target", a.result.TargetTables()},
			{"intermediate", a.result.IntermediateTables()},
		} {
			for _, d := range row.ds {
				t.AppendRow([]any{row.role, d.String()})
			}
		}
		t.AppendFooter([]any{"statements", len(a.result.Statements())})
		t.Render()
	}
}

// AnalysisOutput is the JSON form of one analyzed input.
type AnalysisOutput struct {
	Name         string   `json:"name"`
	Statements   int      `json:"statements"`
	Sources      []string `json:"sources"`
	Targets      []string `json:"targets"`
	Intermediate []string `json:"intermediate"`
	ColumnPaths  []string `json:"column_paths,omitempty"`
}

func analyzeJSON(r *output.Renderer, level model.Level, results []analysis) error {
	out := make([]AnalysisOutput, 0, len(results))
	for _, a := range results {
		o := AnalysisOutput{
			Name:         a.name,
			Statements:   len(a.result.Statements()),
			Sources:      names(a.result.SourceTables()),
			Targets:      names(a.result.TargetTables()),
			Intermediate: names(a.result.IntermediateTables()),
		}
		if level == model.LevelColumn {
			for _, p := range a.result.ColumnLineage(true) {
				o.ColumnPaths = append(o.ColumnPaths, p.String())
			}
		}
		out = append(out, o)
	}
	return r.JSON(out)
}

func names(ds []model.Dataset) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}
