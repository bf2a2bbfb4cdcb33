package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved analysis runs",
		Long: `List the runs saved with 'sqllineage analyze --save', newest first.

Runs are kept in a SQLite database (default: .sqllineage/history.db,
override with --history or history_path in sqllineage.yaml).`,
		Example: `  # Last 20 runs
  sqllineage history

  # Last 5 runs as JSON
  sqllineage history --limit 5 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	if limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	cc := NewCommandContext(cmd)

	s, err := openStore(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	runs, err := s.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if runs == nil {
			runs = []*store.Run{}
		}
		return r.JSON(runs)
	case output.ModeTable:
		t := r.Table("", "ID", "Created", "Dialect", "Statements", "Sources", "Targets")
		for _, run := range runs {
			t.AppendRow([]any{
				run.ID,
				run.CreatedAt.Local().Format(time.DateTime),
				run.Dialect,
				run.Statements,
				strings.Join(run.Sources, "\n"),
				strings.Join(run.Targets, "\n"),
			})
		}
		t.Render()
	default:
		if len(runs) == 0 {
			r.Println(r.Styles().Muted.Render("No saved runs"))
			return nil
		}
		for _, run := range runs {
			r.Printf("%s  %s  %s  %d statement(s)  [%s] -> [%s]\n",
				run.ID,
				run.CreatedAt.Local().Format(time.DateTime),
				run.Dialect,
				run.Statements,
				strings.Join(run.Sources, ", "),
				strings.Join(run.Targets, ", "))
		}
	}
	return nil
}
