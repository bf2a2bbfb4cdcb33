package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

// DialectInfo is the JSON form of a registered dialect.
type DialectInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Long:  `List the SQL dialects accepted by --dialect.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDialects(cmd)
		},
	}
}

func runDialects(cmd *cobra.Command) error {
	r := NewCommandContext(cmd).Renderer

	infos := make([]DialectInfo, 0)
	for _, name := range dialect.List() {
		d, _ := dialect.Get(name)
		infos = append(infos, DialectInfo{Name: d.Name, Description: d.Description, Default: name == dialect.DefaultName})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(infos)
	case output.ModeTable:
		t := r.Table("", "Dialect", "Description")
		for _, d := range infos {
			t.AppendRow([]any{d.Name, d.Description})
		}
		t.Render()
	default:
		for _, d := range infos {
			marker := ""
			if d.Default {
				marker = r.Styles().Muted.Render(" (default)")
			}
			r.Printf("%-12s %s%s\n", d.Name, d.Description, marker)
		}
	}
	return nil
}
