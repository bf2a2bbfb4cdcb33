package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqllineage/internal/cli"
	"github.com/leapstack-labs/sqllineage/internal/cli/config"
)

// documented returns the commands that get a page.
func documented(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// generateCLIDocs writes an index page plus one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range documented(root) {
		pages[cmd.Name()+".md"] = commandPage(cmd)
	}

	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(outDir, name), pages[name], 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for sqllineage")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/sqllineage/cmd/sqllineage@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))

	w.Header(2, "Configuration Sources")
	w.Paragraph("Each setting is resolved from, highest first: a flag given on the command line, " +
		"the environment variable, `sqllineage.yaml` (or the file passed to `--config`), the default.")
	w.Table([]string{"Key", "Environment", "Flags", "Default"}, sourceRows(root))

	return w.Bytes()
}

// sourceRows lists every config key with the variable and flags that set it.
func sourceRows(root *cobra.Command) [][]string {
	setters := map[string]map[string]bool{}
	visit := func(f *pflag.Flag) {
		if key, ok := config.ConfigKey(f.Name); ok {
			if setters[key] == nil {
				setters[key] = map[string]bool{}
			}
			setters[key][InlineCode("--"+f.Name)] = true
		}
	}
	root.PersistentFlags().VisitAll(visit)
	for _, cmd := range documented(root) {
		cmd.LocalFlags().VisitAll(visit)
	}

	defaults := config.DefaultValues()
	var rows [][]string
	for _, key := range config.ConfigKeys() {
		flags := make([]string, 0, len(setters[key]))
		for f := range setters[key] {
			flags = append(flags, f)
		}
		sort.Strings(flags)
		if len(flags) == 0 {
			flags = append(flags, "-")
		}
		rows = append(rows, []string{
			InlineCode(key),
			InlineCode(config.EnvVar(key)),
			strings.Join(flags, ", "),
			defaultCell(defaults[key]),
		})
	}
	return rows
}

func defaultCell(v any) string {
	if v == nil || fmt.Sprint(v) == "" {
		return "-"
	}
	return InlineCode(fmt.Sprint(v))
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		w.Table(flagHeaders, flagRows(cmd.LocalFlags()))
	}

	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		w.Table(flagHeaders, flagRows(cmd.InheritedFlags()))
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w.Bytes()
}

var flagHeaders = []string{"Option", "Default", "Config key", "Description"}

// flagRows renders one row per visible flag. Flags that only carry command
// input have no config key.
func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option = InlineCode("-"+f.Shorthand) + ", " + option
		}

		def := "-"
		if f.DefValue != "" && f.DefValue != "[]" {
			def = InlineCode(f.DefValue)
		}

		key := "-"
		if k, ok := config.ConfigKey(f.Name); ok {
			key = InlineCode(k)
		}
		rows = append(rows, []string{option, def, key, cleanDescription(f.Usage)})
	})
	return rows
}

// dedent strips the indentation shared by all non-blank lines.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	for i, line := range lines {
		if len(line) >= common && common > 0 {
			lines[i] = line[common:]
		}
	}
	return strings.Join(lines, "\n")
}
