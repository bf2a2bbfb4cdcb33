package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
)

// dialectRow summarizes the lexical rules of a registered dialect.
func dialectRow(d *dialect.Dialect) []string {
	quotes := []string{}
	for _, open := range []byte{'"', '`', '['} {
		if closeQ, ok := d.IdentQuote(open); ok {
			quotes = append(quotes, InlineCode(string(open)+"id"+string(closeQ)))
		}
	}

	var features []string
	if d.BackslashEscapes {
		features = append(features, "backslash escapes")
	}
	if d.HashComments {
		features = append(features, "# comments")
	}
	if d.DollarQuoting {
		features = append(features, "dollar quoting")
	}
	if d.BatchSeparator {
		features = append(features, "GO batches")
	}
	if len(features) == 0 {
		features = append(features, "-")
	}

	name := InlineCode(d.Name)
	if d.Name == dialect.DefaultName {
		name += " (default)"
	}
	return []string{name, d.Description, strings.Join(quotes, " "), strings.Join(features, ", ")}
}

// generateDialectDocs writes the dialect reference page.
func generateDialectDocs(outDir string) error {
	log.Printf("Generating dialect docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Dialects", "SQL dialects understood by sqllineage")
	w.GeneratedMarker()

	w.Header(1, "Dialects")
	w.Paragraph("The dialect decides how scripts are split into statements and how quoted identifiers, strings and comments are read. Select one with `--dialect` or the `dialect` key.")

	var rows [][]string
	for _, name := range dialect.List() {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		rows = append(rows, dialectRow(d))
	}
	w.Table([]string{"Name", "Description", "Identifier quotes", "Features"}, rows)

	filename := filepath.Join(outDir, "dialects.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated dialects.md")
	return nil
}
