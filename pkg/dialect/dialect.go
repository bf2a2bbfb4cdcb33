// Package dialect holds the lexical differences between SQL dialects that
// matter for lineage extraction: how identifiers are quoted, how strings
// escape, which comment markers exist and how statements are separated.
//
// Dialects are registered in a process-wide registry at init time and looked
// up by name.
package dialect

// Dialect describes one SQL dialect.
type Dialect struct {
	Name        string
	Description string

	// identQuotes maps an opening identifier quote to its closing quote.
	identQuotes map[byte]byte

	// BackslashEscapes is true when '\' escapes the next char in strings.
	BackslashEscapes bool
	// HashComments is true when '#' starts a line comment.
	HashComments bool
	// DollarQuoting is true when $tag$...$tag$ strings are allowed.
	DollarQuoting bool
	// BatchSeparator is true when a line holding only GO ends a batch.
	BatchSeparator bool
}

// IdentQuote returns the closing quote for an identifier opened with open.
func (d *Dialect) IdentQuote(open byte) (byte, bool) {
	if d == nil {
		return 0, false
	}
	c, ok := d.identQuotes[open]
	return c, ok
}

// Builder constructs a Dialect.
type Builder struct {
	d *Dialect
}

// NewDialect starts a dialect definition. Double-quoted identifiers are
// always enabled.
func NewDialect(name string) *Builder {
	return &Builder{d: &Dialect{
		Name:        name,
		identQuotes: map[byte]byte{'"': '"'},
	}}
}

// Describe sets a one-line description shown by the CLI.
func (b *Builder) Describe(text string) *Builder {
	b.d.Description = text
	return b
}

// Backticks enables `quoted` identifiers.
func (b *Builder) Backticks() *Builder {
	b.d.identQuotes['`'] = '`'
	return b
}

// Brackets enables [quoted] identifiers.
func (b *Builder) Brackets() *Builder {
	b.d.identQuotes['['] = ']'
	return b
}

// BackslashEscapes enables backslash escapes inside string literals.
func (b *Builder) BackslashEscapes() *Builder {
	b.d.BackslashEscapes = true
	return b
}

// HashComments enables '#' line comments.
func (b *Builder) HashComments() *Builder {
	b.d.HashComments = true
	return b
}

// DollarQuoting enables $$ string literals.
func (b *Builder) DollarQuoting() *Builder {
	b.d.DollarQuoting = true
	return b
}

// BatchSeparator enables GO batch separators.
func (b *Builder) BatchSeparator() *Builder {
	b.d.BatchSeparator = true
	return b
}

// Build returns the finished dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}
