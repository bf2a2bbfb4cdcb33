// Package segment is the read-only syntax tree handed from the parser to the
// lineage engine.
//
// A tree is lossless: trivia (whitespace, newlines, comments) are kept as
// leaf children, so concatenating the leaves of a statement reproduces its
// source text. Consumers that only care about syntax use Code, Child and
// ChildrenOf, which skip trivia.
package segment

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Segment is one node of the tree. Segments are immutable once built.
type Segment struct {
	kind     Kind
	raw      string
	span     token.Span
	children []*Segment
}

// NewLeaf creates a terminal segment.
func NewLeaf(kind Kind, raw string, span token.Span) *Segment {
	return &Segment{kind: kind, raw: raw, span: span}
}

// NewNode creates a branch segment over children. src is the text the
// children were lexed from; the node's raw text is the slice of src between
// its first and last code leaf.
func NewNode(kind Kind, src string, children []*Segment) *Segment {
	s := &Segment{kind: kind, children: children}
	first, last := -1, -1
	for i, c := range children {
		if c.IsTrivia() {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return s
	}
	s.span = token.Span{Start: children[first].span.Start, End: children[last].span.End}
	if s.span.Start.Offset <= s.span.End.Offset && s.span.End.Offset <= len(src) {
		s.raw = src[s.span.Start.Offset:s.span.End.Offset]
	}
	return s
}

// Kind returns the segment kind.
func (s *Segment) Kind() Kind { return s.kind }

// Is reports whether the segment has one of the given kinds.
func (s *Segment) Is(kinds ...Kind) bool {
	if s == nil {
		return false
	}
	for _, k := range kinds {
		if s.kind == k {
			return true
		}
	}
	return false
}

// Raw returns the exact source text covered by the segment, without leading
// or trailing trivia.
func (s *Segment) Raw() string {
	if s == nil {
		return ""
	}
	return s.raw
}

// Upper returns Raw in upper case, the normalized form used for keyword
// comparison.
func (s *Segment) Upper() string {
	return strings.ToUpper(s.Raw())
}

// Span returns the source range of the segment.
func (s *Segment) Span() token.Span { return s.span }

// Children returns all direct children, trivia included.
func (s *Segment) Children() []*Segment {
	if s == nil {
		return nil
	}
	return s.children
}

// Code returns direct children that are not trivia.
func (s *Segment) Code() []*Segment {
	if s == nil {
		return nil
	}
	out := make([]*Segment, 0, len(s.children))
	for _, c := range s.children {
		if !c.IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child of any of the given kinds, or nil.
func (s *Segment) Child(kinds ...Kind) *Segment {
	if s == nil {
		return nil
	}
	for _, c := range s.children {
		if c.Is(kinds...) {
			return c
		}
	}
	return nil
}

// ChildrenOf returns all direct children of any of the given kinds.
func (s *Segment) ChildrenOf(kinds ...Kind) []*Segment {
	if s == nil {
		return nil
	}
	var out []*Segment
	for _, c := range s.children {
		if c.Is(kinds...) {
			out = append(out, c)
		}
	}
	return out
}

// IsTrivia reports whether the segment is whitespace, a newline or a comment.
func (s *Segment) IsTrivia() bool { return s.kind.IsTrivia() }

// IsWhitespace reports whether the segment is whitespace or a newline.
func (s *Segment) IsWhitespace() bool { return s.kind == Whitespace || s.kind == Newline }

// IsComment reports whether the segment is a comment.
func (s *Segment) IsComment() bool { return s.kind == Comment }

// IsKeyword reports whether the segment is a keyword, optionally one of the
// given words (case-insensitive).
func (s *Segment) IsKeyword(words ...string) bool {
	if s == nil || s.kind != Keyword {
		return false
	}
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if strings.EqualFold(s.raw, w) {
			return true
		}
	}
	return false
}

// Walk visits s and its descendants depth-first. Returning false from fn
// skips the children of the visited segment.
func (s *Segment) Walk(fn func(*Segment) bool) {
	if s == nil || !fn(s) {
		return
	}
	for _, c := range s.children {
		c.Walk(fn)
	}
}

// Find returns all descendants (s excluded) of the given kinds, in source
// order, without descending into matches.
func (s *Segment) Find(kinds ...Kind) []*Segment {
	var out []*Segment
	for _, c := range s.Children() {
		c.Walk(func(n *Segment) bool {
			if n.Is(kinds...) {
				out = append(out, n)
				return false
			}
			return true
		})
	}
	return out
}

// Text reconstructs the full source text of the segment, trivia included.
func (s *Segment) Text() string {
	if s == nil {
		return ""
	}
	if len(s.children) == 0 {
		return s.raw
	}
	var b strings.Builder
	for _, c := range s.children {
		b.WriteString(c.Text())
	}
	return b.String()
}

// String renders the tree for debugging.
func (s *Segment) String() string {
	var b strings.Builder
	s.dump(&b, 0)
	return b.String()
}

func (s *Segment) dump(b *strings.Builder, depth int) {
	if s == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(s.kind.String())
	if len(s.children) == 0 {
		b.WriteString(": ")
		b.WriteString(strings.ReplaceAll(s.raw, "\n", `\n`))
	}
	b.WriteByte('\n')
	for _, c := range s.children {
		if c.IsTrivia() {
			continue
		}
		c.dump(b, depth+1)
	}
}
