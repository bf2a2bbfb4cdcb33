package lineage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/parser"
	"github.com/leapstack-labs/sqllineage/pkg/segment"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnsupportedStatement = errors.New("unsupported statement")
	ErrMalformedStatement   = errors.New("malformed statement")
	ErrInvalidSyntax        = errors.New("invalid syntax")
	ErrMetadataProvider     = errors.New("metadata provider error")
)

// UnsupportedStatementError is returned for a statement kind the parser
// recognises but lineage extraction does not handle.
type UnsupportedStatementError struct {
	Kind segment.Kind
	SQL  string
}

func (e *UnsupportedStatementError) Error() string {
	return fmt.Sprintf("unsupported statement type %s: %s", e.Kind, abbreviate(e.SQL))
}

func (e *UnsupportedStatementError) Is(target error) bool { return target == ErrUnsupportedStatement }

// MalformedStatementError is returned when an element extraction relies on
// is missing or has an unexpected shape.
type MalformedStatementError struct {
	Reason string
	SQL    string
}

func (e *MalformedStatementError) Error() string {
	return fmt.Sprintf("malformed statement: %s: %s", e.Reason, abbreviate(e.SQL))
}

func (e *MalformedStatementError) Is(target error) bool { return target == ErrMalformedStatement }

// InvalidSyntaxError is returned when the parser could not understand a
// statement.
type InvalidSyntaxError struct {
	SQL        string
	Violations []parser.Violation
}

func (e *InvalidSyntaxError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("invalid syntax in %q: %s", abbreviate(e.SQL), strings.Join(msgs, "; "))
}

func (e *InvalidSyntaxError) Is(target error) bool { return target == ErrInvalidSyntax }

// MetadataError wraps a failure of the metadata provider.
type MetadataError struct {
	Schema string
	Table  string
	Err    error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to get columns of %s.%s: %v", e.Schema, e.Table, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

func (e *MetadataError) Is(target error) bool { return target == ErrMetadataProvider }

func abbreviate(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > 80 {
		return sql[:77] + "..."
	}
	return sql
}
