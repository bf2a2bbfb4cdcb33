// Package lineage derives table and column lineage from SQL.
//
// A Runner parses a script, extracts one lineage holder per statement and
// folds them into a single graph:
//
//	r := lineage.New(lineage.Config{Metadata: provider})
//	res, err := r.Analyze(ctx, "INSERT INTO t SELECT a FROM s")
//	res.SourceTables() // [<default>.s]
//	res.TargetTables() // [<default>.t]
//
// Per-call options (default schema, dialect, lateral column aliases, graph
// engine) are read from ctx with config.FromContext.
//
// Extraction walks each statement tree depth-first. Every scope (statement
// body, CTE, subquery) gets its own holder, which is merged into the
// enclosing one once the scope is done. Output columns of a SELECT-shaped
// scope are paired with their source columns after all its clauses have
// been scanned, so aliases declared anywhere in FROM are visible.
package lineage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqllineage/pkg/config"
	"github.com/leapstack-labs/sqllineage/pkg/graph"
	"github.com/leapstack-labs/sqllineage/pkg/metadata"
	"github.com/leapstack-labs/sqllineage/pkg/model"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
)

// Config configures a Runner.
type Config struct {
	// Metadata provides real table columns (optional).
	Metadata metadata.Provider
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Runner analyzes SQL scripts. It holds no per-run state and may be used
// concurrently.
type Runner struct {
	meta   metadata.Provider
	logger *slog.Logger
}

// New creates a runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{meta: cfg.Metadata, logger: logger}
}

// Analyze parses sql and returns the lineage of all its statements. The
// first statement that cannot be analyzed aborts the run.
func (r *Runner) Analyze(ctx context.Context, sql string) (*Result, error) {
	cfg := config.FromContext(ctx)
	factory, ok := graph.Get(cfg.GraphEngine)
	if !ok {
		_, err := graph.New(cfg.GraphEngine)
		return nil, fmt.Errorf("failed to create graph: %w", err)
	}
	session := metadata.NewSession(r.meta)
	defer session.Deregister()

	a := &analyzer{
		ctx:      ctx,
		newGraph: factory,
		meta:     session,
		schema:   model.NewSchema(cfg.DefaultSchema),
		lateral:  cfg.LateralColumnAlias,
		logger:   r.logger,
		opts:     parser.Options{Dialect: cfg.Dialect, NoSemicolon: cfg.TSQLNoSemicolon},
	}
	stmts, err := a.parse(sql)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	holders := make([]*holder, 0, len(stmts))
	for i, s := range stmts {
		h, err := a.analyzeTree(s)
		if err != nil {
			return nil, err
		}
		a.register(h)
		r.logger.Debug("analyzed statement",
			"index", i,
			"kind", s.Tree.Kind().String(),
			"read", listNames(committed(h.read())),
			"write", listNames(committed(h.write())))
		holders = append(holders, h)
		res.statements = append(res.statements, statement{sql: s.Raw, h: h})
	}
	g, err := aggregate(factory(), a.columns, holders)
	if err != nil {
		return nil, err
	}
	res.graph = g
	return res, nil
}

// parse splits and parses sql with the dialect options of the run.
func (a *analyzer) parse(sql string) ([]parser.Statement, error) {
	stmts, err := parser.Parse(sql, a.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	// A violation in any statement fails the whole script before the
	// first one is extracted.
	for _, s := range stmts {
		if len(s.Violations) > 0 {
			return nil, &InvalidSyntaxError{SQL: s.Raw, Violations: s.Violations}
		}
	}
	return stmts, nil
}

// analyzeTree extracts the holder of one parsed statement.
func (a *analyzer) analyzeTree(s parser.Statement) (*holder, error) {
	prev := a.sql
	a.sql = s.Raw
	defer func() { a.sql = prev }()
	return a.extractStatement(s.Tree)
}

// register makes the concrete columns of tables written by a statement
// known to the statements after it.
func (a *analyzer) register(h *holder) {
	for _, w := range committed(h.write()) {
		t, ok := w.(model.Table)
		if !ok {
			continue
		}
		cols := h.tableColumns(t)
		if len(cols) == 0 {
			continue
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		a.meta.Register(t, names)
	}
}
