package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// Run is one saved analysis.
type Run struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	SQLDigest    string          `json:"sql_digest"`
	Dialect      string          `json:"dialect"`
	Statements   int             `json:"statements"`
	Sources      []string        `json:"sources"`
	Targets      []string        `json:"targets"`
	Intermediate []string        `json:"intermediate"`
	ColumnPaths  []string        `json:"column_paths"`
	Graph        json.RawMessage `json:"graph,omitempty"`
}

// Digest returns the hex sha256 of a script.
func Digest(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// NewRun captures the outcome of analyzing sql as a Run ready to save.
func NewRun(sql, dialect string, res *lineage.Result) (Run, error) {
	graph, err := json.Marshal(res.Export(model.LevelColumn, false))
	if err != nil {
		return Run{}, fmt.Errorf("failed to encode graph: %w", err)
	}
	run := Run{
		SQLDigest:    Digest(sql),
		Dialect:      dialect,
		Statements:   len(res.Statements()),
		Sources:      datasetNames(res.SourceTables()),
		Targets:      datasetNames(res.TargetTables()),
		Intermediate: datasetNames(res.IntermediateTables()),
		Graph:        graph,
	}
	for _, p := range res.ColumnLineage(true) {
		run.ColumnPaths = append(run.ColumnPaths, p.String())
	}
	return run, nil
}

func datasetNames(ds []model.Dataset) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

// timeLayout has a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, created_at, sql_digest, dialect, statements, sources, targets, intermediate, column_paths, graph`

// SaveRun stores run and returns its new ID. ID and CreatedAt are assigned
// by the store.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	run.ID = generateID()
	run.CreatedAt = time.Now().UTC()

	lists := make([]string, 0, 4)
	for _, l := range [][]string{run.Sources, run.Targets, run.Intermediate, run.ColumnPaths} {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return "", fmt.Errorf("failed to encode run: %w", err)
		}
		lists = append(lists, string(b))
	}
	graph := string(run.Graph)
	if graph == "" {
		graph = "[]"
	}

	s.logger.Debug("saving run", slog.String("id", run.ID), slog.String("digest", run.SQLDigest))

	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.Format(timeLayout),
		run.SQLDigest,
		run.Dialect,
		run.Statements,
		lists[0], lists[1], lists[2], lists[3],
		graph,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return run.ID, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit, newest
// first. The graph of listed runs is not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		run.Graph = nil
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                                        Run
		createdAt                                  string
		sources, targets, intermediate, paths, gph string
	)
	if err := sc.Scan(&run.ID, &createdAt, &run.SQLDigest, &run.Dialect, &run.Statements,
		&sources, &targets, &intermediate, &paths, &gph); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t

	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{sources, &run.Sources},
		{targets, &run.Targets},
		{intermediate, &run.Intermediate},
		{paths, &run.ColumnPaths},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("invalid run column: %w", err)
		}
	}
	run.Graph = json.RawMessage(gph)
	return &run, nil
}
