package lineage

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/metadata"
	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// resolveColumns runs once a SELECT-shaped scope has been scanned: it marks
// the scanned tables read and pairs every output column with the source
// columns it is derived from. Union branches are resolved separately, each
// against the tables of its own branch.
func (a *analyzer) resolveColumns(h *holder, s *selectScope) error {
	for _, t := range s.tables {
		h.addRead(t.ds, t.alias)
	}
	barriers := append(append([]barrier(nil), s.barriers...), barrier{columns: len(s.columns), tables: len(s.tables)})
	var prev barrier
	for _, b := range barriers {
		cols := s.columns[prev.columns:b.columns]
		group := s.tables[prev.tables:b.tables]
		prev = b

		writes := h.write()
		if len(writes) == 0 {
			continue
		}
		if len(writes) > 1 {
			return a.malformed("more than one write target: " + listNames(writes))
		}
		tgt := writes[0]
		if err := a.resolveGroup(h, tgt, cols, group); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) resolveGroup(h *holder, tgt model.Dataset, cols []model.Column, group []source) error {
	aliases := h.aliasMap(group)
	datasets := visible(group, aliases)
	declared := h.writeColumns()
	lateral := map[string][]model.Column{}
	for i, col := range cols {
		target := col.WithOnlyParent(tgt)
		if len(declared) == len(cols) {
			target = declared[i]
		}
		var resolved []model.Column
		for _, src := range col.Sources {
			if a.lateral && src.Qualifier == "" {
				if prev, ok := lateral[strings.ToLower(src.Name)]; ok {
					real, err := a.fromDataset(h, src.Name, datasets)
					if err != nil {
						return err
					}
					if !real {
						resolved = append(resolved, prev...)
						continue
					}
				}
			}
			srcCols, err := a.toSourceColumns(src, aliases, datasets)
			if err != nil {
				return err
			}
			resolved = append(resolved, srcCols...)
		}
		for _, r := range resolved {
			h.addColumnLineage(r, target)
		}
		if col.FromAlias {
			lateral[strings.ToLower(col.Name)] = resolved
		}
	}
	return nil
}

// visible returns the distinct datasets of group the alias map can reach,
// in declaration order.
func visible(group []source, aliases map[string]model.Dataset) []model.Dataset {
	reachable := map[string]bool{}
	for _, d := range aliases {
		reachable[d.Key()] = true
	}
	var out []model.Dataset
	seen := map[string]bool{}
	for _, s := range group {
		k := s.ds.Key()
		if reachable[k] && !seen[k] {
			seen[k] = true
			out = append(out, s.ds)
		}
	}
	return out
}

// fromDataset reports whether name is a real column of one of datasets,
// as far as metadata or the graph can tell.
func (a *analyzer) fromDataset(h *holder, name string, datasets []model.Dataset) (bool, error) {
	for _, d := range datasets {
		switch d := d.(type) {
		case model.Table:
			cols, err := a.columns(d)
			if err != nil {
				return false, err
			}
			if metadata.Contains(cols, name) {
				return true, nil
			}
		case model.SubQuery:
			for _, c := range h.tableColumns(d) {
				if strings.EqualFold(c.Name, name) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// toSourceColumns turns a source column descriptor into graph columns. A
// qualified descriptor belongs to the dataset its qualifier names, or to a
// table of that name when nothing in scope matches. An unqualified one is
// a candidate of every visible dataset, and an unqualified "*" stands for
// the wildcard of each of them.
func (a *analyzer) toSourceColumns(src model.SourceColumn, aliases map[string]model.Dataset, datasets []model.Dataset) ([]model.Column, error) {
	name := model.Unquote(src.Name)
	if src.Qualifier == "" {
		if name == model.Wildcard {
			out := make([]model.Column, 0, len(datasets))
			for _, d := range datasets {
				out = append(out, model.NewColumn(name).WithOnlyParent(d))
			}
			return out, nil
		}
		col := model.NewColumn(name)
		for _, d := range datasets {
			col = col.WithParent(d)
		}
		return []model.Column{col}, nil
	}
	if d, ok := aliases[strings.ToLower(src.Qualifier)]; ok {
		return []model.Column{model.NewColumn(name).WithOnlyParent(d)}, nil
	}
	t, err := a.table(src.Qualifier)
	if err != nil {
		return nil, err
	}
	return []model.Column{model.NewColumn(name).WithOnlyParent(t)}, nil
}
