package graph

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/model"
)

// Element is one node or edge of the visualization export, in the
// {"data": {...}} shape cytoscape.js consumes.
type Element struct {
	Data map[string]any `json:"data"`
}

// unknownParent names the group of columns whose parent is not settled.
const unknownParent = "<unknown>"

// Export lists the vertices of g followed by its edges. With compound set,
// every column node names its parent dataset, and one node per parent is
// appended so columns can be drawn nested inside their dataset.
func Export(g Operator, compound bool) []Element {
	var out []Element
	if compound {
		var parents []Element
		seen := map[string]bool{}
		datasets := map[string]bool{}
		for _, v := range g.Vertices() {
			data := map[string]any{"id": v.String(), "type": TypeName(v)}
			if model.IsDataset(v) {
				datasets[v.String()] = true
			}
			if c, ok := v.(model.Column); ok {
				name, typ := unknownParent, "Table or SubQuery"
				if p := c.Parent(); p != nil {
					name, typ = p.String(), TypeName(p)
				}
				candidates := make([]map[string]any, 0)
				for _, p := range c.Candidates() {
					candidates = append(candidates, map[string]any{"name": p.String(), "type": TypeName(p)})
				}
				data["parent"] = name
				data["parent_candidates"] = candidates
				if !seen[name] {
					seen[name] = true
					parents = append(parents, Element{Data: map[string]any{"id": name, "type": typ}})
				}
			}
			out = append(out, Element{Data: data})
		}
		for _, p := range parents {
			if !datasets[p.Data["id"].(string)] {
				out = append(out, p)
			}
		}
	} else {
		for _, v := range g.Vertices() {
			out = append(out, Element{Data: map[string]any{"id": v.String()}})
		}
	}
	for i, e := range g.Edges() {
		out = append(out, Element{Data: map[string]any{
			"id":     fmt.Sprintf("e%d", i),
			"source": e.Source.String(),
			"target": e.Target.String(),
		}})
	}
	return out
}

// TypeName returns the kind of a node as shown in exports.
func TypeName(n model.Node) string {
	switch n.(type) {
	case model.Table:
		return "Table"
	case model.Path:
		return "Path"
	case model.SubQuery:
		return "SubQuery"
	case model.Column:
		return "Column"
	case model.Alias:
		return "Alias"
	}
	return fmt.Sprintf("%T", n)
}
