// Package edgeselect implements the deterministic 5-priority edge-selection
// algorithm: given a node's outgoing edges, an Outcome, and a Context
// snapshot, pick at most one edge to traverse next.
package edgeselect

import (
	"sort"
	"strings"

	"github.com/attractor-run/attractor/pkg/condition"
	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
)

// Select picks one edge from edges given o and ctx. Returns false if edges
// is empty. Pure function: identical inputs yield the identical edge.
func Select(edges []graph.Edge, o outcome.Outcome, ctx *pipectx.Context) (graph.Edge, bool) {
	if len(edges) == 0 {
		return graph.Edge{}, false
	}

	// 1. Condition match.
	var conditional []graph.Edge
	for _, e := range edges {
		if e.Condition != "" && condition.Evaluate(e.Condition, o, ctx) {
			conditional = append(conditional, e)
		}
	}
	if len(conditional) > 0 {
		return tiebreak(conditional), true
	}

	// 2. Preferred label.
	if o.PreferredLabel != "" {
		want := normalizeLabel(o.PreferredLabel)
		var matches []graph.Edge
		for _, e := range edges {
			if e.Condition != "" {
				continue
			}
			if normalizeLabel(e.Label) == want {
				matches = append(matches, e)
			}
		}
		if len(matches) > 0 {
			return tiebreak(matches), true
		}
	}

	// 3. Suggested next id, in order.
	for _, id := range o.SuggestedNextIDs {
		for _, e := range edges {
			if e.To == id {
				return e, true
			}
		}
	}

	// 4. Best unconditional.
	var unconditional []graph.Edge
	for _, e := range edges {
		if e.Condition == "" {
			unconditional = append(unconditional, e)
		}
	}
	if len(unconditional) > 0 {
		return tiebreak(unconditional), true
	}

	// 5. Fallback: tiebreak over the full list.
	return tiebreak(append([]graph.Edge(nil), edges...)), true
}

// tiebreak sorts candidates by weight descending, then To ascending, and
// returns the first.
func tiebreak(candidates []graph.Edge) graph.Edge {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		return candidates[i].To < candidates[j].To
	})
	return candidates[0]
}

// normalizeLabel lowercases, trims whitespace, and strips a leading
// single-letter accelerator prefix of the form "[x]", "x)", or "x -".
func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	if len(s) == 0 {
		return s
	}
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx >= 0 && idx <= 2 {
			s = strings.TrimSpace(s[idx+1:])
		}
	} else if len(s) >= 2 && s[1] == ')' {
		s = strings.TrimSpace(s[2:])
	} else if len(s) >= 3 && s[1] == ' ' && s[2] == '-' {
		s = strings.TrimSpace(s[3:])
	}
	return s
}
