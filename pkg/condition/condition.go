// Package condition parses and evaluates the edge guard grammar:
// "k=v && k!=v", against an outcome and a context snapshot.
package condition

import (
	"strings"

	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
)

type op int

const (
	opEq op = iota
	opNeq
)

type clause struct {
	key   string
	op    op
	value string
}

// Evaluate parses expr and evaluates it against o and ctx. An empty
// expression is true. Any unparsable clause is treated as false (syntactic
// validation belongs to the external graph validator).
func Evaluate(expr string, o outcome.Outcome, ctx *pipectx.Context) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	for _, raw := range strings.Split(expr, "&&") {
		c, ok := parseClause(raw)
		if !ok {
			return false
		}
		if !evalClause(c, o, ctx) {
			return false
		}
	}
	return true
}

func parseClause(raw string) (clause, bool) {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "!="); idx >= 0 {
		return clause{
			key:   strings.TrimSpace(raw[:idx]),
			op:    opNeq,
			value: strings.TrimSpace(raw[idx+2:]),
		}, true
	}
	if idx := strings.Index(raw, "="); idx >= 0 {
		return clause{
			key:   strings.TrimSpace(raw[:idx]),
			op:    opEq,
			value: strings.TrimSpace(raw[idx+1:]),
		}, true
	}
	return clause{}, false
}

func evalClause(c clause, o outcome.Outcome, ctx *pipectx.Context) bool {
	actual := resolve(c.key, o, ctx)
	switch c.op {
	case opEq:
		return actual == c.value
	case opNeq:
		return actual != c.value
	default:
		return false
	}
}

// resolve maps a clause key to its string value. "outcome" is the
// lowercased status name; "preferred_label" is the outcome's field
// verbatim; "context.X" and bare "X" both resolve via the context, with
// "context.X" falling back to the literal key "context.X" if "X" is unset.
func resolve(key string, o outcome.Outcome, ctx *pipectx.Context) string {
	switch {
	case key == "outcome":
		return strings.ToLower(string(o.Status))
	case key == "preferred_label":
		return o.PreferredLabel
	case strings.HasPrefix(key, "context."):
		name := strings.TrimPrefix(key, "context.")
		if v := ctx.GetString(name); v != "" {
			return v
		}
		return ctx.GetString(key)
	default:
		return ctx.GetString(key)
	}
}
