// Package builtin provides the built-in node handlers: the trivial ones
// that need no LLM or tool access (start, exit, conditional, and
// wait.human, in this file) and the LLM-driven codergen handler
// (codergen.go).
package builtin

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/handler"
	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
)

// Start does nothing but succeed. The engine executes the start node like
// any other node (through the retry path), so it appears in the run's
// completed nodes.
func Start() handler.Handler {
	return handler.HandlerFunc(func(_ context.Context, _ *graph.Node, _ *pipectx.Context, _ *graph.Graph, _ string) (outcome.Outcome, error) {
		return outcome.Outcome{Status: outcome.StatusSuccess}, nil
	})
}

// Exit succeeds unconditionally; goal-gate enforcement happens in the
// engine before an exit node is accepted as terminal, not inside the
// handler.
func Exit() handler.Handler {
	return handler.HandlerFunc(func(_ context.Context, _ *graph.Node, _ *pipectx.Context, _ *graph.Graph, _ string) (outcome.Outcome, error) {
		return outcome.Outcome{Status: outcome.StatusSuccess}, nil
	})
}

// Conditional succeeds and leaves all branching to the edge selector; its
// node attributes carry no decision logic of their own in the core model
// (branching lives on edge conditions).
func Conditional() handler.Handler {
	return handler.HandlerFunc(func(_ context.Context, _ *graph.Node, _ *pipectx.Context, _ *graph.Graph, _ string) (outcome.Outcome, error) {
		return outcome.Outcome{Status: outcome.StatusSuccess}, nil
	})
}

// Interviewer maps a Question to an Answer, possibly blocking or timing
// out. It is the out-of-scope human-in-the-loop UI collaborator; the
// wait.human handler only depends on this narrow interface.
type Interviewer interface {
	Ask(ctx context.Context, question string) (answer string, err error)
}

// WaitHuman asks the configured Interviewer the node's prompt and records
// the answer under context key "<node_id>.answer". A missing or erroring
// interviewer is reported as FAIL, never as a panic.
func WaitHuman(interviewer Interviewer) handler.Handler {
	return handler.HandlerFunc(func(ctx context.Context, n *graph.Node, _ *pipectx.Context, _ *graph.Graph, _ string) (outcome.Outcome, error) {
		if interviewer == nil {
			return outcome.Outcome{Status: outcome.StatusFail, FailureReason: "wait.human: no interviewer configured"}, nil
		}
		answer, err := interviewer.Ask(ctx, n.Prompt)
		if err != nil {
			return outcome.Outcome{Status: outcome.StatusFail, FailureReason: fmt.Sprintf("wait.human: %v", err)}, nil
		}
		return outcome.Outcome{
			Status:         outcome.StatusSuccess,
			ContextUpdates: map[string]any{n.ID + ".answer": answer},
		}, nil
	})
}
