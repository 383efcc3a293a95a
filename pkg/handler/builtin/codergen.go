package builtin

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/llm"
	"github.com/attractor-run/attractor/pkg/agentloop/profile"
	"github.com/attractor-run/attractor/pkg/agentloop/session"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/filetool"
	"github.com/attractor-run/attractor/pkg/event"
	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/handler"
	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
)

// CodergenConfig wires a codergen handler to its LLM client and the session
// defaults applied to every box-shaped node, unless the node itself
// overrides model or reasoning effort.
type CodergenConfig struct {
	Client            llm.Client
	DefaultModel      string
	BaseInstructions  string
	SessionConfig     session.Config
	EnvPolicy         env.Policy
	IncludeApplyPatch bool
	Bus               *event.Bus
}

// Codergen returns the handler bound to box-shaped nodes: it builds a
// fresh Profile and Session per node, scoped to stageDir, registers the
// core file/shell tools, and drives the node's prompt through
// Session.ProcessInput. Each invocation is an independent top-level
// session (depth 0), so a goal-gated codergen node never itself counts
// against another session's subagent depth.
func Codergen(cfg CodergenConfig) handler.Handler {
	return handler.HandlerFunc(func(ctx context.Context, n *graph.Node, _ *pipectx.Context, _ *graph.Graph, stageDir string) (outcome.Outcome, error) {
		if cfg.Client == nil {
			return outcome.Outcome{Status: outcome.StatusFail, FailureReason: "codergen: no LLM client configured"}, nil
		}
		if n.Prompt == "" {
			return outcome.Outcome{Status: outcome.StatusFail, FailureReason: "codergen: node has no prompt"}, nil
		}

		model := n.Model
		if model == "" {
			model = cfg.DefaultModel
		}

		prof := profile.New(n.ID, model, cfg.BaseInstructions)
		if err := filetool.RegisterCore(prof.Tools, cfg.IncludeApplyPatch); err != nil {
			return outcome.Outcome{Status: outcome.StatusFail, FailureReason: fmt.Sprintf("codergen: registering tools: %v", err)}, nil
		}

		environment := env.NewLocalExecutionEnvironment(stageDir, cfg.EnvPolicy)

		sessCfg := cfg.SessionConfig
		if n.ReasoningEffort != "" {
			sessCfg.ReasoningEffort = n.ReasoningEffort
		}

		sess := session.New(cfg.Client, prof, environment, sessCfg, cfg.Bus, 0)
		defer sess.Close()

		result, err := sess.ProcessInput(ctx, n.Prompt)
		if err != nil {
			return outcome.Outcome{Status: outcome.StatusFail, FailureReason: fmt.Sprintf("codergen: %v", err)}, nil
		}

		return outcome.Outcome{
			Status:         outcome.StatusSuccess,
			ContextUpdates: map[string]any{n.ID + ".response": result.Content},
			Notes:          result.Content,
		}, nil
	})
}

// RegisterDefaults binds every built-in handler type the core ships with —
// start, exit, conditional, wait.human, codergen — onto reg, so a fresh
// Registry from handler.NewRegistry() is immediately able to resolve every
// entry in handler.ShapeToType without the caller wiring each one by hand.
func RegisterDefaults(reg *handler.Registry, interviewer Interviewer, codergenCfg CodergenConfig) error {
	bindings := []struct {
		nodeType string
		h        handler.Handler
	}{
		{"start", Start()},
		{"exit", Exit()},
		{"conditional", Conditional()},
		{"wait.human", WaitHuman(interviewer)},
		{"codergen", Codergen(codergenCfg)},
	}
	for _, b := range bindings {
		if err := reg.RegisterType(b.nodeType, b.h); err != nil {
			return fmt.Errorf("builtin: registering %q: %w", b.nodeType, err)
		}
	}
	return nil
}
