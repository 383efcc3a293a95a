package session

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
	"github.com/attractor-run/attractor/pkg/agentloop/turn"
)

// SubAgentResult is the outcome of a completed subagent.
type SubAgentResult struct {
	Output    string
	Success   bool
	TurnsUsed int
}

// SubAgentHandle tracks a child Session spawned by a parent.
type SubAgentHandle struct {
	ID      string
	Session *Session
	Status  string // running, completed, failed, closed
	Result  *SubAgentResult
}

// RegisterSubagentTools adds spawn_agent/send_input/wait/close_agent to
// parent's tool registry. It is a no-op once parent.Depth reaches
// maxSubagentDepth, bounding subagent nesting at the tool-availability
// level rather than at call time. It is also a no-op if the tools are
// already present, since a spawned subagent shares its parent's profile
// (and therefore tool registry) and calls this again via its own New.
func RegisterSubagentTools(parent *Session) error {
	if parent.Depth >= parent.config.MaxSubagentDepth {
		return nil
	}
	if _, ok := parent.profile.Tools.Lookup("spawn_agent"); ok {
		return nil
	}

	spawn, err := functiontool.New(
		functiontool.Config{Name: "spawn_agent", Description: "Spawn a subagent to handle a scoped task autonomously."},
		func(ctx context.Context, _ env.ExecutionEnvironment, args struct {
			Task     string `json:"task" jsonschema:"required,description=Natural language task description"`
			MaxTurns int    `json:"max_turns,omitempty" jsonschema:"description=Turn limit,default=50"`
		}) (string, error) {
			return parent.spawnSubagent(ctx, args.Task, args.MaxTurns)
		},
	)
	if err != nil {
		return err
	}

	sendInput, err := functiontool.New(
		functiontool.Config{Name: "send_input", Description: "Send a message to a running subagent."},
		func(ctx context.Context, _ env.ExecutionEnvironment, args struct {
			AgentID string `json:"agent_id" jsonschema:"required"`
			Message string `json:"message" jsonschema:"required"`
		}) (string, error) {
			return parent.sendSubagentInput(ctx, args.AgentID, args.Message)
		},
	)
	if err != nil {
		return err
	}

	wait, err := functiontool.New(
		functiontool.Config{Name: "wait", Description: "Wait for a subagent to complete and return its result."},
		func(ctx context.Context, _ env.ExecutionEnvironment, args struct {
			AgentID string `json:"agent_id" jsonschema:"required"`
		}) (string, error) {
			return parent.waitSubagent(args.AgentID)
		},
	)
	if err != nil {
		return err
	}

	closeAgent, err := functiontool.New(
		functiontool.Config{Name: "close_agent", Description: "Terminate a subagent."},
		func(ctx context.Context, _ env.ExecutionEnvironment, args struct {
			AgentID string `json:"agent_id" jsonschema:"required"`
		}) (string, error) {
			return parent.closeSubagent(args.AgentID)
		},
	)
	if err != nil {
		return err
	}

	for _, t := range []tool.Tool{spawn, sendInput, wait, closeAgent} {
		if err := parent.profile.Tools.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) spawnSubagent(ctx context.Context, task string, maxTurns int) (string, error) {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	childCfg := s.config
	childCfg.MaxTurns = maxTurns

	child := New(s.client, s.profile, s.env, childCfg, s.bus, s.Depth+1)
	handle := &SubAgentHandle{ID: child.ID, Session: child, Status: "running"}

	s.mu.Lock()
	s.subagents[handle.ID] = handle
	s.mu.Unlock()

	resultTurn, err := child.ProcessInput(ctx, task)
	if err != nil {
		handle.Status = "failed"
		handle.Result = &SubAgentResult{Output: err.Error(), Success: false}
		return fmt.Sprintf("Agent %s failed: %v", handle.ID, err), nil
	}

	handle.Status = "completed"
	handle.Result = &SubAgentResult{Output: resultTurn.Content, Success: true, TurnsUsed: countToolRounds(child)}
	return fmt.Sprintf("Agent %s completed. Output:\n%s", handle.ID, resultTurn.Content), nil
}

func (s *Session) sendSubagentInput(ctx context.Context, agentID, message string) (string, error) {
	s.mu.Lock()
	handle, ok := s.subagents[agentID]
	s.mu.Unlock()
	if !ok {
		return fmt.Sprintf("Unknown agent: %s", agentID), nil
	}
	if handle.Status != "running" {
		return fmt.Sprintf("Agent %s is %s, cannot send input", agentID, handle.Status), nil
	}
	resultTurn, err := handle.Session.ProcessInput(ctx, message)
	if err != nil {
		return fmt.Sprintf("Agent %s errored: %v", agentID, err), nil
	}
	return fmt.Sprintf("Agent %s responded:\n%s", agentID, resultTurn.Content), nil
}

func (s *Session) waitSubagent(agentID string) (string, error) {
	s.mu.Lock()
	handle, ok := s.subagents[agentID]
	s.mu.Unlock()
	if !ok {
		return fmt.Sprintf("Unknown agent: %s", agentID), nil
	}
	if handle.Result != nil {
		return fmt.Sprintf("Agent %s %s. Output:\n%s\nTurns used: %d", agentID, handle.Status, handle.Result.Output, handle.Result.TurnsUsed), nil
	}
	return fmt.Sprintf("Agent %s is still %s", agentID, handle.Status), nil
}

func (s *Session) closeSubagent(agentID string) (string, error) {
	s.mu.Lock()
	handle, ok := s.subagents[agentID]
	s.mu.Unlock()
	if !ok {
		return fmt.Sprintf("Unknown agent: %s", agentID), nil
	}
	handle.Session.Close()
	handle.Status = "closed"
	return fmt.Sprintf("Agent %s closed", agentID), nil
}

func countToolRounds(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.history {
		if t.Kind == turn.KindAssistant && len(t.ToolCalls) > 0 {
			count++
		}
	}
	return count
}
