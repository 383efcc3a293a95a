// Package session implements the agent loop's central orchestrator: one
// stateful conversation with an LLM that dispatches the tool calls the
// model emits and feeds results back until the model answers in text
// alone or a limit is hit.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/llm"
	"github.com/attractor-run/attractor/pkg/agentloop/loopdetect"
	"github.com/attractor-run/attractor/pkg/agentloop/profile"
	"github.com/attractor-run/attractor/pkg/agentloop/prompt"
	"github.com/attractor-run/attractor/pkg/agentloop/truncation"
	"github.com/attractor-run/attractor/pkg/agentloop/turn"
	"github.com/attractor-run/attractor/pkg/event"
	"github.com/attractor-run/attractor/pkg/logger"
)

// State is a Session's lifecycle stage.
type State string

const (
	StateIdle       State = "IDLE"
	StateProcessing State = "PROCESSING"
	StateClosed     State = "CLOSED"
)

// Session orchestrates one conversation: state is single-threaded, guarded
// by mu only to let Steer/Abort be called from a different goroutine than
// the one running ProcessInput.
type Session struct {
	ID      string
	Depth   int
	client  llm.Client
	profile *profile.Profile
	env     env.ExecutionEnvironment
	config  Config
	bus     *event.Bus

	mu            sync.Mutex
	state         State
	history       []turn.Turn
	steeringQueue []string
	followupQueue []string
	abortFlag     bool

	detector  *loopdetect.Detector
	subagents map[string]*SubAgentHandle
}

// New constructs an idle Session.
func New(client llm.Client, prof *profile.Profile, environment env.ExecutionEnvironment, cfg Config, bus *event.Bus, depth int) *Session {
	if bus == nil {
		bus = event.NewBus()
	}
	s := &Session{
		ID:        uuid.NewString(),
		Depth:     depth,
		client:    client,
		profile:   prof,
		env:       environment,
		config:    cfg,
		bus:       bus,
		state:     StateIdle,
		detector:  loopdetect.New(cfg.LoopDetectionWindow),
		subagents: make(map[string]*SubAgentHandle),
	}
	// RegisterSubagentTools is itself a no-op at or past MaxSubagentDepth; a
	// registration error here means prof.Tools already has a conflicting
	// name, which is a caller bug we surface rather than hide.
	if err := RegisterSubagentTools(s); err != nil {
		panic(fmt.Sprintf("session: registering subagent tools: %v", err))
	}
	logger.GetLogger().With("component", "session", "session_id", s.ID).Info("session started", "depth", depth)
	bus.Emit(event.SessionStart{SessionID: s.ID, Depth: depth})
	return s
}

// State returns the session's current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Steer enqueues a steering message, applied at the next round boundary.
func (s *Session) Steer(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steeringQueue = append(s.steeringQueue, message)
}

// FollowUp enqueues a message to process after the current input completes.
func (s *Session) FollowUp(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followupQueue = append(s.followupQueue, message)
}

// Abort signals the processing loop to stop at the next round boundary.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortFlag = true
}

// Close marks the session closed, rejecting any further ProcessInput call.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	logger.GetLogger().With("component", "session", "session_id", s.ID).Info("session closed")
	s.bus.Emit(event.SessionEnd{SessionID: s.ID})
}

// ProcessInput runs the core agentic loop for one user input, returning
// the final assistant turn (text-only response, or whatever accumulated
// state existed when a limit was hit).
func (s *Session) ProcessInput(ctx context.Context, userText string) (turn.Turn, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return turn.Turn{}, fmt.Errorf("session is closed")
	}
	s.state = StateProcessing
	s.history = append(s.history, turn.User(userText))
	s.mu.Unlock()

	s.bus.Emit(event.UserInput{SessionID: s.ID, Text: userText})
	s.drainSteering()

	roundCount := 0
	lastAssistant := turn.Assistant("", nil, turn.Usage{})

	for {
		if roundCount >= s.config.MaxToolRoundsPerInput {
			s.bus.Emit(event.TurnLimit{SessionID: s.ID, Reason: "max_tool_rounds_per_input"})
			break
		}
		if s.config.MaxTurns > 0 && s.countTurns() >= s.config.MaxTurns {
			s.bus.Emit(event.TurnLimit{SessionID: s.ID, Reason: "max_turns"})
			break
		}
		if s.isAborted() {
			break
		}

		req, err := s.buildRequest()
		if err != nil {
			return turn.Turn{}, err
		}

		resp, err := s.client.Complete(ctx, req)
		if err != nil {
			s.bus.Emit(event.Error{SessionID: s.ID, Err: err, Recoverable: false})
			s.Close()
			return turn.Turn{}, err
		}

		assistantTurn := turn.Assistant(resp.Text, toTurnToolCalls(resp.ToolCalls), turn.Usage(resp.Usage))
		s.mu.Lock()
		s.history = append(s.history, assistantTurn)
		s.mu.Unlock()
		lastAssistant = assistantTurn

		s.bus.Emit(event.AssistantTextEnd{SessionID: s.ID, Text: resp.Text})

		if len(resp.ToolCalls) == 0 {
			break
		}

		roundCount++
		results := s.executeToolCalls(ctx, resp.ToolCalls)
		s.mu.Lock()
		s.history = append(s.history, turn.ToolResults(results))
		s.mu.Unlock()

		s.drainSteering()

		if s.config.EnableLoopDetection {
			if msg := s.detector.Check(); msg != "" {
				s.mu.Lock()
				s.history = append(s.history, turn.Steering(msg, "loop_detection"))
				s.mu.Unlock()
				s.bus.Emit(event.LoopDetection{SessionID: s.ID, Message: msg})
			}
		}
	}

	s.mu.Lock()
	var next string
	hasNext := len(s.followupQueue) > 0
	if hasNext {
		next = s.followupQueue[0]
		s.followupQueue = s.followupQueue[1:]
	}
	s.mu.Unlock()

	if hasNext {
		return s.ProcessInput(ctx, next)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	return lastAssistant, nil
}

func (s *Session) drainSteering() {
	s.mu.Lock()
	pending := s.steeringQueue
	s.steeringQueue = nil
	s.mu.Unlock()

	for _, msg := range pending {
		s.mu.Lock()
		s.history = append(s.history, turn.Steering(msg, "queued"))
		s.mu.Unlock()
		s.bus.Emit(event.Steering{SessionID: s.ID, Text: msg, Source: "queued"})
	}
}

func (s *Session) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortFlag
}

func (s *Session) countTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.history {
		if t.CountsTowardTurnLimit() {
			count++
		}
	}
	return count
}

func (s *Session) buildRequest() (llm.Request, error) {
	systemPrompt, err := prompt.Build(s.profile, s.env, s.Depth, s.config.MaxSubagentDepth, s.config.UserInstructions)
	if err != nil {
		return llm.Request{}, err
	}

	messages := append([]llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}, s.messagesFromHistory()...)

	defs := s.profile.Tools.Definitions()
	tools := make([]llm.ToolDefinition, len(defs))
	for i, d := range defs {
		tools[i] = llm.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}

	return llm.Request{
		Messages: messages,
		Model:    s.profile.Model,
		Tools:    tools,
		Params:   llm.GenerationParams{ReasoningEffort: s.config.ReasoningEffort},
	}, nil
}

// messagesFromHistory converts the turn history to provider-neutral
// messages per the history->messages conversion rules: UserTurn->user,
// AssistantTurn->assistant (carrying tool calls), ToolResultsTurn->one
// tool message per result, SteeringTurn->user. System turns are never
// recorded in history (the prompt is rebuilt each request).
func (s *Session) messagesFromHistory() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []llm.Message
	for _, t := range s.history {
		switch t.Kind {
		case turn.KindUser, turn.KindSteering:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: t.Content})
		case turn.KindAssistant:
			calls := make([]llm.ToolCall, len(t.ToolCalls))
			for i, tc := range t.ToolCalls {
				calls[i] = llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
			}
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: t.Content, ToolCalls: calls})
		case turn.KindToolResults:
			for _, r := range t.Results {
				messages = append(messages, llm.Message{Role: llm.RoleTool, Content: r.Output, ToolCallID: r.ToolCallID})
			}
		}
	}
	return messages
}

func toTurnToolCalls(calls []llm.ToolCall) []turn.ToolCall {
	out := make([]turn.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = turn.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

// executeToolCalls dispatches each call in order: lookup -> execute ->
// truncate -> emit. Execution is sequential within a round (spec §4.8).
func (s *Session) executeToolCalls(ctx context.Context, calls []llm.ToolCall) []turn.ToolResult {
	results := make([]turn.ToolResult, len(calls))
	for i, c := range calls {
		results[i] = s.executeSingleTool(ctx, c)
	}
	return results
}

func (s *Session) executeSingleTool(ctx context.Context, call llm.ToolCall) turn.ToolResult {
	s.bus.Emit(event.ToolCallStart{SessionID: s.ID, CallID: call.ID, Name: call.Name, Arguments: call.Arguments})
	s.detector.Record(loopdetect.Canonicalize(call.Name, call.Arguments))

	t, ok := s.profile.Tools.Lookup(call.Name)
	if !ok {
		msg := fmt.Sprintf("Unknown tool: %s", call.Name)
		s.bus.Emit(event.ToolCallEnd{SessionID: s.ID, CallID: call.ID, Name: call.Name, RawOutput: msg, IsError: true})
		return turn.ToolResult{ToolCallID: call.ID, Output: msg, IsError: true}
	}

	rawOutput, err := t.Execute(ctx, s.env, call.Arguments)
	if err != nil {
		msg := fmt.Sprintf("Tool error (%s): %v", call.Name, err)
		logger.GetLogger().With("component", "session", "session_id", s.ID).Warn("tool call failed", "tool", call.Name, "error", err)
		s.bus.Emit(event.ToolCallEnd{SessionID: s.ID, CallID: call.ID, Name: call.Name, RawOutput: msg, IsError: true})
		return turn.ToolResult{ToolCallID: call.ID, Output: msg, IsError: true}
	}

	truncated := truncation.Truncate(rawOutput, call.Name, nil)
	s.bus.Emit(event.ToolCallEnd{SessionID: s.ID, CallID: call.ID, Name: call.Name, RawOutput: rawOutput, IsError: false})
	return turn.ToolResult{ToolCallID: call.ID, Output: truncated}
}
