package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/llm"
	"github.com/attractor-run/attractor/pkg/agentloop/profile"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/turn"
	"github.com/attractor-run/attractor/pkg/event"
)

// scriptedClient replays a fixed sequence of responses, one per Complete
// call, so a test can script a multi-round tool-calling conversation.
type scriptedClient struct {
	mu        sync.Mutex
	responses []llm.Response
	calls     int
	err       error
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return llm.Response{}, c.err
	}
	if c.calls >= len(c.responses) {
		return llm.Response{Text: "done"}, nil
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (c *scriptedClient) Close() error { return nil }

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (echoTool) Execute(ctx context.Context, e env.ExecutionEnvironment, args map[string]any) (string, error) {
	return "echoed", nil
}

type failingTool struct{}

func (failingTool) Name() string        { return "boom" }
func (failingTool) Description() string { return "always fails" }
func (failingTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (failingTool) Execute(ctx context.Context, e env.ExecutionEnvironment, args map[string]any) (string, error) {
	return "", errors.New("kaboom")
}

func newTestProfile(t *testing.T, tools ...tool.Tool) *profile.Profile {
	t.Helper()
	prof := profile.New("test", "test-model", "You are a test agent.")
	for _, tl := range tools {
		if err := prof.Tools.Register(tl); err != nil {
			t.Fatalf("Register(%s) error = %v", tl.Name(), err)
		}
	}
	return prof
}

func newTestSession(t *testing.T, client llm.Client, prof *profile.Profile, cfg Config) (*Session, *env.LocalExecutionEnvironment, *event.Bus) {
	t.Helper()
	environment := env.NewLocalExecutionEnvironment(t.TempDir(), env.InheritCore)
	bus := event.NewBus()
	s := New(client, prof, environment, cfg, bus, 0)
	return s, environment, bus
}

func recordKinds(bus *event.Bus) *[]string {
	kinds := make([]string, 0)
	recorded := &kinds
	bus.OnAll(func(ev event.Event) {
		*recorded = append(*recorded, ev.Kind())
	})
	return recorded
}

func TestNew_EmitsSessionStartAndIsIdle(t *testing.T) {
	client := &scriptedClient{}
	prof := newTestProfile(t)
	// Attach the recorder before New runs so SessionStart is captured.
	bus := event.NewBus()
	kinds := recordKinds(bus)
	s := New(client, prof, env.NewLocalExecutionEnvironment(t.TempDir(), env.InheritCore), DefaultConfig(), bus, 0)

	if s.State() != StateIdle {
		t.Errorf("State() = %v, want %v", s.State(), StateIdle)
	}
	var sawStart bool
	for _, k := range *kinds {
		if k == "SessionStart" {
			sawStart = true
		}
	}
	if !sawStart {
		t.Errorf("recorded kinds = %v, want a session_start event", *kinds)
	}
	if s.ID == "" {
		t.Error("New() produced an empty session ID")
	}
}

func TestProcessInput_TextOnlyResponseEndsImmediately(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "hello there"}}}
	prof := newTestProfile(t)
	s, _, bus := newTestSession(t, client, prof, DefaultConfig())
	kinds := recordKinds(bus)

	out, err := s.ProcessInput(context.Background(), "hi")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if out.Content != "hello there" {
		t.Errorf("ProcessInput() content = %q, want %q", out.Content, "hello there")
	}
	if s.State() != StateIdle {
		t.Errorf("State() after completion = %v, want %v", s.State(), StateIdle)
	}

	want := []string{"UserInput", "AssistantTextEnd"}
	if len(*kinds) < len(want) {
		t.Fatalf("recorded kinds = %v, want at least %v", *kinds, want)
	}
}

func TestProcessInput_DispatchesToolCallsAcrossRounds(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{Text: "", ToolCalls: []llm.ToolCall{{ID: "1", Name: "echo", Arguments: map[string]any{"x": "y"}}}},
		{Text: "final answer"},
	}}
	prof := newTestProfile(t, echoTool{})
	s, _, bus := newTestSession(t, client, prof, DefaultConfig())
	kinds := recordKinds(bus)

	out, err := s.ProcessInput(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if out.Content != "final answer" {
		t.Errorf("ProcessInput() content = %q, want %q", out.Content, "final answer")
	}

	var sawToolStart, sawToolEnd bool
	for _, k := range *kinds {
		if k == "ToolCallStart" {
			sawToolStart = true
		}
		if k == "ToolCallEnd" {
			sawToolEnd = true
		}
	}
	if !sawToolStart || !sawToolEnd {
		t.Errorf("recorded kinds = %v, want tool_call_start and tool_call_end", *kinds)
	}
}

func TestProcessInput_UnknownToolReturnsErrorResultWithoutAborting(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{Text: "", ToolCalls: []llm.ToolCall{{ID: "1", Name: "nonexistent", Arguments: nil}}},
		{Text: "recovered"},
	}}
	prof := newTestProfile(t)
	s, _, _ := newTestSession(t, client, prof, DefaultConfig())

	out, err := s.ProcessInput(context.Background(), "try it")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if out.Content != "recovered" {
		t.Errorf("ProcessInput() content = %q, want %q", out.Content, "recovered")
	}
}

func TestProcessInput_FailingToolReturnsErrorResultWithoutAborting(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{Text: "", ToolCalls: []llm.ToolCall{{ID: "1", Name: "boom", Arguments: nil}}},
		{Text: "recovered"},
	}}
	prof := newTestProfile(t, failingTool{})
	s, _, _ := newTestSession(t, client, prof, DefaultConfig())

	out, err := s.ProcessInput(context.Background(), "try it")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if out.Content != "recovered" {
		t.Errorf("ProcessInput() content = %q, want %q", out.Content, "recovered")
	}
}

func TestProcessInput_ClientErrorClosesSession(t *testing.T) {
	client := &scriptedClient{err: errors.New("provider down")}
	prof := newTestProfile(t)
	s, _, bus := newTestSession(t, client, prof, DefaultConfig())
	kinds := recordKinds(bus)

	_, err := s.ProcessInput(context.Background(), "hi")
	if err == nil {
		t.Fatal("ProcessInput() expected an error, got nil")
	}
	if s.State() != StateClosed {
		t.Errorf("State() after client error = %v, want %v", s.State(), StateClosed)
	}

	var sawError bool
	for _, k := range *kinds {
		if k == "Error" {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("recorded kinds = %v, want an error event", *kinds)
	}
}

func TestProcessInput_OnClosedSessionFails(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "hi"}}}
	prof := newTestProfile(t)
	s, _, _ := newTestSession(t, client, prof, DefaultConfig())
	s.Close()

	_, err := s.ProcessInput(context.Background(), "hello")
	if err == nil {
		t.Fatal("ProcessInput() on a closed session expected an error, got nil")
	}
}

func TestProcessInput_MaxToolRoundsStopsLoop(t *testing.T) {
	call := llm.ToolCall{ID: "1", Name: "echo", Arguments: nil}
	client := &scriptedClient{responses: []llm.Response{
		{Text: "", ToolCalls: []llm.ToolCall{call}},
		{Text: "", ToolCalls: []llm.ToolCall{call}},
		{Text: "", ToolCalls: []llm.ToolCall{call}},
	}}
	prof := newTestProfile(t, echoTool{})
	cfg := DefaultConfig()
	cfg.MaxToolRoundsPerInput = 2
	s, _, bus := newTestSession(t, client, prof, cfg)
	kinds := recordKinds(bus)

	_, err := s.ProcessInput(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}

	var sawLimit bool
	for _, k := range *kinds {
		if k == "TurnLimit" {
			sawLimit = true
		}
	}
	if !sawLimit {
		t.Errorf("recorded kinds = %v, want a turn_limit event", *kinds)
	}
}

func TestSteer_QueuesMessageAppliedNextRound(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "ack"}}}
	prof := newTestProfile(t)
	s, _, _ := newTestSession(t, client, prof, DefaultConfig())

	s.Steer("please stop")

	_, err := s.ProcessInput(context.Background(), "hi")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}

	var sawSteering bool
	for _, tr := range s.history {
		if tr.Kind == turn.KindSteering && tr.Content == "please stop" {
			sawSteering = true
		}
	}
	if !sawSteering {
		t.Errorf("history = %v, want a steering turn with %q", s.history, "please stop")
	}
}

func TestAbort_StopsLoopBeforeNextRound(t *testing.T) {
	call := llm.ToolCall{ID: "1", Name: "echo", Arguments: nil}
	client := &scriptedClient{responses: []llm.Response{
		{Text: "", ToolCalls: []llm.ToolCall{call}},
		{Text: "", ToolCalls: []llm.ToolCall{call}},
	}}
	prof := newTestProfile(t, echoTool{})
	s, _, _ := newTestSession(t, client, prof, DefaultConfig())

	s.Abort()
	out, err := s.ProcessInput(context.Background(), "hi")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	// Aborted before any round ran, so the last assistant turn is the
	// zero-value placeholder built before the loop starts.
	if out.Content != "" {
		t.Errorf("ProcessInput() content = %q, want empty after immediate abort", out.Content)
	}
}

func TestFollowUp_ProcessedAfterCurrentInputCompletes(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "first"}, {Text: "second"}}}
	prof := newTestProfile(t)
	s, _, _ := newTestSession(t, client, prof, DefaultConfig())

	s.FollowUp("follow up message")
	out, err := s.ProcessInput(context.Background(), "initial")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if out.Content != "second" {
		t.Errorf("ProcessInput() content = %q, want %q (the follow-up's response)", out.Content, "second")
	}
}

func TestClose_EmitsSessionEndAndRejectsFurtherInput(t *testing.T) {
	client := &scriptedClient{}
	prof := newTestProfile(t)
	s, _, bus := newTestSession(t, client, prof, DefaultConfig())
	kinds := recordKinds(bus)

	s.Close()
	if s.State() != StateClosed {
		t.Errorf("State() after Close() = %v, want %v", s.State(), StateClosed)
	}

	var sawEnd bool
	for _, k := range *kinds {
		if k == "SessionEnd" {
			sawEnd = true
		}
	}
	if !sawEnd {
		t.Errorf("recorded kinds = %v, want a session_end event", *kinds)
	}
}

func TestNew_RegistersSubagentToolsBelowMaxDepth(t *testing.T) {
	client := &scriptedClient{}
	prof := newTestProfile(t)
	cfg := DefaultConfig()
	cfg.MaxSubagentDepth = 2
	environment := env.NewLocalExecutionEnvironment(t.TempDir(), env.InheritCore)
	s := New(client, prof, environment, cfg, event.NewBus(), 0)

	for _, name := range []string{"spawn_agent", "send_input", "wait", "close_agent"} {
		if _, ok := s.profile.Tools.Lookup(name); !ok {
			t.Errorf("profile.Tools missing %q after New() at depth %d < max %d", name, s.Depth, cfg.MaxSubagentDepth)
		}
	}
}

func TestNew_OmitsSubagentToolsAtMaxDepth(t *testing.T) {
	client := &scriptedClient{}
	prof := newTestProfile(t)
	cfg := DefaultConfig()
	cfg.MaxSubagentDepth = 2
	environment := env.NewLocalExecutionEnvironment(t.TempDir(), env.InheritCore)
	s := New(client, prof, environment, cfg, event.NewBus(), 2)

	if _, ok := s.profile.Tools.Lookup("spawn_agent"); ok {
		t.Errorf("profile.Tools has spawn_agent at depth %d == max %d, want none", s.Depth, cfg.MaxSubagentDepth)
	}
}

func TestSpawnSubagent_SharesProfileWithoutDuplicateToolError(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "child done"}}}
	prof := newTestProfile(t)
	cfg := DefaultConfig()
	cfg.MaxSubagentDepth = 2
	s, _, _ := newTestSession(t, client, prof, cfg)

	out, err := s.spawnSubagent(context.Background(), "do a scoped thing", 5)
	if err != nil {
		t.Fatalf("spawnSubagent() error = %v", err)
	}
	if out == "" {
		t.Error("spawnSubagent() returned an empty summary")
	}
	if len(s.subagents) != 1 {
		t.Errorf("len(s.subagents) = %d, want 1", len(s.subagents))
	}
}
