package builtin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/llm"
	"github.com/attractor-run/attractor/pkg/agentloop/session"
	"github.com/attractor-run/attractor/pkg/event"
	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/handler"
	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
)

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

func TestCodergen_SuccessReturnsSessionOutputAsContextUpdate(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "implemented the feature"}}}
	h := Codergen(CodergenConfig{
		Client:        client,
		DefaultModel:  "test-model",
		SessionConfig: session.DefaultConfig(),
		EnvPolicy:     env.InheritNone,
		Bus:           event.NewBus(),
	})

	n := &graph.Node{ID: "impl", Shape: graph.ShapeBox, Prompt: "implement the feature"}
	out, err := h.Execute(context.Background(), n, pipectx.New(), nil, t.TempDir())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != outcome.StatusSuccess {
		t.Errorf("Status = %v, want %v", out.Status, outcome.StatusSuccess)
	}
	if out.ContextUpdates["impl.response"] != "implemented the feature" {
		t.Errorf("ContextUpdates[impl.response] = %v, want %q", out.ContextUpdates["impl.response"], "implemented the feature")
	}
}

func TestCodergen_NoClientFails(t *testing.T) {
	h := Codergen(CodergenConfig{})
	n := &graph.Node{ID: "impl", Shape: graph.ShapeBox, Prompt: "do something"}
	out, err := h.Execute(context.Background(), n, pipectx.New(), nil, t.TempDir())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != outcome.StatusFail {
		t.Errorf("Status = %v, want %v", out.Status, outcome.StatusFail)
	}
}

func TestCodergen_NoPromptFails(t *testing.T) {
	h := Codergen(CodergenConfig{Client: &scriptedClient{}})
	n := &graph.Node{ID: "impl", Shape: graph.ShapeBox}
	out, err := h.Execute(context.Background(), n, pipectx.New(), nil, t.TempDir())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != outcome.StatusFail {
		t.Errorf("Status = %v, want %v", out.Status, outcome.StatusFail)
	}
}

func TestCodergen_ClientErrorFails(t *testing.T) {
	// A zero session.Config allows no tool rounds, so the session would stop
	// before calling the client; use the defaults so the error is reached.
	h := Codergen(CodergenConfig{
		Client:        &scriptedClient{err: errors.New("provider down")},
		SessionConfig: session.DefaultConfig(),
	})
	n := &graph.Node{ID: "impl", Shape: graph.ShapeBox, Prompt: "do something"}
	out, err := h.Execute(context.Background(), n, pipectx.New(), nil, t.TempDir())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Status != outcome.StatusFail {
		t.Errorf("Status = %v, want %v", out.Status, outcome.StatusFail)
	}
}

type fakeInterviewer struct{}

func (fakeInterviewer) Ask(ctx context.Context, question string) (string, error) {
	return "yes", nil
}

func TestRegisterDefaults_ResolvesEveryShape(t *testing.T) {
	reg := handler.NewRegistry()
	cfg := CodergenConfig{Client: &scriptedClient{}, Bus: event.NewBus()}
	if err := RegisterDefaults(reg, fakeInterviewer{}, cfg); err != nil {
		t.Fatalf("RegisterDefaults() error = %v", err)
	}

	for shape := range handler.ShapeToType {
		n := &graph.Node{ID: "n", Shape: shape}
		if _, err := reg.Resolve(n); err != nil {
			t.Errorf("Resolve(shape=%q) error = %v", shape, err)
		}
	}
}
