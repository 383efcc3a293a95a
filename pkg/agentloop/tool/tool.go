// Package tool defines the Tool boundary the agent loop dispatches
// against (spec §4.8): a name, a JSON schema, and a synchronous executor
// over an ExecutionEnvironment.
package tool

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/registry"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any

	// Execute runs the tool and returns its raw (pre-truncation) output.
	// A non-nil error is surfaced to the model as an error result, not
	// propagated to the caller.
	Execute(ctx context.Context, environment env.ExecutionEnvironment, args map[string]any) (string, error)
}

// Definition is the provider-facing shape of a tool, used to build LLM
// tool-call schemas.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition projects a Tool to its Definition.
func ToDefinition(t Tool) Definition {
	return Definition{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()}
}

// Registry resolves tools by name for dispatch.
type Registry struct {
	base *registry.BaseRegistry[Tool]
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Tool]()}
}

// Register adds a tool, failing if the name is already taken.
func (r *Registry) Register(t Tool) error {
	if t.Name() == "" {
		return fmt.Errorf("tool: name is required")
	}
	return r.base.Register(t.Name(), t)
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	return r.base.Get(name)
}

// Remove drops a tool from the registry (used when bounding subagent depth).
func (r *Registry) Remove(name string) error {
	return r.base.Remove(name)
}

// List returns every registered tool, order unspecified.
func (r *Registry) List() []Tool {
	return r.base.List()
}

// Definitions projects every registered tool to its provider-facing shape.
func (r *Registry) Definitions() []Definition {
	tools := r.base.List()
	defs := make([]Definition, len(tools))
	for i, t := range tools {
		defs[i] = ToDefinition(t)
	}
	return defs
}
