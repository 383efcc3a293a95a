// Package handler resolves a Node to the code that executes it, and
// defines the Handler contract every node executor implements.
package handler

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
	"github.com/attractor-run/attractor/pkg/registry"
)

// Handler executes one node. Implementations may read ctx but must not
// mutate the graph or any other node's state; state changes flow out
// through the returned Outcome's ContextUpdates, which the engine applies.
type Handler interface {
	Execute(ctx context.Context, node *graph.Node, pctx *pipectx.Context, g *graph.Graph, stageDir string) (outcome.Outcome, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, node *graph.Node, pctx *pipectx.Context, g *graph.Graph, stageDir string) (outcome.Outcome, error)

func (f HandlerFunc) Execute(ctx context.Context, node *graph.Node, pctx *pipectx.Context, g *graph.Graph, stageDir string) (outcome.Outcome, error) {
	return f(ctx, node, pctx, g, stageDir)
}

// ShapeToType is the fixed shape→type table used by step (2) of
// resolution. Providers do not extend it; they are consulted after it.
var ShapeToType = map[string]string{
	graph.ShapeStart:   "start",
	graph.ShapeExit:    "exit",
	graph.ShapeBox:     "codergen",
	graph.ShapeHex:     "wait.human",
	graph.ShapeDiamond:  "conditional",
}

// Provider is an optional external source of additional type→Handler
// bindings; no implementation of it ships in this module. The registry
// consults providers only after its own shape table misses.
type Provider interface {
	Lookup(nodeType string) (Handler, bool)
}

// Registry resolves a node to a Handler: (1) node.Type if registered, (2)
// the node's shape mapped through ShapeToType and looked up, (3) plugin
// providers consulted in registration order, (4) the default handler if
// set, else an error.
type Registry struct {
	byType  *registry.BaseRegistry[Handler]
	def     Handler
	providers []Provider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: registry.NewBaseRegistry[Handler]()}
}

// RegisterType binds a handler to an explicit node type name.
func (r *Registry) RegisterType(nodeType string, h Handler) error {
	return r.byType.Register(nodeType, h)
}

// SetDefault installs the fallback handler used when no other resolution
// step succeeds.
func (r *Registry) SetDefault(h Handler) {
	r.def = h
}

// AddProvider registers an external handler provider (plugin host).
func (r *Registry) AddProvider(p Provider) {
	r.providers = append(r.providers, p)
}

// Resolve implements the four-step resolution order from the handler
// registry contract.
func (r *Registry) Resolve(n *graph.Node) (Handler, error) {
	if n.Type != "" {
		if h, ok := r.byType.Get(n.Type); ok {
			return h, nil
		}
	}
	if t, ok := ShapeToType[n.Shape]; ok {
		if h, ok := r.byType.Get(t); ok {
			return h, nil
		}
	}
	for _, p := range r.providers {
		if h, ok := p.Lookup(n.Type); ok {
			return h, nil
		}
		if t, ok := ShapeToType[n.Shape]; ok {
			if h, ok := p.Lookup(t); ok {
				return h, nil
			}
		}
	}
	if r.def != nil {
		return r.def, nil
	}
	return nil, fmt.Errorf("handler: no handler for node %q (type=%q shape=%q)", n.ID, n.Type, n.Shape)
}
