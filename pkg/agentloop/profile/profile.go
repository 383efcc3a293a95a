// Package profile holds the per-provider configuration a Session builds
// requests against: base instructions, default model, and the tool
// registry exposed to the model.
package profile

import (
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
)

// Profile is one provider's agent configuration.
type Profile struct {
	Name             string
	Model            string
	BaseInstructions string
	Tools            *tool.Registry
}

// New returns a Profile backed by an empty tool registry.
func New(name, model, baseInstructions string) *Profile {
	return &Profile{Name: name, Model: model, BaseInstructions: baseInstructions, Tools: tool.NewRegistry()}
}
