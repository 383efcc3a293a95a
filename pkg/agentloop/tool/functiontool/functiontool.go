// Package functiontool builds a Tool from a typed Go function, generating
// its JSON schema from struct tags so argument shapes stay next to their
// Go types instead of being hand-written twice.
package functiontool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
)

// Func is the signature a typed tool implementation must satisfy.
type Func[Args any] func(ctx context.Context, environment env.ExecutionEnvironment, args Args) (string, error)

// Config names and describes the tool to the model.
type Config struct {
	Name        string
	Description string
}

// New builds a Tool from fn, generating its schema from Args' struct tags.
func New[Args any](cfg Config, fn Func[Args]) (*functionTool[Args], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("functiontool: name is required")
	}
	if cfg.Description == "" {
		return nil, fmt.Errorf("functiontool: description is required")
	}
	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("functiontool: schema for %s: %w", cfg.Name, err)
	}
	return &functionTool[Args]{cfg: cfg, fn: fn, schema: schema}, nil
}

type functionTool[Args any] struct {
	cfg    Config
	fn     Func[Args]
	schema map[string]any
}

func (t *functionTool[Args]) Name() string             { return t.cfg.Name }
func (t *functionTool[Args]) Description() string      { return t.cfg.Description }
func (t *functionTool[Args]) Schema() map[string]any    { return t.schema }

func (t *functionTool[Args]) Execute(ctx context.Context, environment env.ExecutionEnvironment, args map[string]any) (string, error) {
	var typed Args
	if err := mapToStruct(args, &typed); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", t.cfg.Name, err)
	}
	return t.fn(ctx, environment, typed)
}

func mapToStruct(m map[string]any, target any) error {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// generateSchema reflects Args into an LLM-facing JSON schema object,
// honoring `jsonschema:"required,description=...,default=...,enum=a|b"`
// tags on each field.
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	delete(raw, "$schema")
	delete(raw, "$id")

	if raw["type"] != "object" {
		return raw, nil
	}
	result := map[string]any{"type": "object", "properties": raw["properties"]}
	if req, ok := raw["required"]; ok {
		result["required"] = req
	}
	if ap, ok := raw["additionalProperties"]; ok {
		result["additionalProperties"] = ap
	}
	return result, nil
}
