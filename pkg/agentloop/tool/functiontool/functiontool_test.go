package functiontool

import (
	"context"
	"testing"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
)

type getWeatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"description=Temperature units,default=celsius,enum=celsius|fahrenheit"`
}

func TestNew_RequiresNameAndDescription(t *testing.T) {
	fn := func(ctx context.Context, e env.ExecutionEnvironment, args getWeatherArgs) (string, error) {
		return "", nil
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing name", cfg: Config{Description: "Get current weather"}, wantErr: true},
		{name: "missing description", cfg: Config{Name: "get_weather"}, wantErr: true},
		{name: "valid config", cfg: Config{Name: "get_weather", Description: "Get current weather"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFunctionTool_NameAndDescription(t *testing.T) {
	fn := func(ctx context.Context, e env.ExecutionEnvironment, args getWeatherArgs) (string, error) {
		return "", nil
	}
	tool, err := New(Config{Name: "get_weather", Description: "Get current weather for a city"}, fn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := tool.Name(); got != "get_weather" {
		t.Errorf("Name() = %q, want %q", got, "get_weather")
	}
	if got := tool.Description(); got != "Get current weather for a city" {
		t.Errorf("Description() = %q, want %q", got, "Get current weather for a city")
	}
}

func TestFunctionTool_Schema(t *testing.T) {
	fn := func(ctx context.Context, e env.ExecutionEnvironment, args getWeatherArgs) (string, error) {
		return "", nil
	}
	tool, err := New(Config{Name: "get_weather", Description: "Get current weather"}, fn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	schema := tool.Schema()
	if schema["type"] != "object" {
		t.Fatalf("Schema()[\"type\"] = %v, want %q", schema["type"], "object")
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("Schema()[\"properties\"] is not a map: %T", schema["properties"])
	}
	if _, ok := props["city"]; !ok {
		t.Errorf("Schema() missing property %q", "city")
	}
	if _, ok := props["units"]; !ok {
		t.Errorf("Schema() missing property %q", "units")
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "city" {
		t.Errorf("Schema()[\"required\"] = %v, want [city]", required)
	}
}

func TestFunctionTool_Execute(t *testing.T) {
	var gotArgs getWeatherArgs
	fn := func(ctx context.Context, e env.ExecutionEnvironment, args getWeatherArgs) (string, error) {
		gotArgs = args
		return "sunny, 22C", nil
	}
	tool, err := New(Config{Name: "get_weather", Description: "Get current weather"}, fn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := tool.Execute(context.Background(), nil, map[string]any{"city": "Lisbon", "units": "celsius"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "sunny, 22C" {
		t.Errorf("Execute() = %q, want %q", out, "sunny, 22C")
	}
	if gotArgs.City != "Lisbon" || gotArgs.Units != "celsius" {
		t.Errorf("Execute() decoded args = %+v, want City=Lisbon Units=celsius", gotArgs)
	}
}

func TestFunctionTool_ExecuteInvalidArguments(t *testing.T) {
	fn := func(ctx context.Context, e env.ExecutionEnvironment, args getWeatherArgs) (string, error) {
		return "", nil
	}
	tool, err := New(Config{Name: "get_weather", Description: "Get current weather"}, fn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = tool.Execute(context.Background(), nil, map[string]any{"city": 42})
	if err == nil {
		t.Fatal("Execute() with mistyped argument expected an error, got nil")
	}
}
