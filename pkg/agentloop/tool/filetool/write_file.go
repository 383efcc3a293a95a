package filetool

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// WriteFileArgs are the write_file tool's parameters.
type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path to write, relative to the working directory"`
	Content string `json:"content" jsonschema:"required,description=Full file content to write"`
}

// NewWriteFile returns the write_file tool.
func NewWriteFile() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "write_file",
			Description: "Write content to a file, creating parent directories as needed. Overwrites any existing content.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args WriteFileArgs) (string, error) {
			if err := e.WriteFile(ctx, args.Path, args.Content); err != nil {
				return "", err
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path), nil
		},
	)
}
