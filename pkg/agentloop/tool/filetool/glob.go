package filetool

import (
	"context"
	"strings"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// GlobArgs are the glob tool's parameters.
type GlobArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern, e.g. **/*.go"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search from,default=."`
}

// NewGlob returns the glob tool.
func NewGlob() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "glob",
			Description: "Find files matching a glob pattern, newest first.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args GlobArgs) (string, error) {
			path := args.Path
			if path == "" {
				path = "."
			}
			matches, err := e.Glob(ctx, args.Pattern, path)
			if err != nil {
				return "", err
			}
			return strings.Join(matches, "\n"), nil
		},
	)
}
