package filetool

import (
	"context"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// GrepArgs are the grep tool's parameters.
type GrepArgs struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path            string `json:"path,omitempty" jsonschema:"description=File or directory to search,default=."`
	GlobFilter      string `json:"glob_filter,omitempty" jsonschema:"description=Only search files matching this glob"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=Case-insensitive match,default=false"`
	MaxResults      int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of matching lines,default=100"`
}

// NewGrep returns the grep tool.
func NewGrep() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "grep",
			Description: "Search for a regex pattern across files, returning matching lines with file:line prefixes.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args GrepArgs) (string, error) {
			path := args.Path
			if path == "" {
				path = "."
			}
			return e.Grep(ctx, args.Pattern, path, env.GrepOptions{
				CaseInsensitive: args.CaseInsensitive,
				GlobFilter:      args.GlobFilter,
				MaxResults:      args.MaxResults,
			})
		},
	)
}
