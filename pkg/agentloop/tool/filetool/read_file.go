package filetool

import (
	"context"
	"fmt"
	"strings"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// ReadFileArgs are the read_file tool's parameters.
type ReadFileArgs struct {
	Path   string `json:"path" jsonschema:"required,description=File path to read, relative to the working directory"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-indexed line to start from,minimum=1"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to return,minimum=1"`
}

// NewReadFile returns the read_file tool.
func NewReadFile() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "read_file",
			Description: "Read a file's contents, optionally restricted to a line range. Returns line-numbered output.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args ReadFileArgs) (string, error) {
			content, err := e.ReadFile(ctx, args.Path, args.Offset, args.Limit)
			if err != nil {
				return "", err
			}
			return numberLines(content, startLineOf(args.Offset)), nil
		},
	)
}

func startLineOf(offset int) int {
	if offset > 0 {
		return offset
	}
	return 1
}

func numberLines(content string, start int) string {
	if content == "" {
		return content
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%6d\t%s\n", start+i, l)
	}
	return b.String()
}
