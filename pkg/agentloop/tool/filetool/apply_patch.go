package filetool

import (
	"context"
	"fmt"
	"strings"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// ApplyPatchArgs are the apply_patch tool's parameters.
type ApplyPatchArgs struct {
	Patch string `json:"patch" jsonschema:"required,description=Patch text in the sentinel *** Begin Patch / *** End Patch format"`
}

// NewApplyPatch returns the apply_patch tool: a structured, multi-file
// alternative to edit_file for provider profiles that prefer it.
func NewApplyPatch() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name: "apply_patch",
			Description: "Apply a structured patch using *** Begin Patch / *** Add File / *** Delete File / " +
				"*** Update File / @@ hunk sentinels. Supports adding, deleting, updating, and moving files in one call.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args ApplyPatchArgs) (string, error) {
			return runApplyPatch(ctx, e, args.Patch)
		},
	)
}

func runApplyPatch(ctx context.Context, e env.ExecutionEnvironment, patchText string) (string, error) {
	ops, err := parsePatch(patchText)
	if err != nil {
		return "", err
	}

	var summary []string
	for _, op := range ops {
		switch op.kind {
		case opAdd:
			if err := e.WriteFile(ctx, op.path, op.addContent); err != nil {
				return "", fmt.Errorf("add %s: %w", op.path, err)
			}
			summary = append(summary, "added "+op.path)

		case opDelete:
			if err := e.DeleteFile(ctx, op.path); err != nil {
				return "", fmt.Errorf("delete %s: %w", op.path, err)
			}
			summary = append(summary, "deleted "+op.path)

		case opUpdate:
			content, err := e.ReadFile(ctx, op.path, 0, 0)
			if err != nil {
				return "", fmt.Errorf("update %s: %w", op.path, err)
			}
			for _, h := range op.hunks {
				content, err = applyHunk(content, h)
				if err != nil {
					return "", fmt.Errorf("update %s: %w", op.path, err)
				}
			}

			targetPath := op.path
			if op.movePath != "" {
				targetPath = op.movePath
			}
			if err := e.WriteFile(ctx, targetPath, content); err != nil {
				return "", fmt.Errorf("update %s: %w", targetPath, err)
			}
			if op.movePath != "" {
				if err := e.DeleteFile(ctx, op.path); err != nil {
					return "", fmt.Errorf("move %s: %w", op.path, err)
				}
				summary = append(summary, fmt.Sprintf("updated %s -> %s", op.path, op.movePath))
			} else {
				summary = append(summary, "updated "+op.path)
			}
		}
	}

	return strings.Join(summary, "\n"), nil
}
