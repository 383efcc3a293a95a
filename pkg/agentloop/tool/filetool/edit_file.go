package filetool

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// EditFileArgs are the edit_file tool's parameters.
type EditFileArgs struct {
	Path       string `json:"path" jsonschema:"required,description=File path to edit, relative to the working directory"`
	OldString  string `json:"old_string" jsonschema:"required,description=Exact text to find; must be unique unless replace_all is set"`
	NewString  string `json:"new_string" jsonschema:"required,description=Replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace every occurrence instead of requiring a unique match,default=false"`
}

// NewEditFile returns the edit_file tool.
func NewEditFile() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "edit_file",
			Description: "Replace exact text in a file. Requires old_string to match exactly once unless replace_all is set.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args EditFileArgs) (string, error) {
			return editFile(ctx, e, args)
		},
	)
}

func editFile(ctx context.Context, e env.ExecutionEnvironment, args EditFileArgs) (string, error) {
	original, err := e.ReadFile(ctx, args.Path, 0, 0)
	if err != nil {
		return "", err
	}

	count := strings.Count(original, args.OldString)
	if count == 0 {
		return "", fmt.Errorf("old_string not found in %s", args.Path)
	}
	if !args.ReplaceAll && count > 1 {
		return "", fmt.Errorf("old_string matches %d times in %s; pass replace_all or narrow the match", count, args.Path)
	}

	var updated string
	if args.ReplaceAll {
		updated = strings.ReplaceAll(original, args.OldString, args.NewString)
	} else {
		updated = strings.Replace(original, args.OldString, args.NewString, 1)
	}

	if err := e.WriteFile(ctx, args.Path, updated); err != nil {
		return "", err
	}

	summary, err := renderDiff(args.Path, args.OldString, args.NewString)
	if err != nil {
		return fmt.Sprintf("updated %s (%d replacement(s))", args.Path, replacementCount(args, count)), nil
	}
	return fmt.Sprintf("updated %s (%d replacement(s))\n%s", args.Path, replacementCount(args, count), summary), nil
}

func replacementCount(args EditFileArgs, matches int) int {
	if args.ReplaceAll {
		return matches
	}
	return 1
}

// renderDiff builds a minimal unified-diff hunk for the replaced span and
// renders it with go-diff's printer, so edit summaries use the same format
// a reviewer would see from `diff -u`.
func renderDiff(path, oldText, newText string) (string, error) {
	oldLines := splitNonEmpty(oldText)
	newLines := splitNonEmpty(newText)

	var body strings.Builder
	for _, l := range oldLines {
		fmt.Fprintf(&body, "-%s\n", l)
	}
	for _, l := range newLines {
		fmt.Fprintf(&body, "+%s\n", l)
	}

	hunk := &diff.Hunk{
		OrigLines: int32(len(oldLines)),
		NewLines:  int32(len(newLines)),
		Body:      []byte(body.String()),
	}
	fd := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    []*diff.Hunk{hunk},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
