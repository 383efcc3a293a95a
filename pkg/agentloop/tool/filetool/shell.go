package filetool

import (
	"context"
	"fmt"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
	"github.com/attractor-run/attractor/pkg/agentloop/tool/functiontool"
)

// ShellArgs are the shell tool's parameters.
type ShellArgs struct {
	Command   string `json:"command" jsonschema:"required,description=Shell command to run"`
	TimeoutMS int    `json:"timeout_ms,omitempty" jsonschema:"description=Timeout in milliseconds before the process group is killed,default=10000"`
}

// NewShell returns the shell tool.
func NewShell() (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "shell",
			Description: "Run a shell command and return its stdout, stderr, and exit code. Killed (SIGTERM then SIGKILL) if it exceeds timeout_ms.",
		},
		func(ctx context.Context, e env.ExecutionEnvironment, args ShellArgs) (string, error) {
			result, err := e.ExecCommand(ctx, args.Command, int64(args.TimeoutMS), "", nil)
			if err != nil {
				return "", err
			}
			status := "ok"
			if result.TimedOut {
				status = "timed out"
			}
			return fmt.Sprintf(
				"exit_code=%d status=%s duration_ms=%d\n--- stdout ---\n%s\n--- stderr ---\n%s",
				result.ExitCode, status, result.DurationMS, result.Stdout, result.Stderr,
			), nil
		},
	)
}
