package filetool

import (
	"fmt"

	"github.com/attractor-run/attractor/pkg/agentloop/tool"
)

// RegisterCore adds read_file, write_file, edit_file, shell, grep, and glob
// to reg. includeApplyPatch additionally registers apply_patch for
// provider profiles that prefer structured multi-file patches.
func RegisterCore(reg *tool.Registry, includeApplyPatch bool) error {
	builders := []func() (tool.Tool, error){
		NewReadFile, NewWriteFile, NewEditFile, NewShell, NewGrep, NewGlob,
	}
	if includeApplyPatch {
		builders = append(builders, NewApplyPatch)
	}

	for _, build := range builders {
		t, err := build()
		if err != nil {
			return fmt.Errorf("filetool: %w", err)
		}
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("filetool: %w", err)
		}
	}
	return nil
}
