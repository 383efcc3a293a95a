package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the checkpoint's fixed name under a run's logs root.
const FileName = "checkpoint"

// Save writes cp to logsRoot/checkpoint atomically: marshal, write to a
// temp file in the same directory, then rename over the target. Readers
// never observe a partially written file.
func Save(logsRoot string, cp *Checkpoint) error {
	data, err := cp.Serialize()
	if err != nil {
		return fmt.Errorf("checkpoint: serialize: %w", err)
	}
	target := filepath.Join(logsRoot, FileName)
	tmp, err := os.CreateTemp(logsRoot, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// Load reads and parses logsRoot/checkpoint.
func Load(logsRoot string) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(logsRoot, FileName))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}
	return Deserialize(data)
}

// Exists reports whether a checkpoint file is present under logsRoot.
func Exists(logsRoot string) bool {
	_, err := os.Stat(filepath.Join(logsRoot, FileName))
	return err == nil
}

// Clear removes the checkpoint file, if any. Missing file is not an error.
func Clear(logsRoot string) error {
	err := os.Remove(filepath.Join(logsRoot, FileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: clear: %w", err)
	}
	return nil
}
