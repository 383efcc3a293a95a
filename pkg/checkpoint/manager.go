package checkpoint

import (
	"log/slog"
)

// Manager orchestrates checkpoint persistence for one run's logs root. The
// engine calls SaveAfterStage once per completed stage and leaves the file
// in place after the run; LoadForResume and ClearOnComplete are available
// to callers but the engine itself calls neither (a resume checkpoint is
// passed to engine.New directly).
type Manager struct {
	config   *Config
	logsRoot string
}

// NewManager creates a Manager bound to a run's logs root.
func NewManager(cfg *Config, logsRoot string) *Manager {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()
	return &Manager{config: cfg, logsRoot: logsRoot}
}

// IsEnabled reports whether checkpointing is active for this run.
func (m *Manager) IsEnabled() bool {
	return m.config.IsEnabled()
}

// SaveAfterStage persists cp and logs (but does not fail the run) on
// write error, matching the engine's "checkpoint write failures never
// abort the pipeline" posture.
func (m *Manager) SaveAfterStage(cp *Checkpoint) error {
	if !m.IsEnabled() {
		return nil
	}
	if err := Save(m.logsRoot, cp); err != nil {
		slog.Warn("failed to save checkpoint", "node", cp.CurrentNode, "error", err)
		return err
	}
	return nil
}

// LoadForResume loads the existing checkpoint, if any.
func (m *Manager) LoadForResume() (*Checkpoint, error) {
	if !Exists(m.logsRoot) {
		return nil, nil
	}
	return Load(m.logsRoot)
}

// ClearOnComplete removes the checkpoint once a run reaches a terminal
// success, so a later run of the same logs root does not appear resumable.
func (m *Manager) ClearOnComplete() {
	if err := Clear(m.logsRoot); err != nil {
		slog.Warn("failed to clear checkpoint", "logs_root", m.logsRoot, "error", err)
	}
}
