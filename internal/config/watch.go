package config

import (
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/attractor-run/attractor/pkg/logger"
)

// WatchLogLevel re-parses path on every write event and applies its
// logging.level/format to the default logger, so an operator can change
// verbosity without restarting a long-running graph. It runs until
// stop is closed; watch errors are logged, not returned, since a failed
// reload should never abort the run it is watching.
func WatchLogLevel(path string, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				applyLogLevel(path)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config: watch error", "path", path, "error", werr)
			}
		}
	}()
	return nil
}

func applyLogLevel(path string) {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload failed", "path", path, "error", err)
		return
	}
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		slog.Error("config: invalid log level on reload", "level", cfg.Logging.Level, "error", err)
		return
	}
	logger.Init(level, os.Stderr, cfg.Logging.Format)
}
