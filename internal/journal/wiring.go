package journal

import (
	"log/slog"
	"time"

	"github.com/attractor-run/attractor/pkg/event"
)

// Wire subscribes bus to store, mirroring every emitted Event into
// run_events and every StageCompleted into stage_status. A write failure
// logs and drops the row rather than propagating into the event bus,
// since a journal write must never perturb pipeline execution.
func Wire(bus *event.Bus, store *Store) {
	if bus == nil || store == nil {
		return
	}

	bus.OnAll(func(ev event.Event) {
		if err := store.RecordEvent(ev.Kind(), time.Now(), ev); err != nil {
			slog.Error("journal: record event failed", "kind", ev.Kind(), "error", err)
		}
	})

	bus.Subscribe(event.StageCompleted{}.Kind(), func(ev event.Event) {
		e := ev.(event.StageCompleted)
		if err := store.UpsertStageStatus(e.NodeID, e.Status, e.Notes, time.Now()); err != nil {
			slog.Error("journal: upsert stage status failed", "node_id", e.NodeID, "error", err)
		}
	})
}
