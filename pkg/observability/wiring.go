// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/attractor-run/attractor/pkg/event"
)

// Wire subscribes bus to mgr's tracer and metrics, translating pipeline and
// session events into spans and Prometheus series. Safe to call with a
// disabled (nil-component) Manager: every Tracer/Metrics method tolerates a
// nil receiver, so wiring an unconfigured Manager is a no-op.
func Wire(bus *event.Bus, mgr *Manager) {
	if bus == nil || mgr == nil {
		return
	}

	w := &wirer{
		tracer:  mgr.Tracer(),
		metrics: mgr.Metrics(),
		stages:  make(map[string]stageState),
		runs:    make(map[string]runState),
		sessions: make(map[string]sessionState),
	}

	bus.Subscribe(event.PipelineStarted{}.Kind(), w.onPipelineStarted)
	bus.Subscribe(event.StageStarted{}.Kind(), w.onStageStarted)
	bus.Subscribe(event.StageRetrying{}.Kind(), w.onStageRetrying)
	bus.Subscribe(event.StageCompleted{}.Kind(), w.onStageCompleted)
	bus.Subscribe(event.CheckpointSaved{}.Kind(), w.onCheckpointSaved)
	bus.Subscribe(event.PipelineCompleted{}.Kind(), w.onPipelineCompleted)
	bus.Subscribe(event.PipelineFailed{}.Kind(), w.onPipelineFailed)

	bus.Subscribe(event.SessionStart{}.Kind(), w.onSessionStart)
	bus.Subscribe(event.SessionEnd{}.Kind(), w.onSessionEnd)
	bus.Subscribe(event.ToolCallStart{}.Kind(), w.onToolCallStart)
	bus.Subscribe(event.ToolCallEnd{}.Kind(), w.onToolCallEnd)
	bus.Subscribe(event.Error{}.Kind(), w.onError)
}

// runState tracks the one active pipeline span. A single wirer only ever
// observes one Engine's Bus, so there is at most one run at a time; the
// graph name doubles as the map key in case a future Engine drives more.
type runState struct {
	ctx       context.Context
	span      trace.Span
	startedAt time.Time
	graphName string
}

type stageState struct {
	ctx       context.Context
	span      trace.Span
	startedAt time.Time
}

type sessionState struct {
	ctx       context.Context
	span      trace.Span
	startedAt time.Time
}

// wirer holds the mutable state a bus subscription needs across paired
// events (start/end, started/completed) that the event package itself
// does not correlate.
type wirer struct {
	tracer  *Tracer
	metrics *Metrics

	mu       sync.Mutex
	runs     map[string]runState
	stages   map[string]stageState
	sessions map[string]sessionState
}

func (w *wirer) onPipelineStarted(ev event.Event) {
	e := ev.(event.PipelineStarted)
	ctx, span := w.tracer.StartPipelineRun(context.Background(), e.GraphName, e.Goal)
	w.mu.Lock()
	w.runs[e.GraphName] = runState{ctx: ctx, span: span, startedAt: e.StartedAt, graphName: e.GraphName}
	w.mu.Unlock()
}

func (w *wirer) onStageStarted(ev event.Event) {
	e := ev.(event.StageStarted)
	ctx, span := w.tracer.StartStageExecute(context.Background(), e.NodeID, "")
	w.mu.Lock()
	w.stages[e.NodeID] = stageState{ctx: ctx, span: span, startedAt: timeNow()}
	w.mu.Unlock()
}

func (w *wirer) onStageRetrying(ev event.Event) {
	e := ev.(event.StageRetrying)
	w.metrics.RecordStageRetry(e.NodeID)
}

func (w *wirer) onStageCompleted(ev event.Event) {
	e := ev.(event.StageCompleted)

	w.mu.Lock()
	st, ok := w.stages[e.NodeID]
	delete(w.stages, e.NodeID)
	w.mu.Unlock()

	duration := time.Duration(0)
	if ok {
		duration = time.Since(st.startedAt)
		if e.Status == "FAIL" {
			w.tracer.RecordError(st.span, statusError{e.Status, e.Notes})
		}
		st.span.End()
	}
	w.metrics.RecordStageCall(e.NodeID, e.Status, duration)
}

func (w *wirer) onCheckpointSaved(ev event.Event) {
	e := ev.(event.CheckpointSaved)
	w.metrics.RecordCheckpointSaved(e.NodeID)
}

func (w *wirer) onPipelineCompleted(ev event.Event) {
	e := ev.(event.PipelineCompleted)
	w.endRun(e.Status, "")
}

func (w *wirer) onPipelineFailed(ev event.Event) {
	e := ev.(event.PipelineFailed)
	w.endRun("failed", e.Reason)
}

func (w *wirer) endRun(status, reason string) {
	w.mu.Lock()
	var st runState
	var graphName string
	for name, r := range w.runs {
		st, graphName = r, name
		break
	}
	if graphName != "" {
		delete(w.runs, graphName)
	}
	w.mu.Unlock()

	duration := time.Duration(0)
	if graphName != "" {
		duration = time.Since(st.startedAt)
		if reason != "" {
			w.tracer.RecordError(st.span, statusError{status, reason})
		}
		st.span.End()
	}
	w.metrics.RecordPipelineRun(graphName, status, duration)
	if reason != "" {
		w.metrics.RecordPipelineFailure(graphName, reason)
	}
}

func (w *wirer) onSessionStart(ev event.Event) {
	e := ev.(event.SessionStart)
	ctx, span := w.tracer.StartSessionRun(context.Background(), e.SessionID, e.Depth)
	w.mu.Lock()
	w.sessions[e.SessionID] = sessionState{ctx: ctx, span: span, startedAt: timeNow()}
	w.mu.Unlock()
	w.metrics.RecordSessionCreated(profileLabel)
}

func (w *wirer) onSessionEnd(ev event.Event) {
	e := ev.(event.SessionEnd)

	w.mu.Lock()
	st, ok := w.sessions[e.SessionID]
	delete(w.sessions, e.SessionID)
	w.mu.Unlock()

	if ok {
		st.span.End()
	}
	w.metrics.RecordSessionEvent(profileLabel, "session_end")
}

func (w *wirer) onToolCallStart(ev event.Event) {
	e := ev.(event.ToolCallStart)
	ctx, span := w.tracer.StartToolExecution(context.Background(), e.Name, "", e.CallID)
	w.mu.Lock()
	w.stages["tool:"+e.CallID] = stageState{ctx: ctx, span: span, startedAt: timeNow()}
	w.mu.Unlock()
}

func (w *wirer) onToolCallEnd(ev event.Event) {
	e := ev.(event.ToolCallEnd)

	w.mu.Lock()
	st, ok := w.stages["tool:"+e.CallID]
	delete(w.stages, "tool:"+e.CallID)
	w.mu.Unlock()

	duration := time.Duration(0)
	if ok {
		duration = time.Since(st.startedAt)
		if e.IsError {
			w.tracer.RecordError(st.span, statusError{"tool_error", e.RawOutput})
		}
		st.span.End()
	}
	w.metrics.RecordToolCall(e.Name, duration)
	if e.IsError {
		w.metrics.RecordToolError(e.Name, "execution_error")
	}
}

func (w *wirer) onError(ev event.Event) {
	e := ev.(event.Error)
	if e.Err == nil {
		return
	}
	w.mu.Lock()
	st, ok := w.sessions[e.SessionID]
	w.mu.Unlock()
	if ok {
		w.tracer.RecordError(st.span, e.Err)
	}
}

// profileLabel is used where the event package carries no profile name of
// its own; sessions are not yet partitioned by profile at the event-bus
// layer.
const profileLabel = "default"

// statusError adapts a status/reason pair to the error interface so it can
// be recorded on a span via Tracer.RecordError without a new span API.
type statusError struct {
	status string
	reason string
}

func (e statusError) Error() string {
	if e.reason == "" {
		return e.status
	}
	return e.status + ": " + e.reason
}

// timeNow is a thin indirection so stage/session timing uses a single call
// site; kept distinct from time.Now to make the intent at each call site
// read as "start of interval" rather than a generic timestamp.
func timeNow() time.Time {
	return time.Now()
}
