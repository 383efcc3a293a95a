// Package engine implements the Graph Execution Engine: node traversal,
// handler dispatch, retry with backoff, goal-gate enforcement, checkpoint
// save/restore, and event emission.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/attractor-run/attractor/pkg/checkpoint"
	"github.com/attractor-run/attractor/pkg/edgeselect"
	"github.com/attractor-run/attractor/pkg/event"
	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/handler"
	"github.com/attractor-run/attractor/pkg/logger"
	"github.com/attractor-run/attractor/pkg/outcome"
	"github.com/attractor-run/attractor/pkg/pipectx"
)

// Engine runs one Graph to a terminal Outcome.
type Engine struct {
	Graph    *graph.Graph
	Handlers *handler.Registry
	Context  *pipectx.Context
	Bus      *event.Bus
	LogsRoot string

	checkpointMgr  *checkpoint.Manager
	resumeFrom     *checkpoint.Checkpoint
	completedNodes []string
	nodeOutcomes   map[string]outcome.Outcome
	nodeRetries    map[string]int

	sleep func(time.Duration)
}

// New constructs an Engine. resume may be nil for a fresh run.
func New(g *graph.Graph, handlers *handler.Registry, ctx *pipectx.Context, bus *event.Bus, logsRoot string, ckptCfg *checkpoint.Config, resume *checkpoint.Checkpoint) *Engine {
	return &Engine{
		Graph:         g,
		Handlers:      handlers,
		Context:       ctx,
		Bus:           bus,
		LogsRoot:      logsRoot,
		checkpointMgr: checkpoint.NewManager(ckptCfg, logsRoot),
		resumeFrom:    resume,
		nodeOutcomes:  make(map[string]outcome.Outcome),
		nodeRetries:   make(map[string]int),
		sleep:         time.Sleep,
	}
}

// Run executes the pipeline to a terminal Outcome.
func (e *Engine) Run(ctx context.Context) (outcome.Outcome, error) {
	if err := os.MkdirAll(e.LogsRoot, 0o755); err != nil {
		return outcome.Outcome{}, fmt.Errorf("engine: create logs root: %w", err)
	}

	goal := e.Graph.Attributes["goal"]
	e.Context.Set("graph.goal", goal)
	for k, v := range e.Graph.Attributes {
		e.Context.Set("graph."+k, v)
	}

	log := logger.GetLogger().With("component", "engine", "graph", e.Graph.Name)

	startedAt := time.Now().UTC()
	if err := writeManifest(e.LogsRoot, Manifest{GraphName: e.Graph.Name, Goal: goal, StartedAt: startedAt}); err != nil {
		return outcome.Outcome{}, err
	}
	log.Info("pipeline started", "goal", goal)
	e.Bus.Emit(event.PipelineStarted{GraphName: e.Graph.Name, Goal: goal, StartedAt: startedAt})

	current, err := e.resumeOrStart()
	if err != nil {
		return outcome.Outcome{}, err
	}

	var last outcome.Outcome
	for {
		node, ok := e.Graph.Node(current)
		if !ok {
			return outcome.Outcome{}, fmt.Errorf("engine: unknown node %q", current)
		}

		if e.Graph.IsExit(current) {
			if failedGate, target, ok := e.checkGoalGates(); ok {
				if target != "" {
					if _, exists := e.Graph.Node(target); exists {
						log.Info("goal gate unsatisfied, routing to retry target", "gate", failedGate, "target", target)
						current = target
						continue
					}
				}
				reason := "Goal gate unsatisfied"
				log.Warn("pipeline failed", "reason", reason, "gate", failedGate)
				e.Bus.Emit(event.PipelineFailed{Reason: reason})
				return outcome.Outcome{Status: outcome.StatusFail, FailureReason: reason}, nil
			}
			log.Info("pipeline completed", "status", last.Status)
			e.Bus.Emit(event.PipelineCompleted{Status: string(last.Status)})
			return last, nil
		}

		nodeLog := log.With("node_id", node.ID)
		nodeLog.Info("stage started")
		e.Bus.Emit(event.StageStarted{NodeID: node.ID})
		e.Context.Set(pipectx.KeyCurrentNode, node.ID)

		h, err := e.Handlers.Resolve(node)
		if err != nil {
			return outcome.Outcome{}, err
		}

		stageDir := filepath.Join(e.LogsRoot, node.ID)
		policy := buildRetryPolicy(node, e.Graph)
		out := e.executeWithRetry(ctx, h, node, stageDir, policy)

		e.completedNodes = append(e.completedNodes, node.ID)
		e.nodeOutcomes[node.ID] = out
		last = out
		nodeLog.Info("stage completed", "status", out.Status)
		e.Bus.Emit(event.StageCompleted{NodeID: node.ID, Status: string(out.Status), Notes: out.Notes})

		e.Context.ApplyUpdates(out.ContextUpdates)
		e.Context.Set(pipectx.KeyOutcome, string(out.Status))
		e.Context.Set(pipectx.KeyPreferredLabel, out.PreferredLabel)

		cp := checkpoint.New(node.ID, e.completedNodes, cloneRetries(e.nodeRetries), e.Context.Snapshot())
		if saveErr := e.checkpointMgr.SaveAfterStage(cp); saveErr == nil && e.checkpointMgr.IsEnabled() {
			e.Bus.Emit(event.CheckpointSaved{NodeID: node.ID, Path: filepath.Join(e.LogsRoot, checkpoint.FileName)})
		}

		edge, hasEdge := edgeselect.Select(e.Graph.OutgoingEdges(node.ID), out, e.Context)
		if !hasEdge {
			if out.Status == outcome.StatusFail {
				e.Bus.Emit(event.PipelineFailed{Reason: out.FailureReason})
				return out, nil
			}
			return out, nil
		}

		current = edge.To
	}
}

// executeWithRetry runs h.Execute up to policy.MaxAttempts times,
// implementing §4.1.1 exactly: exceptions and RETRY statuses are retried
// with backoff; SUCCESS/PARTIAL_SUCCESS clear the retry counter; FAIL and
// SKIPPED return immediately.
func (e *Engine) executeWithRetry(ctx context.Context, h handler.Handler, n *graph.Node, stageDir string, policy RetryPolicy) outcome.Outcome {
	log := logger.GetLogger().With("component", "engine", "node_id", n.ID)
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		out, err := h.Execute(ctx, n, e.Context, e.Graph, stageDir)
		if err != nil {
			if attempt < policy.MaxAttempts {
				delay := policy.computeDelay(attempt)
				log.Warn("stage errored, retrying", "attempt", attempt, "delay", delay, "error", err)
				e.Bus.Emit(event.StageRetrying{NodeID: n.ID, Attempt: attempt, Delay: delay})
				e.sleep(delay)
				continue
			}
			out := outcome.Outcome{Status: outcome.StatusFail, FailureReason: err.Error()}
			_ = writeStatus(stageDir, out.ToStatusRecord())
			return out
		}

		switch out.Status {
		case outcome.StatusSuccess, outcome.StatusPartialSuccess:
			delete(e.nodeRetries, n.ID)
			_ = writeStatus(stageDir, out.ToStatusRecord())
			return out
		case outcome.StatusRetry:
			if attempt < policy.MaxAttempts {
				e.nodeRetries[n.ID]++
				delay := policy.computeDelay(attempt)
				log.Info("stage requested retry", "attempt", attempt, "delay", delay)
				e.Bus.Emit(event.StageRetrying{NodeID: n.ID, Attempt: attempt, Delay: delay})
				e.sleep(delay)
				continue
			}
			if n.AllowPartial {
				out.Status = outcome.StatusPartialSuccess
				out.Notes = appendNote(out.Notes, "retries exhausted")
			} else {
				out.Status = outcome.StatusFail
				out.FailureReason = "max retries exceeded"
			}
			_ = writeStatus(stageDir, out.ToStatusRecord())
			return out
		default: // FAIL, SKIPPED
			_ = writeStatus(stageDir, out.ToStatusRecord())
			return out
		}
	}
	return outcome.Outcome{Status: outcome.StatusFail, FailureReason: "max retries exceeded"}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}

// checkGoalGates iterates completed nodes; for each goal_gate node whose
// recorded outcome does not satisfy the gate, returns its id and its
// resolved retry target. ok is false when every gate is satisfied.
func (e *Engine) checkGoalGates() (failedNodeID string, retryTarget string, ok bool) {
	for _, id := range e.completedNodes {
		n, exists := e.Graph.Node(id)
		if !exists || !n.GoalGate {
			continue
		}
		out, recorded := e.nodeOutcomes[id]
		if recorded && out.Status.Satisfied() {
			continue
		}
		return id, e.retryTargetFor(n), true
	}
	return "", "", false
}

// retryTargetFor resolves in the order: node.retry_target,
// node.fallback_retry_target, graph.attributes.retry_target,
// graph.attributes.fallback_retry_target.
func (e *Engine) retryTargetFor(n *graph.Node) string {
	if n.RetryTarget != "" {
		return n.RetryTarget
	}
	if n.FallbackRetryTarget != "" {
		return n.FallbackRetryTarget
	}
	if v := e.Graph.Attributes["retry_target"]; v != "" {
		return v
	}
	return e.Graph.Attributes["fallback_retry_target"]
}

// resumeOrStart restores completed-node/retry/context state from a
// supplied checkpoint and computes the resume node, or returns the graph's
// start node for a fresh run.
func (e *Engine) resumeOrStart() (string, error) {
	if e.resumeFrom == nil {
		start, ok := e.Graph.StartNode()
		if !ok {
			return "", errors.New("engine: graph has no start node")
		}
		return start.ID, nil
	}

	cp := e.resumeFrom
	e.completedNodes = append([]string(nil), cp.CompletedNodes...)
	e.nodeRetries = cloneRetries(cp.NodeRetries)
	e.Context.Restore(cp.ContextValues)

	if len(e.completedNodes) == 0 {
		start, ok := e.Graph.StartNode()
		if !ok {
			return "", errors.New("engine: graph has no start node")
		}
		return start.ID, nil
	}

	lastCompleted := e.completedNodes[len(e.completedNodes)-1]
	if edges := e.Graph.OutgoingEdges(lastCompleted); len(edges) > 0 {
		return edges[0].To, nil
	}
	start, ok := e.Graph.StartNode()
	if !ok {
		return "", errors.New("engine: graph has no start node")
	}
	return start.ID, nil
}

func cloneRetries(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
