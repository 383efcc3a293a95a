// Package checkpoint implements the engine's point-in-time restart state:
// serialization, atomic file persistence, and restore.
//
// Checkpoints are taken only after a stage fully completes (spec Non-goal:
// no streaming of partial node state to disk); there is no intra-node
// checkpoint phase.
package checkpoint

import (
	"encoding/json"
	"time"
)

// SchemaVersion is bumped whenever the persisted shape changes
// incompatibly.
const SchemaVersion = 1

// Checkpoint is a snapshot of engine state sufficient to resume a run.
type Checkpoint struct {
	SchemaVersion  int            `json:"schema_version"`
	CurrentNode    string         `json:"current_node"`
	CompletedNodes []string       `json:"completed_nodes"`
	NodeRetries    map[string]int `json:"node_retries"`
	ContextValues  map[string]any `json:"context_values"`
	Timestamp      time.Time      `json:"timestamp"`
}

// New builds a Checkpoint ready to serialize.
func New(currentNode string, completedNodes []string, nodeRetries map[string]int, contextValues map[string]any) *Checkpoint {
	return &Checkpoint{
		SchemaVersion:  SchemaVersion,
		CurrentNode:    currentNode,
		CompletedNodes: append([]string(nil), completedNodes...),
		NodeRetries:    nodeRetries,
		ContextValues:  contextValues,
		Timestamp:      time.Now().UTC(),
	}
}

// Serialize renders the checkpoint as indented JSON.
func (c *Checkpoint) Serialize() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Deserialize parses a Checkpoint from JSON.
func Deserialize(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
