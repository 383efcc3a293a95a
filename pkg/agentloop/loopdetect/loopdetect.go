// Package loopdetect watches a session's tool-call history for a stuck
// agent repeating itself, so a steering nudge can be injected before the
// turn/round budget is exhausted on a cycle.
package loopdetect

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultWindow is the number of trailing signatures inspected per check.
const DefaultWindow = 10

// Signature identifies one tool call by name and canonicalized arguments.
type Signature struct {
	ToolName string
	Args     string // canonical JSON: sorted keys, normalized values
}

// Canonicalize builds a Signature from a tool name and its raw arguments,
// normalizing the argument map so semantically identical calls compare
// equal regardless of key order.
func Canonicalize(toolName string, args map[string]any) Signature {
	return Signature{ToolName: toolName, Args: canonicalJSON(args)}
}

func canonicalJSON(v any) string {
	normalized := normalize(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// normalize recursively sorts map keys (via conversion to a
// sorted-key-ordered structure is not directly expressible in
// encoding/json, so normalize instead renders maps through sorted key
// iteration into a canonical string keyed object) and leaves scalars as-is.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = normalize(val[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	default:
		return val
	}
}

// Detector holds a rolling window of tool-call signatures and tests it for
// repetition after each tool round.
type Detector struct {
	window     int
	signatures []Signature
}

// New returns a Detector with the given window size (DefaultWindow if 0).
func New(window int) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{window: window}
}

// Record appends a signature to the rolling history.
func (d *Detector) Record(sig Signature) {
	d.signatures = append(d.signatures, sig)
}

// Check inspects the trailing window and returns an advisory message when
// it detects identical-repeat or cyclic-repeat behavior, or "" otherwise.
func (d *Detector) Check() string {
	if len(d.signatures) < d.window {
		return ""
	}
	recent := d.signatures[len(d.signatures)-d.window:]

	if allIdentical(recent) {
		return fmt.Sprintf("you have called %s with identical arguments repeatedly; try a different approach", recent[0].ToolName)
	}

	if period, ok := cyclicPeriod(recent); ok {
		names := make([]string, period)
		for i := 0; i < period; i++ {
			names[i] = recent[i].ToolName
		}
		return fmt.Sprintf("you are repeating a cycle of tool calls (%v); try a different approach", names)
	}

	return ""
}

func allIdentical(sigs []Signature) bool {
	for _, s := range sigs[1:] {
		if s != sigs[0] {
			return false
		}
	}
	return true
}

// cyclicPeriod reports whether sigs is an exact tiling of some period
// p <= len(sigs)/2.
func cyclicPeriod(sigs []Signature) (int, bool) {
	n := len(sigs)
	for p := 1; p <= n/2; p++ {
		if n%p != 0 {
			continue
		}
		if tiles(sigs, p) {
			return p, true
		}
	}
	return 0, false
}

func tiles(sigs []Signature, period int) bool {
	for i := period; i < len(sigs); i++ {
		if sigs[i] != sigs[i%period] {
			return false
		}
	}
	return true
}
