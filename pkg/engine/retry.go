package engine

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/attractor-run/attractor/pkg/graph"
)

// RetryPolicy is the per-node retry/backoff configuration built from the
// node's own fields, falling back to the graph's default_max_retry
// attribute.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	Multiplier      float64
	MaxDelay        time.Duration
	Jitter          bool
}

const (
	defaultInitialDelay = 500 * time.Millisecond
	defaultMultiplier   = 2.0
	defaultMaxDelay     = 30 * time.Second
)

// buildRetryPolicy derives MaxAttempts = node.MaxRetries + 1, defaulting
// MaxRetries from the graph's "default_max_retry" attribute when the node
// itself does not set one (MaxRetries == 0).
func buildRetryPolicy(n *graph.Node, g *graph.Graph) RetryPolicy {
	maxRetries := n.MaxRetries
	if maxRetries == 0 {
		if v := g.Attributes["default_max_retry"]; v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				maxRetries = parsed
			}
		}
	}
	return RetryPolicy{
		MaxAttempts:  maxRetries + 1,
		InitialDelay: defaultInitialDelay,
		Multiplier:   defaultMultiplier,
		MaxDelay:     defaultMaxDelay,
		Jitter:       true,
	}
}

// computeDelay returns the backoff delay before attempt n+1 (n is 1-based
// completed attempt count): min(initial * multiplier^(n-1), max), scaled
// by a uniform jitter factor in [0.5, 1.5] when enabled.
func (p RetryPolicy) computeDelay(n int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n-1))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}
