// Command attractor wires the graph execution engine's production
// collaborators together: configuration, logging, the event journal,
// observability, and the built-in handler registry. Graph parsing itself
// is an external collaborator (spec-defined out of core scope), so this
// binary takes no subcommand: every invocation runs the "doctor" check,
// which validates that the wiring is sound without driving an actual graph.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/attractor-run/attractor/internal/config"
	"github.com/attractor-run/attractor/internal/journal"
	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/llm/anthropic"
	"github.com/attractor-run/attractor/pkg/agentloop/session"
	"github.com/attractor-run/attractor/pkg/event"
	"github.com/attractor-run/attractor/pkg/graph"
	"github.com/attractor-run/attractor/pkg/handler"
	"github.com/attractor-run/attractor/pkg/handler/builtin"
	"github.com/attractor-run/attractor/pkg/logger"
	"github.com/attractor-run/attractor/pkg/observability"
)

func main() {
	configPath := flag.String("config", "attractor.yaml", "path to the runtime config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attractor:", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attractor:", err)
		os.Exit(1)
	}
	logger.Init(level, os.Stderr, cfg.Logging.Format)
	log := logger.GetLogger().With("component", "cmd/attractor")

	ctx := context.Background()
	mgr, err := observability.NewFromConfig(ctx, &cfg.Observability)
	if err != nil {
		log.Error("observability setup failed", "error", err)
		os.Exit(1)
	}

	bus := event.NewBus()
	observability.Wire(bus, mgr)

	if cfg.Journal.IsEnabled() {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Error("journal open failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		journal.Wire(bus, store)
		log.Info("journal wired", "path", cfg.Journal.Path)
	}

	reg := handler.NewRegistry()
	if err := builtin.RegisterDefaults(reg, stdinInterviewer{}, codergenConfig(bus)); err != nil {
		log.Error("handler registration failed", "error", err)
		os.Exit(1)
	}

	for shape, nodeType := range handler.ShapeToType {
		n := &graph.Node{ID: "doctor", Shape: shape}
		if _, err := reg.Resolve(n); err != nil {
			log.Error("shape does not resolve", "shape", shape, "want_type", nodeType, "error", err)
			os.Exit(1)
		}
		log.Info("shape resolves", "shape", shape, "type", nodeType)
	}
	log.Info("wiring OK: every shape resolves to a handler")
}

// codergenConfig builds the codergen handler's configuration from the
// process environment. A missing ANTHROPIC_API_KEY yields a nil Client;
// the handler itself reports that clearly as a FAIL outcome rather than
// this binary refusing to start.
func codergenConfig(bus *event.Bus) builtin.CodergenConfig {
	var client *anthropic.Client
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c, err := anthropic.New(anthropic.Config{APIKey: key})
		if err != nil {
			slog.Warn("anthropic client setup failed, codergen nodes will fail", "error", err)
		} else {
			client = c
		}
	}

	cfg := builtin.CodergenConfig{
		DefaultModel:  "claude-sonnet-4-20250514",
		SessionConfig: session.DefaultConfig(),
		EnvPolicy:     env.InheritCore,
		Bus:           bus,
	}
	if client != nil {
		cfg.Client = client
	}
	return cfg
}

// stdinInterviewer is the wait.human collaborator for interactive runs: it
// prints the question and blocks on a line of stdin.
type stdinInterviewer struct{}

func (stdinInterviewer) Ask(_ context.Context, question string) (string, error) {
	fmt.Println(question)
	fmt.Print("> ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}
