// Package prompt assembles a Session's system prompt from five
// ascending-priority layers, rebuilt fresh on every LLM request.
package prompt

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/profile"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
)

// BudgetBytes bounds the total size of loaded project docs.
const BudgetBytes = 32 * 1024

var providerDocFiles = map[string][]string{
	"anthropic": {"AGENTS.md", "CLAUDE.md"},
	"openai":    {"AGENTS.md", ".codex/instructions.md"},
	"gemini":    {"AGENTS.md", "GEMINI.md"},
}

// Build assembles the layered system prompt for prof, describing
// environment and querying its working directory for project docs.
// depth and maxDepth gate whether subagent tools are mentioned at all,
// per the bounded-depth subagent wiring contract. userInstructions is a
// caller-supplied override appended last, so it takes priority over
// base instructions, environment, tools, and project docs.
func Build(prof *profile.Profile, e env.ExecutionEnvironment, depth, maxDepth int, userInstructions string) (string, error) {
	var layers []string

	if prof.BaseInstructions != "" {
		layers = append(layers, prof.BaseInstructions)
	}

	layers = append(layers, environmentBlock(e, prof.Model))

	defs := prof.Tools.Definitions()
	if depth >= maxDepth {
		defs = withoutSubagentTools(defs)
	}
	if toolText := formatToolDescriptions(defs); toolText != "" {
		layers = append(layers, toolText)
	}

	for _, doc := range discoverProjectDocs(e.WorkingDirectory(), "anthropic") {
		layers = append(layers, doc)
	}

	if userInstructions != "" {
		layers = append(layers, userInstructions)
	}

	return strings.Join(layers, "\n\n"), nil
}

func withoutSubagentTools(defs []tool.Definition) []tool.Definition {
	subagentNames := map[string]bool{"spawn_agent": true, "send_input": true, "wait": true, "close_agent": true}
	out := defs[:0:0]
	for _, d := range defs {
		if !subagentNames[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

func environmentBlock(e env.ExecutionEnvironment, model string) string {
	git := gitContext(e.WorkingDirectory())

	var b strings.Builder
	b.WriteString("<environment>\n")
	fmt.Fprintf(&b, "Working directory: %s\n", e.WorkingDirectory())
	fmt.Fprintf(&b, "Is git repository: %t\n", git.isRepo)
	if git.isRepo {
		fmt.Fprintf(&b, "Git branch: %s\n", git.branch)
	}
	fmt.Fprintf(&b, "Platform: %s\n", e.Platform())
	fmt.Fprintf(&b, "OS version: %s\n", e.OSVersion())
	fmt.Fprintf(&b, "Today's date: %s\n", time.Now().UTC().Format("2006-01-02"))
	if model != "" {
		fmt.Fprintf(&b, "Model: %s\n", model)
	}
	b.WriteString("</environment>")
	return b.String()
}

type gitInfo struct {
	isRepo bool
	branch string
}

// gitContext samples a handful of git facts with short timeouts; a
// non-git directory or missing git binary just yields isRepo=false.
func gitContext(workingDir string) gitInfo {
	if !runGit(workingDir, "rev-parse", "--is-inside-work-tree") {
		return gitInfo{isRepo: false}
	}
	branch := "unknown"
	if out, ok := runGitOutput(workingDir, "rev-parse", "--abbrev-ref", "HEAD"); ok {
		branch = strings.TrimSpace(out)
	}
	return gitInfo{isRepo: true, branch: branch}
}

func runGit(workingDir string, args ...string) bool {
	_, ok := runGitOutput(workingDir, args...)
	return ok
}

func runGitOutput(workingDir string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workingDir
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return string(out), true
}

func formatToolDescriptions(defs []tool.Definition) string {
	if len(defs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Available Tools\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "\n### %s\n%s\n", d.Name, d.Description)
	}
	return b.String()
}

// discoverProjectDocs walks from the git root (or workingDir) down to
// workingDir, loading recognized instruction files in root-to-deep order
// (deep files win by later position), capped at BudgetBytes total.
func discoverProjectDocs(workingDir, providerID string) []string {
	allowed := providerDocFiles[providerID]
	if allowed == nil {
		allowed = []string{"AGENTS.md"}
	}
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)

	root, ok := runGitOutput(workingDir, "rev-parse", "--show-toplevel")
	rootDir := workingDir
	if ok {
		rootDir = strings.TrimSpace(root)
	}

	dirs := []string{rootDir}
	if rel, err := filepath.Rel(rootDir, workingDir); err == nil && rel != "." {
		current := rootDir
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			current = filepath.Join(current, part)
			dirs = append(dirs, current)
		}
	}

	var docs []string
	totalBytes := 0
	for _, dir := range dirs {
		for _, name := range sorted {
			content, ok := readFileIfExists(filepath.Join(dir, name))
			if !ok {
				continue
			}
			size := len(content)
			if totalBytes+size > BudgetBytes {
				remaining := BudgetBytes - totalBytes
				if remaining > 0 {
					docs = append(docs, content[:remaining]+"\n[Project instructions truncated at 32KB]")
				}
				return docs
			}
			docs = append(docs, content)
			totalBytes += size
		}
	}
	return docs
}

func readFileIfExists(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(b), true
}
