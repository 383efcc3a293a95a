// Package truncation bounds tool output before it enters conversation
// history, while leaving the raw output available to observers via the
// ToolCallEnd event.
package truncation

import (
	"fmt"
	"strings"
)

// Mode selects where characters are dropped from.
type Mode string

const (
	// ModeHeadTail keeps a prefix and a suffix, dropping the middle.
	ModeHeadTail Mode = "head_tail"
	// ModeTail keeps only a suffix.
	ModeTail Mode = "tail"
)

// Config is one tool's truncation limits.
type Config struct {
	MaxChars int
	Mode     Mode
	MaxLines int // 0 means no line-based pass
}

// defaultConfigs are the per-tool limits fixed by the boundary contract.
var defaultConfigs = map[string]Config{
	"read_file":    {MaxChars: 50_000, Mode: ModeHeadTail},
	"shell":        {MaxChars: 30_000, Mode: ModeHeadTail, MaxLines: 256},
	"grep":         {MaxChars: 20_000, Mode: ModeTail, MaxLines: 200},
	"glob":         {MaxChars: 20_000, Mode: ModeTail, MaxLines: 500},
	"edit_file":    {MaxChars: 10_000, Mode: ModeTail},
	"apply_patch":  {MaxChars: 10_000, Mode: ModeTail},
	"write_file":   {MaxChars: 1_000, Mode: ModeTail},
	"spawn_agent":  {MaxChars: 20_000, Mode: ModeHeadTail},
}

var fallbackConfig = Config{MaxChars: 30_000, Mode: ModeHeadTail}

// ConfigFor returns the truncation config for a tool, falling back to a
// generic default for unlisted tools. overrides take precedence when
// present.
func ConfigFor(toolName string, overrides map[string]Config) Config {
	if overrides != nil {
		if c, ok := overrides[toolName]; ok {
			return c
		}
	}
	if c, ok := defaultConfigs[toolName]; ok {
		return c
	}
	return fallbackConfig
}

// Truncate runs the two-stage pipeline for toolName: a character-based
// pass first (so pathological single-line output is always bounded),
// then a line-based pass where configured.
func Truncate(output, toolName string, overrides map[string]Config) string {
	cfg := ConfigFor(toolName, overrides)
	result := truncateChars(output, cfg)
	if cfg.MaxLines > 0 {
		result = truncateLines(result, cfg.MaxLines)
	}
	return result
}

func truncateChars(output string, cfg Config) string {
	if len(output) <= cfg.MaxChars {
		return output
	}
	removed := len(output) - cfg.MaxChars

	if cfg.Mode == ModeHeadTail {
		half := cfg.MaxChars / 2
		marker := fmt.Sprintf("\n\n[WARNING: Output truncated. %d characters removed from the middle. Full output available in TOOL_CALL_END event.]\n\n", removed)
		return output[:half] + marker + output[len(output)-half:]
	}

	marker := fmt.Sprintf("[WARNING: Output truncated. First %d characters removed.]\n\n", removed)
	return marker + output[len(output)-cfg.MaxChars:]
}

func truncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	head := strings.Join(lines[:headCount], "\n")
	tail := strings.Join(lines[len(lines)-tailCount:], "\n")
	return fmt.Sprintf("%s\n[... %d lines omitted ...]\n%s", head, omitted, tail)
}
