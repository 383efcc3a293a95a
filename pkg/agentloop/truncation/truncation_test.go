package truncation

import (
	"strings"
	"testing"
)

func TestConfigFor_KnownTool(t *testing.T) {
	cfg := ConfigFor("write_file", nil)
	if cfg != defaultConfigs["write_file"] {
		t.Errorf("ConfigFor(write_file) = %+v, want %+v", cfg, defaultConfigs["write_file"])
	}
}

func TestConfigFor_UnknownToolFallsBack(t *testing.T) {
	cfg := ConfigFor("some_unlisted_tool", nil)
	if cfg != fallbackConfig {
		t.Errorf("ConfigFor(unlisted) = %+v, want fallback %+v", cfg, fallbackConfig)
	}
}

func TestConfigFor_OverrideTakesPrecedence(t *testing.T) {
	override := map[string]Config{"write_file": {MaxChars: 5, Mode: ModeTail}}
	cfg := ConfigFor("write_file", override)
	if cfg != override["write_file"] {
		t.Errorf("ConfigFor() with override = %+v, want %+v", cfg, override["write_file"])
	}
}

func TestTruncate_ShortOutputUnchanged(t *testing.T) {
	out := Truncate("hello world", "write_file", nil)
	if out != "hello world" {
		t.Errorf("Truncate() = %q, want unchanged short output", out)
	}
}

func TestTruncate_HeadTailKeepsBothEnds(t *testing.T) {
	body := strings.Repeat("a", 100_000)
	out := Truncate(body, "read_file", nil)
	if !strings.HasPrefix(out, strings.Repeat("a", 10)) {
		t.Errorf("Truncate() head_tail output does not start with original content")
	}
	if !strings.HasSuffix(out, strings.Repeat("a", 10)) {
		t.Errorf("Truncate() head_tail output does not end with original content")
	}
	if !strings.Contains(out, "truncated") {
		t.Errorf("Truncate() head_tail output missing truncation marker")
	}
}

func TestTruncate_TailModeKeepsSuffixOnly(t *testing.T) {
	// write_file keeps the last 1000 chars, so the head of "b"s must be
	// longer than that and the kept suffix must not contain any of it.
	body := strings.Repeat("b", 5000) + strings.Repeat("t", 1000) + "TAIL_MARKER_CONTENT"
	out := Truncate(body, "write_file", nil)
	if !strings.HasSuffix(out, "TAIL_MARKER_CONTENT") {
		t.Errorf("Truncate() tail mode output does not end with original suffix")
	}
	if strings.Contains(out, strings.Repeat("b", 100)) {
		t.Errorf("Truncate() tail mode output unexpectedly retains head content")
	}
}

func TestTruncate_LineBasedPassAppliesAfterCharPass(t *testing.T) {
	lines := make([]string, 1000)
	for i := range lines {
		lines[i] = "line"
	}
	body := strings.Join(lines, "\n")
	out := Truncate(body, "grep", nil)
	if !strings.Contains(out, "lines omitted") {
		t.Errorf("Truncate() grep output missing line-omission marker, got %d bytes", len(out))
	}
}

func TestTruncateLines_BelowLimitUnchanged(t *testing.T) {
	out := truncateLines("a\nb\nc", 10)
	if out != "a\nb\nc" {
		t.Errorf("truncateLines() = %q, want unchanged", out)
	}
}
