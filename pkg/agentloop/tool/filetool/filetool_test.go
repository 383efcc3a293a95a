package filetool

import (
	"context"
	"strings"
	"testing"

	"github.com/attractor-run/attractor/pkg/agentloop/env"
	"github.com/attractor-run/attractor/pkg/agentloop/tool"
)

func newTestEnv(t *testing.T) env.ExecutionEnvironment {
	t.Helper()
	return env.NewLocalExecutionEnvironment(t.TempDir(), env.InheritCore)
}

func TestReadFile_NumbersLines(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if err := e.WriteFile(ctx, "a.txt", "one\ntwo\nthree\n"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tool, err := NewReadFile()
	if err != nil {
		t.Fatalf("NewReadFile() error = %v", err)
	}
	out, err := tool.Execute(ctx, e, map[string]any{"path": "a.txt"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "1\tone") || !strings.Contains(out, "3\tthree") {
		t.Errorf("Execute() = %q, want line-numbered output", out)
	}
}

func TestReadFile_OffsetStartsNumberingFromOffset(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.txt", "one\ntwo\nthree\n")

	tool, err := NewReadFile()
	if err != nil {
		t.Fatalf("NewReadFile() error = %v", err)
	}
	out, err := tool.Execute(ctx, e, map[string]any{"path": "a.txt", "offset": float64(2), "limit": float64(1)})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "2\ttwo") || strings.Contains(out, "three") {
		t.Errorf("Execute() with offset/limit = %q, want only line 2", out)
	}
}

func TestWriteFile_Roundtrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tool, err := NewWriteFile()
	if err != nil {
		t.Fatalf("NewWriteFile() error = %v", err)
	}
	out, err := tool.Execute(ctx, e, map[string]any{"path": "b.txt", "content": "hello"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "5 bytes") {
		t.Errorf("Execute() = %q, want byte count of 5", out)
	}

	content, err := e.ReadFile(ctx, "b.txt", 0, 0)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if content != "hello" {
		t.Errorf("file content = %q, want %q", content, "hello")
	}
}

func TestEditFile_UniqueMatchReplaces(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.txt", "foo bar baz")

	tool, err := NewEditFile()
	if err != nil {
		t.Fatalf("NewEditFile() error = %v", err)
	}
	_, err = tool.Execute(ctx, e, map[string]any{"path": "a.txt", "old_string": "bar", "new_string": "qux"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	content, _ := e.ReadFile(ctx, "a.txt", 0, 0)
	if content != "foo qux baz" {
		t.Errorf("file content = %q, want %q", content, "foo qux baz")
	}
}

func TestEditFile_AmbiguousMatchWithoutReplaceAllFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.txt", "foo foo foo")

	tool, err := NewEditFile()
	if err != nil {
		t.Fatalf("NewEditFile() error = %v", err)
	}
	_, err = tool.Execute(ctx, e, map[string]any{"path": "a.txt", "old_string": "foo", "new_string": "bar"})
	if err == nil {
		t.Fatal("Execute() with ambiguous match expected an error, got nil")
	}
}

func TestEditFile_ReplaceAllReplacesEveryOccurrence(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.txt", "foo foo foo")

	tool, err := NewEditFile()
	if err != nil {
		t.Fatalf("NewEditFile() error = %v", err)
	}
	_, err = tool.Execute(ctx, e, map[string]any{
		"path": "a.txt", "old_string": "foo", "new_string": "bar", "replace_all": true,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	content, _ := e.ReadFile(ctx, "a.txt", 0, 0)
	if content != "bar bar bar" {
		t.Errorf("file content = %q, want %q", content, "bar bar bar")
	}
}

func TestEditFile_MissingOldStringFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.txt", "foo bar")

	tool, err := NewEditFile()
	if err != nil {
		t.Fatalf("NewEditFile() error = %v", err)
	}
	_, err = tool.Execute(ctx, e, map[string]any{"path": "a.txt", "old_string": "missing", "new_string": "x"})
	if err == nil {
		t.Fatal("Execute() with absent old_string expected an error, got nil")
	}
}

func TestParsePatch_RequiresBeginAndEndSentinels(t *testing.T) {
	if _, err := parsePatch("not a patch"); err == nil {
		t.Error("parsePatch() without begin sentinel expected an error, got nil")
	}
	if _, err := parsePatch("*** Begin Patch\n"); err == nil {
		t.Error("parsePatch() without end sentinel expected an error, got nil")
	}
}

func TestParsePatch_AddFile(t *testing.T) {
	text := "*** Begin Patch\n*** Add File: new.txt\n+line one\n+line two\n*** End Patch"
	ops, err := parsePatch(text)
	if err != nil {
		t.Fatalf("parsePatch() error = %v", err)
	}
	if len(ops) != 1 || ops[0].kind != opAdd || ops[0].path != "new.txt" {
		t.Fatalf("parsePatch() = %+v, want single add op for new.txt", ops)
	}
	if ops[0].addContent != "line one\nline two" {
		t.Errorf("addContent = %q, want %q", ops[0].addContent, "line one\nline two")
	}
}

func TestParsePatch_DeleteFile(t *testing.T) {
	text := "*** Begin Patch\n*** Delete File: gone.txt\n*** End Patch"
	ops, err := parsePatch(text)
	if err != nil {
		t.Fatalf("parsePatch() error = %v", err)
	}
	if len(ops) != 1 || ops[0].kind != opDelete || ops[0].path != "gone.txt" {
		t.Fatalf("parsePatch() = %+v, want single delete op for gone.txt", ops)
	}
}

func TestParsePatch_UpdateFileWithHunkAndMove(t *testing.T) {
	text := strings.Join([]string{
		"*** Begin Patch",
		"*** Update File: old.txt",
		"*** Move to: new.txt",
		"@@ func main",
		" context",
		"-removed",
		"+added",
		"*** End Patch",
	}, "\n")

	ops, err := parsePatch(text)
	if err != nil {
		t.Fatalf("parsePatch() error = %v", err)
	}
	if len(ops) != 1 || ops[0].kind != opUpdate {
		t.Fatalf("parsePatch() = %+v, want single update op", ops)
	}
	op := ops[0]
	if op.path != "old.txt" || op.movePath != "new.txt" {
		t.Errorf("op path/move = %q/%q, want old.txt/new.txt", op.path, op.movePath)
	}
	if len(op.hunks) != 1 || len(op.hunks[0].lines) != 3 {
		t.Fatalf("op.hunks = %+v, want one hunk with three lines", op.hunks)
	}
}

func TestApplyHunk_ExactContextMatch(t *testing.T) {
	h := hunk{lines: []hunkLine{
		{kind: lineContext, text: "keep"},
		{kind: lineRemove, text: "old"},
		{kind: lineAdd, text: "new"},
	}}
	out, err := applyHunk("before\nkeep\nold\nafter", h)
	if err != nil {
		t.Fatalf("applyHunk() error = %v", err)
	}
	if out != "before\nkeep\nnew\nafter" {
		t.Errorf("applyHunk() = %q, want %q", out, "before\nkeep\nnew\nafter")
	}
}

func TestApplyHunk_WhitespaceNormalizedFallback(t *testing.T) {
	h := hunk{lines: []hunkLine{
		{kind: lineContext, text: "keep"},
		{kind: lineRemove, text: "old  value"},
		{kind: lineAdd, text: "new"},
	}}
	out, err := applyHunk("before\nkeep\nold value\nafter", h)
	if err != nil {
		t.Fatalf("applyHunk() error = %v", err)
	}
	if out != "before\nkeep\nnew\nafter" {
		t.Errorf("applyHunk() = %q, want %q", out, "before\nkeep\nnew\nafter")
	}
}

func TestApplyHunk_NoMatchFails(t *testing.T) {
	h := hunk{lines: []hunkLine{{kind: lineRemove, text: "absent"}}}
	if _, err := applyHunk("one\ntwo\nthree", h); err == nil {
		t.Error("applyHunk() with no matching context expected an error, got nil")
	}
}

func TestApplyPatch_AddUpdateDelete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "keep.txt", "alpha\nbeta\ngamma")
	_ = e.WriteFile(ctx, "remove.txt", "bye")

	tool, err := NewApplyPatch()
	if err != nil {
		t.Fatalf("NewApplyPatch() error = %v", err)
	}

	patch := strings.Join([]string{
		"*** Begin Patch",
		"*** Add File: created.txt",
		"+hello",
		"*** Delete File: remove.txt",
		"*** Update File: keep.txt",
		"@@",
		" alpha",
		"-beta",
		"+BETA",
		" gamma",
		"*** End Patch",
	}, "\n")

	out, err := tool.Execute(ctx, e, map[string]any{"patch": patch})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "added created.txt") || !strings.Contains(out, "deleted remove.txt") ||
		!strings.Contains(out, "updated keep.txt") {
		t.Errorf("Execute() summary = %q, missing expected entries", out)
	}

	if !e.FileExists(ctx, "created.txt") {
		t.Error("created.txt was not written")
	}
	if e.FileExists(ctx, "remove.txt") {
		t.Error("remove.txt was not deleted")
	}
	content, _ := e.ReadFile(ctx, "keep.txt", 0, 0)
	if content != "alpha\nBETA\ngamma" {
		t.Errorf("keep.txt content = %q, want %q", content, "alpha\nBETA\ngamma")
	}
}

func TestGlob_FindsMatchingFiles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.go", "x")
	_ = e.WriteFile(ctx, "b.go", "x")
	_ = e.WriteFile(ctx, "c.txt", "x")

	tool, err := NewGlob()
	if err != nil {
		t.Fatalf("NewGlob() error = %v", err)
	}
	out, err := tool.Execute(ctx, e, map[string]any{"pattern": "*.go"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "a.go") || !strings.Contains(out, "b.go") || strings.Contains(out, "c.txt") {
		t.Errorf("Execute() = %q, want only the .go files", out)
	}
}

func TestGrep_FindsMatchingLines(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_ = e.WriteFile(ctx, "a.txt", "hello world\nfoo bar\n")

	tool, err := NewGrep()
	if err != nil {
		t.Fatalf("NewGrep() error = %v", err)
	}
	out, err := tool.Execute(ctx, e, map[string]any{"pattern": "world"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "hello world") {
		t.Errorf("Execute() = %q, want a match for \"world\"", out)
	}
}

func TestRegisterCore_WithoutApplyPatch(t *testing.T) {
	reg := tool.NewRegistry()
	if err := RegisterCore(reg, false); err != nil {
		t.Fatalf("RegisterCore() error = %v", err)
	}
	for _, name := range []string{"read_file", "write_file", "edit_file", "shell", "grep", "glob"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("RegisterCore() did not register %q", name)
		}
	}
	if _, ok := reg.Lookup("apply_patch"); ok {
		t.Error("RegisterCore(includeApplyPatch=false) unexpectedly registered apply_patch")
	}
}

func TestRegisterCore_WithApplyPatch(t *testing.T) {
	reg := tool.NewRegistry()
	if err := RegisterCore(reg, true); err != nil {
		t.Fatalf("RegisterCore() error = %v", err)
	}
	if _, ok := reg.Lookup("apply_patch"); !ok {
		t.Error("RegisterCore(includeApplyPatch=true) did not register apply_patch")
	}
}

func TestShell_ReturnsExitCodeAndOutput(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tool, err := NewShell()
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	out, err := tool.Execute(ctx, e, map[string]any{"command": "echo -n ready"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "exit_code=0") || !strings.Contains(out, "ready") {
		t.Errorf("Execute() = %q, want exit_code=0 and stdout \"ready\"", out)
	}
}
