package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newLocalEnv(t *testing.T) (*LocalExecutionEnvironment, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLocalExecutionEnvironment(dir, InheritCore), dir
}

func TestLocalExecutionEnvironment_WriteReadFile(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	if err := e.WriteFile(ctx, "a.txt", "hello\nworld\n"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	content, err := e.ReadFile(ctx, "a.txt", 0, 0)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if content != "hello\nworld\n" {
		t.Errorf("ReadFile() = %q, want %q", content, "hello\nworld\n")
	}
}

func TestLocalExecutionEnvironment_ReadFileWithWindow(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	if err := e.WriteFile(ctx, "lines.txt", "one\ntwo\nthree\nfour\n"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	content, err := e.ReadFile(ctx, "lines.txt", 2, 2)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if content != "two\nthree\n" {
		t.Errorf("ReadFile(offset=2,limit=2) = %q, want %q", content, "two\nthree\n")
	}
}

func TestLocalExecutionEnvironment_WriteFileCreatesParentDirs(t *testing.T) {
	e, dir := newLocalEnv(t)
	ctx := context.Background()

	if err := e.WriteFile(ctx, "nested/dir/b.txt", "content"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "dir", "b.txt")); err != nil {
		t.Errorf("WriteFile() did not create parent directories: %v", err)
	}
}

func TestLocalExecutionEnvironment_DeleteFile(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	_ = e.WriteFile(ctx, "c.txt", "x")
	if !e.FileExists(ctx, "c.txt") {
		t.Fatal("FileExists() = false after WriteFile")
	}
	if err := e.DeleteFile(ctx, "c.txt"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if e.FileExists(ctx, "c.txt") {
		t.Error("FileExists() = true after DeleteFile")
	}
}

func TestLocalExecutionEnvironment_ListDirectory(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	_ = e.WriteFile(ctx, "x.txt", "1")
	_ = e.WriteFile(ctx, "y.txt", "22")
	_ = os.Mkdir(filepath.Join(e.WorkingDirectory(), "subdir"), 0o755)

	entries, err := e.ListDirectory(ctx, ".")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ListDirectory() returned %d entries, want 3", len(entries))
	}
	for _, entry := range entries {
		switch entry.Name {
		case "x.txt":
			if entry.IsDir || entry.Size != 1 {
				t.Errorf("entry x.txt = %+v, want file of size 1", entry)
			}
		case "y.txt":
			if entry.IsDir || entry.Size != 2 {
				t.Errorf("entry y.txt = %+v, want file of size 2", entry)
			}
		case "subdir":
			if !entry.IsDir {
				t.Errorf("entry subdir = %+v, want directory", entry)
			}
		default:
			t.Errorf("unexpected entry %+v", entry)
		}
	}
}

func TestLocalExecutionEnvironment_ExecCommand(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	res, err := e.ExecCommand(ctx, "echo -n hello", 5000, "", nil)
	if err != nil {
		t.Fatalf("ExecCommand() error = %v", err)
	}
	if res.Stdout != "hello" {
		t.Errorf("ExecCommand() stdout = %q, want %q", res.Stdout, "hello")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExecCommand() exit code = %d, want 0", res.ExitCode)
	}
	if res.TimedOut {
		t.Error("ExecCommand() reported TimedOut for a fast command")
	}
}

func TestLocalExecutionEnvironment_ExecCommandTimeout(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	res, err := e.ExecCommand(ctx, "sleep 5", 100, "", nil)
	if err != nil {
		t.Fatalf("ExecCommand() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("ExecCommand() did not report TimedOut for a command exceeding its timeout")
	}
}

func TestLocalExecutionEnvironment_Glob(t *testing.T) {
	e, _ := newLocalEnv(t)
	ctx := context.Background()

	_ = e.WriteFile(ctx, "one.go", "package a")
	_ = e.WriteFile(ctx, "two.go", "package a")
	_ = e.WriteFile(ctx, "three.txt", "not go")

	matches, err := e.Glob(ctx, "*.go", ".")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Glob() returned %d matches, want 2: %v", len(matches), matches)
	}
}

func TestLocalExecutionEnvironment_PlatformAndWorkingDirectory(t *testing.T) {
	e, dir := newLocalEnv(t)
	if e.WorkingDirectory() != dir {
		t.Errorf("WorkingDirectory() = %q, want %q", e.WorkingDirectory(), dir)
	}
	if e.Platform() == "" {
		t.Error("Platform() returned empty string")
	}
}
