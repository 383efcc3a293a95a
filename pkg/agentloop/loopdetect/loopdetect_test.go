package loopdetect

import "testing"

func TestCanonicalize_KeyOrderIndependent(t *testing.T) {
	a := Canonicalize("grep", map[string]any{"pattern": "foo", "path": "."})
	b := Canonicalize("grep", map[string]any{"path": ".", "pattern": "foo"})
	if a != b {
		t.Errorf("Canonicalize() not key-order independent: %+v != %+v", a, b)
	}
}

func TestCanonicalize_DifferentArgsDiffer(t *testing.T) {
	a := Canonicalize("grep", map[string]any{"pattern": "foo"})
	b := Canonicalize("grep", map[string]any{"pattern": "bar"})
	if a == b {
		t.Errorf("Canonicalize() collided for different arguments: %+v", a)
	}
}

func TestDetector_BelowWindowNeverFires(t *testing.T) {
	d := New(4)
	sig := Canonicalize("read_file", map[string]any{"path": "a.go"})
	for i := 0; i < 3; i++ {
		d.Record(sig)
	}
	if msg := d.Check(); msg != "" {
		t.Errorf("Check() = %q, want empty below window size", msg)
	}
}

func TestDetector_IdenticalRepeatFires(t *testing.T) {
	d := New(4)
	sig := Canonicalize("read_file", map[string]any{"path": "a.go"})
	for i := 0; i < 4; i++ {
		d.Record(sig)
	}
	if msg := d.Check(); msg == "" {
		t.Error("Check() = \"\", want a repetition warning for 4 identical calls")
	}
}

func TestDetector_CyclicRepeatFires(t *testing.T) {
	d := New(4)
	sigA := Canonicalize("read_file", map[string]any{"path": "a.go"})
	sigB := Canonicalize("write_file", map[string]any{"path": "a.go"})
	d.Record(sigA)
	d.Record(sigB)
	d.Record(sigA)
	d.Record(sigB)
	if msg := d.Check(); msg == "" {
		t.Error("Check() = \"\", want a cycle warning for an A,B,A,B pattern")
	}
}

func TestDetector_VariedCallsDoNotFire(t *testing.T) {
	d := New(4)
	d.Record(Canonicalize("read_file", map[string]any{"path": "a.go"}))
	d.Record(Canonicalize("grep", map[string]any{"pattern": "foo"}))
	d.Record(Canonicalize("write_file", map[string]any{"path": "b.go"}))
	d.Record(Canonicalize("shell", map[string]any{"cmd": "go build"}))
	if msg := d.Check(); msg != "" {
		t.Errorf("Check() = %q, want empty for four distinct calls", msg)
	}
}

func TestDetector_DefaultWindowOnZero(t *testing.T) {
	d := New(0)
	if d.window != DefaultWindow {
		t.Errorf("New(0).window = %d, want %d", d.window, DefaultWindow)
	}
}
