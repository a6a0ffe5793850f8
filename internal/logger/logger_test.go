package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNopAndOrNop(t *testing.T) {
	l := Nop()
	if l == nil || l.SugaredLogger == nil {
		t.Fatalf("nop logger unusable")
	}
	l.Info("discarded", "k", 1)

	for _, in := range []*Logger{nil, {}} {
		got := OrNop(in)
		if got == nil || got.SugaredLogger == nil {
			t.Fatalf("OrNop(%v) unusable", in)
		}
		got.Warn("discarded")
	}

	if got := OrNop(l); got != l {
		t.Fatalf("OrNop must keep a usable logger")
	}
	if w := l.With("component", "test"); w == nil || w.SugaredLogger == nil {
		t.Fatalf("With returned an unusable logger")
	}
}

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		mode      string
		wantDebug bool
	}{
		{"prod", false},
		{"PRODUCTION", false},
		{"dev", true},
		{"", true},
	}
	for _, c := range cases {
		l, err := New(c.mode)
		if err != nil {
			t.Fatalf("New(%q): %v", c.mode, err)
		}
		core := l.SugaredLogger.Desugar().Core()
		if got := core.Enabled(zapcore.DebugLevel); got != c.wantDebug {
			t.Fatalf("New(%q): debug enabled=%v", c.mode, got)
		}
		if !core.Enabled(zapcore.InfoLevel) {
			t.Fatalf("New(%q): info disabled", c.mode)
		}
	}
}
