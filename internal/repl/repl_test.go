package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/falcon-lang/falcon/internal/backend"
	"github.com/falcon-lang/falcon/internal/evaluator"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	builtins := evaluator.NewBuiltins(&out, t.TempDir())
	b := backend.NewTreeWalk(builtins)
	return New(b, &out, ""), &out
}

func TestSessionIDAssigned(t *testing.T) {
	s, _ := newTestSession(t)
	if s.ID == "" {
		t.Error("session has no id")
	}
	other, _ := newTestSession(t)
	if s.ID == other.ID {
		t.Error("two sessions share an id")
	}
}

func TestExpressionEcho(t *testing.T) {
	s, out := newTestSession(t)
	if done := s.HandleLine("1 + 2"); done {
		t.Fatal("expression ended the session")
	}
	if got := out.String(); got != "3\n" {
		t.Errorf("echo = %q, want %q", got, "3\n")
	}
}

func TestStatePersistsAcrossLines(t *testing.T) {
	s, out := newTestSession(t)
	s.HandleLine("var x := 10")
	s.HandleLine("function double(n) { return n * 2 }")
	out.Reset()
	s.HandleLine("show(double(x))")
	if got := out.String(); got != "20\n" {
		t.Errorf("output = %q, want %q", got, "20\n")
	}
}

func TestExitAndQuit(t *testing.T) {
	s, _ := newTestSession(t)
	if !s.HandleLine("exit") {
		t.Error("exit did not end the session")
	}
	if !s.HandleLine("  quit  ") {
		t.Error("quit did not end the session")
	}
	if s.HandleLine("") {
		t.Error("blank line ended the session")
	}
}

func TestErrorsDoNotKillSession(t *testing.T) {
	s, out := newTestSession(t)
	if done := s.HandleLine("show(missing)"); done {
		t.Fatal("runtime error ended the session")
	}
	if !strings.Contains(out.String(), "missing") {
		t.Errorf("error not reported: %q", out.String())
	}

	out.Reset()
	s.HandleLine("show(1)")
	if got := out.String(); got != "1\n" {
		t.Errorf("session broken after error: %q", got)
	}
}

func TestLoadDirective(t *testing.T) {
	s, out := newTestSession(t)
	path := filepath.Join(t.TempDir(), "script.fn")
	if err := os.WriteFile(path, []byte("var loaded := 41\nshow(loaded + 1)\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	s.HandleLine(".load " + path)
	if got := out.String(); got != "42\n" {
		t.Errorf("load output = %q, want %q", got, "42\n")
	}

	// definitions from the loaded file stay visible
	out.Reset()
	s.HandleLine("show(loaded)")
	if got := out.String(); got != "41\n" {
		t.Errorf("loaded global lost: %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, out := newTestSession(t)
	if done := s.HandleLine(".load /nonexistent/path.fn"); done {
		t.Fatal("load failure ended the session")
	}
	if !strings.Contains(out.String(), "cannot load") {
		t.Errorf("no load error reported: %q", out.String())
	}
}
