package plan

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func commands(exprs ...string) []Command {
	out := make([]Command, len(exprs))
	for i, e := range exprs {
		out[i] = Command{Expression: e}
	}

	return out
}

func TestNewPrepareCount(t *testing.T) {
	tests := []struct {
		name    string
		cmds    int
		prepare []string
		wantErr error
	}{
		{name: "none", cmds: 2},
		{name: "shared", cmds: 3, prepare: []string{"sync"}},
		{name: "per command", cmds: 2, prepare: []string{"a", "b"}},
		{name: "too few", cmds: 3, prepare: []string{"a", "b"}, wantErr: ErrPrepareCount},
		{name: "too many", cmds: 2, prepare: []string{"a", "b", "c"}, wantErr: ErrPrepareCount},
		{name: "no commands", cmds: 0, wantErr: ErrNoCommands},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exprs := make([]string, tt.cmds)
			for i := range exprs {
				exprs[i] = "sleep 0"
			}

			_, err := New(commands(exprs...), Config{Prepare: tt.prepare})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRejectsEmptyExpression(t *testing.T) {
	if _, err := New(commands("true", ""), Config{}); err == nil {
		t.Error("expected error for empty expression")
	}
}

func TestPrepareAssignment(t *testing.T) {
	p, err := New(commands("a", "b", "c"), Config{Prepare: []string{"shared"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if got := p.Prepare(i); got != "shared" {
			t.Errorf("Prepare(%d) = %q, want %q", i, got, "shared")
		}
	}

	p, err = New(commands("a", "b"), Config{Prepare: []string{"pa", "pb"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if p.Prepare(0) != "pa" || p.Prepare(1) != "pb" {
		t.Errorf("per-command prepare = %q, %q", p.Prepare(0), p.Prepare(1))
	}

	p, err = New(commands("a"), Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := p.Prepare(0); got != "" {
		t.Errorf("Prepare without config = %q, want empty", got)
	}
}

func TestStepsOrder(t *testing.T) {
	p, err := New(
		[]Command{{Name: "fast", Expression: "echo a"}},
		Config{Warmup: 2, Runs: 2, Prepare: []string{"prep"}, Cleanup: "clean"},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := []Step{
		{Kind: KindPrepare, Command: "fast", Expression: "prep", Iteration: 1},
		{Kind: KindWarmup, Command: "fast", Expression: "echo a", Iteration: 1},
		{Kind: KindPrepare, Command: "fast", Expression: "prep", Iteration: 2},
		{Kind: KindWarmup, Command: "fast", Expression: "echo a", Iteration: 2},
		{Kind: KindPrepare, Command: "fast", Expression: "prep", Iteration: 1},
		{Kind: KindRun, Command: "fast", Expression: "echo a", Iteration: 1},
		{Kind: KindPrepare, Command: "fast", Expression: "prep", Iteration: 2},
		{Kind: KindRun, Command: "fast", Expression: "echo a", Iteration: 2},
		{Kind: KindCleanup, Command: "fast", Expression: "clean"},
	}

	if diff := cmp.Diff(want, p.Steps(0)); diff != "" {
		t.Errorf("Steps mismatch (-want +got):\n%s", diff)
	}
}

func TestDisplayName(t *testing.T) {
	if got := (Command{Expression: "sleep 1"}).DisplayName(); got != "sleep 1" {
		t.Errorf("DisplayName = %q, want %q", got, "sleep 1")
	}

	if got := (Command{Name: "nap", Expression: "sleep 1"}).DisplayName(); got != "nap" {
		t.Errorf("DisplayName = %q, want %q", got, "nap")
	}
}

func TestEncodeSummary(t *testing.T) {
	p, err := New(commands("a", "b"), Config{Warmup: 1, Runs: 3, Prepare: []string{"p"}, Cleanup: "c"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer

	sum, err := p.Encode(&buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := Summary{TotalSteps: 18, Commands: 2, Warmups: 2, Runs: 6, Prepares: 8, Cleanups: 2}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != want.TotalSteps {
		t.Errorf("lines = %d, want %d", len(lines), want.TotalSteps)
	}
}

func TestEncodeValidJSONL(t *testing.T) {
	p, err := New(commands(`echo "<a&b>"`, "true"), Config{Runs: 2, Cleanup: "rm -f x"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if _, err := p.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out := buf.String()

	scanner := bufio.NewScanner(strings.NewReader(out))
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		var s Step
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			t.Errorf("line %d: invalid JSON: %v", lineNum, err)

			continue
		}

		switch s.Kind {
		case KindRun:
			if s.Iteration == 0 {
				t.Errorf("line %d: run without iteration", lineNum)
			}
		case KindCleanup:
			if s.Expression != "rm -f x" {
				t.Errorf("line %d: cleanup = %q", lineNum, s.Expression)
			}
		default:
			t.Errorf("line %d: unexpected kind %q", lineNum, s.Kind)
		}
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}

	if !strings.Contains(out, `<a&b>`) {
		t.Error("expressions should not be HTML escaped")
	}
}
