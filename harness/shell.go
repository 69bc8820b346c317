package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// stderrTail bounds how much hidden stderr is kept for error messages.
const stderrTail = 4 << 10

// Status is the outcome of a single shell execution.
type Status struct {
	ExitCode int
	// Stderr holds the tail of the standard error stream when output is
	// hidden.
	Stderr string
}

// Executor runs shell expressions.
type Executor interface {
	Execute(ctx context.Context, expr string) (Status, error)
}

// Validator is implemented by executors that can check expressions before
// anything runs.
type Validator interface {
	Validate(exprs ...string) error
}

// Shell executes expressions with an embedded POSIX shell interpreter.
// External programs are started as child processes of benchplot.
type Shell struct {
	Dir        string
	Env        []string
	ShowOutput bool

	mu    sync.Mutex
	progs map[string]*syntax.File
}

// NewShell returns a Shell running in dir with the current environment.
// An empty dir means the working directory.
func NewShell(dir string, showOutput bool) *Shell {
	return &Shell{
		Dir:        dir,
		Env:        os.Environ(),
		ShowOutput: showOutput,
		progs:      make(map[string]*syntax.File),
	}
}

// Validate parses every expression and reports the first syntax error.
func (s *Shell) Validate(exprs ...string) error {
	for _, expr := range exprs {
		if expr == "" {
			continue
		}

		if _, err := s.parse(expr); err != nil {
			return err
		}
	}

	return nil
}

// Execute runs expr to completion. A non-zero exit is reported through
// Status, not as an error.
func (s *Shell) Execute(ctx context.Context, expr string) (Status, error) {
	prog, err := s.parse(expr)
	if err != nil {
		return Status{}, err
	}

	var (
		stdout io.Writer = io.Discard
		stderr io.Writer
		tail   = &tailBuffer{max: stderrTail}
	)

	if s.ShowOutput {
		stdout = os.Stdout
		stderr = os.Stderr
	} else {
		stderr = tail
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(s.Env...)),
		interp.StdIO(nil, stdout, stderr),
	}

	if s.Dir != "" {
		opts = append(opts, interp.Dir(s.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return Status{}, fmt.Errorf("create interpreter: %w", err)
	}

	err = runner.Run(ctx, prog)
	status := Status{Stderr: strings.TrimSpace(tail.String())}

	if err != nil {
		if exitStatus, ok := interp.IsExitStatus(err); ok {
			status.ExitCode = int(exitStatus)

			return status, nil
		}

		return status, fmt.Errorf("run %q: %w", expr, err)
	}

	return status, nil
}

func (s *Shell) parse(expr string) (*syntax.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prog, ok := s.progs[expr]; ok {
		return prog, nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(expr), "command")
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}

	if s.progs == nil {
		s.progs = make(map[string]*syntax.File)
	}

	s.progs[expr] = prog

	return prog, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if len(p) > t.max {
		p = p[len(p)-t.max:]
	}

	if over := t.buf.Len() + len(p) - t.max; over > 0 {
		t.buf.Next(over)
	}

	t.buf.Write(p)

	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.String()
}
