// Package plan expands a set of benchmarked commands and their hooks into
// the ordered list of shell steps the scheduler executes. The expanded plan
// can be written as JSONL for dry runs.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNoCommands is returned when a plan is built without commands.
	ErrNoCommands = errors.New("no commands to benchmark")
	// ErrPrepareCount is returned when the number of prepare commands is
	// neither one nor equal to the number of benchmarked commands.
	ErrPrepareCount = errors.New("prepare commands must be given once or once per command")
)

// Step kinds, in the order they can appear for a single command.
const (
	KindPrepare = "prepare"
	KindWarmup  = "warmup"
	KindRun     = "run"
	KindCleanup = "cleanup"
)

// Command is a shell expression under benchmark with an optional display
// name.
type Command struct {
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression"`
}

// DisplayName returns the name used in reports and chart labels.
func (c Command) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}

	return c.Expression
}

// Step is a single shell invocation of the plan.
type Step struct {
	Kind       string `json:"kind"`
	Command    string `json:"command"`
	Expression string `json:"expression"`
	Iteration  int    `json:"iteration,omitempty"`
}

// Summary counts the steps of an encoded plan.
type Summary struct {
	TotalSteps int
	Commands   int
	Warmups    int
	Runs       int
	Prepares   int
	Cleanups   int
}

// Config controls how commands are expanded into steps.
type Config struct {
	// Warmup is the number of untimed runs before measuring.
	Warmup uint
	// Runs is the number of timed runs listed per command.
	Runs int
	// Prepare holds either one expression for every command or one per
	// command, in command order.
	Prepare []string
	// Cleanup runs once after the last run of each command.
	Cleanup string
}

// Plan is a validated benchmark plan.
type Plan struct {
	commands []Command
	prepare  []string
	cfg      Config
}

// New validates commands against cfg and returns the resulting Plan.
func New(commands []Command, cfg Config) (*Plan, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}

	for i, c := range commands {
		if c.Expression == "" {
			return nil, fmt.Errorf("command %d: empty expression", i+1)
		}
	}

	var prepare []string

	switch len(cfg.Prepare) {
	case 0:
	case 1:
		prepare = make([]string, len(commands))
		for i := range prepare {
			prepare[i] = cfg.Prepare[0]
		}
	case len(commands):
		prepare = append([]string(nil), cfg.Prepare...)
	default:
		return nil, fmt.Errorf("%w: got %d for %d commands",
			ErrPrepareCount, len(cfg.Prepare), len(commands))
	}

	if cfg.Runs < 0 {
		return nil, fmt.Errorf("runs must not be negative, got %d", cfg.Runs)
	}

	return &Plan{
		commands: append([]Command(nil), commands...),
		prepare:  prepare,
		cfg:      cfg,
	}, nil
}

// Commands returns the benchmarked commands in order.
func (p *Plan) Commands() []Command {
	return p.commands
}

// Prepare returns the prepare expression for the i-th command, or "" when
// none is configured.
func (p *Plan) Prepare(i int) string {
	if p.prepare == nil {
		return ""
	}

	return p.prepare[i]
}

// Cleanup returns the cleanup expression, or "" when none is configured.
func (p *Plan) Cleanup() string {
	return p.cfg.Cleanup
}

// Warmup returns the number of untimed runs per command.
func (p *Plan) Warmup() uint {
	return p.cfg.Warmup
}

// Steps expands the i-th command into its ordered steps.
func (p *Plan) Steps(i int) []Step {
	c := p.commands[i]
	name := c.DisplayName()
	prepare := p.Prepare(i)

	var steps []Step

	emit := func(kind string, iter int) {
		if prepare != "" {
			steps = append(steps, Step{Kind: KindPrepare, Command: name, Expression: prepare, Iteration: iter})
		}

		steps = append(steps, Step{Kind: kind, Command: name, Expression: c.Expression, Iteration: iter})
	}

	for n := 1; n <= int(p.cfg.Warmup); n++ {
		emit(KindWarmup, n)
	}

	for n := 1; n <= p.cfg.Runs; n++ {
		emit(KindRun, n)
	}

	if p.cfg.Cleanup != "" {
		steps = append(steps, Step{Kind: KindCleanup, Command: name, Expression: p.cfg.Cleanup})
	}

	return steps
}

// Encode writes every step of the plan to w as JSONL and returns a Summary.
func (p *Plan) Encode(w io.Writer) (Summary, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	var summary Summary

	for i := range p.commands {
		for _, s := range p.Steps(i) {
			if err := enc.Encode(s); err != nil {
				return summary, fmt.Errorf("encode %s step: %w", s.Kind, err)
			}

			summary.TotalSteps++

			switch s.Kind {
			case KindPrepare:
				summary.Prepares++
			case KindWarmup:
				summary.Warmups++
			case KindRun:
				summary.Runs++
			case KindCleanup:
				summary.Cleanups++
			}
		}

		summary.Commands++
	}

	return summary, nil
}
