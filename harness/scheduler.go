package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/weiihann/benchplot/plan"
)

var (
	// ErrCommandFailed is returned when a benchmarked command exits with a
	// non-zero status, or when a prepare or cleanup command fails.
	ErrCommandFailed = errors.New("command failed")
	// ErrInvalidOptions is returned for inconsistent run counts.
	ErrInvalidOptions = errors.New("invalid options")
)

const (
	DefaultMinRuns             = 10
	DefaultMinBenchmarkingTime = 3 * time.Second
)

// Options controls how each command is benchmarked.
type Options struct {
	WarmupCount        uint
	PreparationCommand []string
	CleanupCommand     string
	// Runs, when positive, is the exact number of timed runs and overrides
	// MinRuns, MaxRuns and MinBenchmarkingTime.
	Runs    int
	MinRuns int
	// MaxRuns caps the adaptive run count. Zero means no cap.
	MaxRuns             int
	MinBenchmarkingTime time.Duration
	IgnoreFailure       bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinRuns:             DefaultMinRuns,
		MinBenchmarkingTime: DefaultMinBenchmarkingTime,
	}
}

// Validate checks the run counts for consistency.
func (o Options) Validate() error {
	switch {
	case o.Runs < 0:
		return fmt.Errorf("%w: runs must not be negative, got %d", ErrInvalidOptions, o.Runs)
	case o.MinRuns < 0:
		return fmt.Errorf("%w: min runs must not be negative, got %d", ErrInvalidOptions, o.MinRuns)
	case o.MaxRuns < 0:
		return fmt.Errorf("%w: max runs must not be negative, got %d", ErrInvalidOptions, o.MaxRuns)
	case o.MaxRuns > 0 && o.MinRuns > o.MaxRuns:
		return fmt.Errorf("%w: min runs %d exceeds max runs %d", ErrInvalidOptions, o.MinRuns, o.MaxRuns)
	case o.MinBenchmarkingTime < 0:
		return fmt.Errorf("%w: negative minimum benchmarking time", ErrInvalidOptions)
	}

	return nil
}

// runCount returns the total number of timed runs given the duration of
// the first one.
func (o Options) runCount(first time.Duration) int {
	if o.Runs > 0 {
		return o.Runs
	}

	count := max(o.MinRuns, 1)

	if first > 0 && o.MinBenchmarkingTime > 0 {
		est := math.Ceil(float64(o.MinBenchmarkingTime) / float64(first))
		if est > float64(count) {
			count = int(min(est, math.MaxInt32))
		}
	}

	if o.MaxRuns > 0 && count > o.MaxRuns {
		count = o.MaxRuns
	}

	return count
}

// Scheduler benchmarks commands one after another.
type Scheduler struct {
	Runner *Runner
	Logger *slog.Logger
	// Progress receives a progress bar per command when non-nil.
	Progress io.Writer
}

// NewScheduler creates a Scheduler executing through exec.
func NewScheduler(exec Executor, logger *slog.Logger, progress io.Writer) *Scheduler {
	return &Scheduler{
		Runner:   NewRunner(exec, logger),
		Logger:   logger,
		Progress: progress,
	}
}

// Run benchmarks every command in order and returns one Result per command.
// It stops at the first failure.
func (s *Scheduler) Run(ctx context.Context, cmds []plan.Command, opts Options) ([]Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p, err := plan.New(cmds, plan.Config{
		Warmup:  opts.WarmupCount,
		Prepare: opts.PreparationCommand,
		Cleanup: opts.CleanupCommand,
	})
	if err != nil {
		return nil, err
	}

	if v, ok := s.Runner.Executor.(Validator); ok {
		exprs := append([]string{opts.CleanupCommand}, opts.PreparationCommand...)
		for _, c := range cmds {
			exprs = append(exprs, c.Expression)
		}

		if err := v.Validate(exprs...); err != nil {
			return nil, fmt.Errorf("validate commands: %w", err)
		}
	}

	results := make([]Result, 0, len(cmds))

	for i := range p.Commands() {
		res, err := s.benchmark(ctx, p, i, opts)
		if err != nil {
			return nil, err
		}

		results = append(results, res)
	}

	return results, nil
}

func (s *Scheduler) benchmark(ctx context.Context, p *plan.Plan, i int, opts Options) (Result, error) {
	cmd := p.Commands()[i]
	name := cmd.DisplayName()
	logger := s.Logger.With(slog.String("command", name))

	logger.Info("benchmarking", slog.Uint64("warmup", uint64(p.Warmup())))

	for n := 1; n <= int(p.Warmup()); n++ {
		if err := s.prepare(ctx, p, i); err != nil {
			return Result{}, err
		}

		m, err := s.Runner.Run(ctx, cmd.Expression)
		if err != nil {
			return Result{}, fmt.Errorf("warmup %s: %w", name, err)
		}

		if err := checkExit(name, "warmup", m, opts.IgnoreFailure); err != nil {
			return Result{}, err
		}
	}

	bar := s.newBar(name, opts)

	fail := func(err error) (Result, error) {
		if bar != nil {
			_ = bar.Clear()
		}

		return Result{}, err
	}

	var ms []Measurement

	for total := 1; len(ms) < total; {
		if err := s.prepare(ctx, p, i); err != nil {
			return fail(err)
		}

		m, err := s.Runner.Run(ctx, cmd.Expression)
		if err != nil {
			return fail(fmt.Errorf("benchmark %s: %w", name, err))
		}

		if err := checkExit(name, "run", m, opts.IgnoreFailure); err != nil {
			return fail(err)
		}

		if len(ms) == 0 {
			total = opts.runCount(m.Wall)
			if bar != nil {
				bar.ChangeMax(total)
			}
		}

		ms = append(ms, m)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if cleanup := p.Cleanup(); cleanup != "" {
		if err := s.hook(ctx, name, "cleanup", cleanup); err != nil {
			return Result{}, err
		}
	}

	res := summarize(name, cmd.Expression, ms)

	logger.Info("benchmark finished",
		slog.Int("runs", res.Runs()),
		slog.Duration("mean", seconds(res.Mean)),
		slog.Duration("stddev", seconds(res.Stddev)),
	)

	return res, nil
}

func (s *Scheduler) prepare(ctx context.Context, p *plan.Plan, i int) error {
	expr := p.Prepare(i)
	if expr == "" {
		return nil
	}

	return s.hook(ctx, p.Commands()[i].DisplayName(), "prepare", expr)
}

// hook runs a prepare or cleanup expression. Any non-zero exit fails.
func (s *Scheduler) hook(ctx context.Context, name, kind, expr string) error {
	m, err := s.Runner.Run(ctx, expr)
	if err != nil {
		return fmt.Errorf("%s for %s: %w", kind, name, err)
	}

	return checkExit(name, kind, m, false)
}

func (s *Scheduler) newBar(name string, opts Options) *progressbar.ProgressBar {
	if s.Progress == nil {
		return nil
	}

	return progressbar.NewOptions(
		max(opts.Runs, 1),
		progressbar.OptionSetWriter(s.Progress),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowCount(),
	)
}

func checkExit(name, kind string, m Measurement, ignore bool) error {
	if m.ExitCode == 0 || (ignore && (kind == "run" || kind == "warmup")) {
		return nil
	}

	if m.Stderr != "" {
		return fmt.Errorf("%w: %s of %s exited with code %d\nstderr: %s",
			ErrCommandFailed, kind, name, m.ExitCode, m.Stderr)
	}

	return fmt.Errorf("%w: %s of %s exited with code %d",
		ErrCommandFailed, kind, name, m.ExitCode)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
