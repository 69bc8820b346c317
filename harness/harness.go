package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Measurement is the cost of one execution of an expression.
type Measurement struct {
	Wall     time.Duration
	User     time.Duration
	System   time.Duration
	ExitCode int
	Stderr   string
}

// Runner times single executions of shell expressions.
type Runner struct {
	Executor Executor
	Logger   *slog.Logger

	now   func() time.Time
	usage func() (user, system time.Duration)
}

// NewRunner creates a Runner that executes through exec.
func NewRunner(exec Executor, logger *slog.Logger) *Runner {
	return &Runner{
		Executor: exec,
		Logger:   logger,
		now:      time.Now,
		usage:    childUsage,
	}
}

// Run executes expr once and measures wall clock and child CPU time.
func (r *Runner) Run(ctx context.Context, expr string) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}

	userStart, sysStart := r.usage()
	wallStart := r.now()

	status, err := r.Executor.Execute(ctx, expr)
	if err != nil {
		return Measurement{}, fmt.Errorf("execute %q: %w", expr, err)
	}

	wall := r.now().Sub(wallStart)
	userEnd, sysEnd := r.usage()

	m := Measurement{
		Wall:     wall,
		User:     max(userEnd-userStart, 0),
		System:   max(sysEnd-sysStart, 0),
		ExitCode: status.ExitCode,
		Stderr:   status.Stderr,
	}

	r.Logger.Debug("execution finished",
		slog.String("expression", expr),
		slog.Duration("wall_time", m.Wall),
		slog.Int("exit_code", m.ExitCode),
	)

	return m, nil
}
