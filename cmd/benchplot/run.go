package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiihann/benchplot/config"
	"github.com/weiihann/benchplot/harness"
	"github.com/weiihann/benchplot/pipeline"
	"github.com/weiihann/benchplot/plan"
	"github.com/weiihann/benchplot/report"
)

func newRunCmd(logger *slog.Logger, global *globalFlags) *cobra.Command {
	var (
		prepare    []string
		cleanup    string
		names      []string
		outputJSON bool
		dryRun     bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "run <command> <command>...",
		Short: "Benchmark commands and plot their mean run times",
		Long: `Run each command through the shell until enough samples are collected,
print a comparison table and write the bar chart to the output path
(default: <project root>/assets/benchmarks-plot.png).`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, logger, global)
			if err != nil {
				return err
			}

			if noProgress {
				cfg.Progress = false
			}

			return runBenchmark(cmd.Context(), logger, cfg, runConfig{
				commands:   args,
				names:      names,
				prepare:    prepare,
				cleanup:    cleanup,
				outputJSON: outputJSON,
				dryRun:     dryRun,
				stdout:     cmd.OutOrStdout(),
			})
		},
	}

	def := config.Default()

	flags := cmd.Flags()
	flags.UintP("warmup", "w", def.Warmup,
		"Number of untimed runs before measuring each command")
	flags.StringArrayVarP(&prepare, "prepare", "p", nil,
		"Command run before every run; give once, or once per command")
	flags.StringVarP(&cleanup, "cleanup", "c", "",
		"Command run once after the last run of each command")
	flags.IntP("runs", "r", def.Runs,
		"Exact number of timed runs (overrides --min-runs, --max-runs)")
	flags.Int("min-runs", def.MinRuns,
		"Minimum number of timed runs")
	flags.Int("max-runs", def.MaxRuns,
		"Maximum number of timed runs (0 = unlimited)")
	flags.Duration("min-time", def.MinTime,
		"Minimum total benchmarking time per command")
	flags.StringArrayVarP(&names, "command-name", "n", nil,
		"Display name for the command at the same position")
	flags.StringP("output", "o", def.Output,
		"PNG output path")
	flags.Int("width", def.Width,
		"Image width in pixels")
	flags.String("title", def.Title,
		"Chart title")
	flags.BoolP("ignore-failure", "i", def.IgnoreFailure,
		"Keep benchmarking commands that exit non-zero")
	flags.Bool("show-output", def.ShowOutput,
		"Show the output of benchmarked commands")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")
	flags.BoolVar(&dryRun, "dry-run", false,
		"Print the planned steps as JSONL without running anything")
	flags.BoolVar(&noProgress, "no-progress", false,
		"Disable the progress bar")

	return cmd
}

type runConfig struct {
	commands   []string
	names      []string
	prepare    []string
	cleanup    string
	outputJSON bool
	dryRun     bool
	stdout     io.Writer
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	rc runConfig,
) error {
	cmds, err := buildCommands(rc.commands, rc.names)
	if err != nil {
		return err
	}

	opts := cfg.HarnessOptions(rc.prepare, rc.cleanup)

	if rc.dryRun {
		return printPlan(ctx, logger, rc.stdout, cmds, opts)
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	output := cfg.OutputPath(wd)

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int("commands", len(cmds)),
		slog.Uint64("warmup", uint64(opts.WarmupCount)),
		slog.Int("runs", opts.Runs),
		slog.Int("min_runs", opts.MinRuns),
		slog.Duration("min_time", opts.MinBenchmarkingTime),
		slog.String("output", output),
	)

	var progress io.Writer
	if cfg.Progress && !cfg.ShowOutput {
		progress = os.Stderr
	}

	orch := &pipeline.Orchestrator{
		Scheduler: harness.NewScheduler(harness.NewShell("", cfg.ShowOutput), logger, progress),
		Renderer: &pipeline.Renderer{
			Fonts:  newResolver(cfg, logger),
			Width:  cfg.Width,
			Title:  cfg.Title,
			Logger: logger,
		},
		Output: output,
		Logger: logger,
	}

	outcome, runErr := orch.Run(ctx, cmds, opts)

	// Results are reported even when the chart could not be written.
	if outcome != nil {
		if err := writeReport(rc.stdout, outcome.Results, rc.outputJSON); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("run benchmark: %w", runErr)
	}

	logger.InfoContext(ctx, "benchmark complete", slog.String("chart", outcome.Path))

	return nil
}

// buildCommands pairs expressions with the optional display names given in
// the same order.
func buildCommands(exprs, names []string) ([]plan.Command, error) {
	if len(names) > len(exprs) {
		return nil, fmt.Errorf("got %d command names for %d commands", len(names), len(exprs))
	}

	cmds := make([]plan.Command, len(exprs))
	for i, expr := range exprs {
		cmds[i] = plan.Command{Expression: expr}
		if i < len(names) {
			cmds[i].Name = names[i]
		}
	}

	return cmds, nil
}

func printPlan(
	ctx context.Context,
	logger *slog.Logger,
	w io.Writer,
	cmds []plan.Command,
	opts harness.Options,
) error {
	runs := opts.Runs
	if runs == 0 {
		runs = max(opts.MinRuns, 1)
	}

	p, err := plan.New(cmds, plan.Config{
		Warmup:  opts.WarmupCount,
		Runs:    runs,
		Prepare: opts.PreparationCommand,
		Cleanup: opts.CleanupCommand,
	})
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	summary, err := p.Encode(w)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	logger.InfoContext(ctx, "plan written",
		slog.Int("steps", summary.TotalSteps),
		slog.Int("commands", summary.Commands),
		slog.Int("runs", summary.Runs),
		slog.Int("warmups", summary.Warmups),
	)

	return nil
}

func writeReport(w io.Writer, results []harness.Result, asJSON bool) error {
	if asJSON {
		if err := report.GenerateJSON(w, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(w, results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}
