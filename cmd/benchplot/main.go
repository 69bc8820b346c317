// Package main provides the CLI entry point for benchplot, a command line
// benchmarking tool that plots the results as a PNG bar chart.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/weiihann/benchplot/config"
	"github.com/weiihann/benchplot/fonts"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	root := newRootCmd(logger, level)
	err := root.ExecuteContext(ctx)

	stop()

	if err != nil {
		logger.Error("benchplot failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// configBindings maps config keys to the flags that override them.
var configBindings = map[string]string{
	"output":         "output",
	"width":          "width",
	"title":          "title",
	"warmup":         "warmup",
	"runs":           "runs",
	"min_runs":       "min-runs",
	"max_runs":       "max-runs",
	"min_time":       "min-time",
	"ignore_failure": "ignore-failure",
	"show_output":    "show-output",
	"fonts.dirs":     "font-dir",
}

type globalFlags struct {
	configFile    string
	verbose       bool
	noSystemFonts bool
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var global globalFlags

	root := &cobra.Command{
		Use:   "benchplot",
		Short: "Benchmark shell commands and plot the results",
		Long: `Benchplot runs two or more shell commands repeatedly, measures how long
each one takes and draws the mean run times as a horizontal bar chart, written
as a PNG image.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if global.verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&global.configFile, "config", "",
		"Config file (default: ./benchplot.{yaml,toml,json})")
	flags.BoolVarP(&global.verbose, "verbose", "v", false,
		"Enable debug logging")
	flags.BoolVar(&global.noSystemFonts, "no-system-fonts", false,
		"Use only the bundled fonts")
	flags.StringSlice("font-dir", nil,
		"Extra directories to scan for fonts")

	root.AddCommand(
		newRunCmd(logger, &global),
		newRenderCmd(logger, &global),
		newFontsCmd(logger, &global),
	)

	return root
}

// loadConfig resolves the configuration for cmd, applying its flags.
func loadConfig(cmd *cobra.Command, logger *slog.Logger, global *globalFlags) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	cfg, used, err := config.Load(config.LoadOptions{
		ConfigFile: global.configFile,
		Dir:        wd,
		Flags:      cmd.Flags(),
		Bindings:   configBindings,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if used != "" {
		logger.Debug("config loaded", slog.String("path", used))
	}

	if global.noSystemFonts {
		cfg.Fonts.System = false
	}

	return cfg, nil
}

func newResolver(cfg *config.Config, logger *slog.Logger) *fonts.Resolver {
	return fonts.NewResolver(cfg.FontConfig(), logger)
}
