package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weiihann/benchplot/config"
	"github.com/weiihann/benchplot/fonts"
	"github.com/weiihann/benchplot/pipeline"
	"github.com/weiihann/benchplot/report"
)

func newRenderCmd(logger *slog.Logger, global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <results.json>",
		Short: "Plot results exported with run --json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, logger, global)
			if err != nil {
				return err
			}

			return renderResults(logger, cfg, args[0], cmd.OutOrStdout())
		},
	}

	def := config.Default()

	flags := cmd.Flags()
	flags.StringP("output", "o", def.Output, "PNG output path")
	flags.Int("width", def.Width, "Image width in pixels")
	flags.String("title", def.Title, "Chart title")

	return cmd
}

func renderResults(logger *slog.Logger, cfg *config.Config, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open results %s: %w", path, err)
	}
	defer f.Close()

	results, err := report.ReadJSON(f)
	if err != nil {
		return fmt.Errorf("read results %s: %w", path, err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	output := cfg.OutputPath(wd)

	r := &pipeline.Renderer{
		Fonts:  newResolver(cfg, logger),
		Width:  cfg.Width,
		Title:  cfg.Title,
		Logger: logger,
	}

	if err := r.Render(results, output); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}

	return writeReport(w, results, false)
}

func newFontsCmd(logger *slog.Logger, global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fonts",
		Short: "Show the fonts used to draw chart text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, logger, global)
			if err != nil {
				return err
			}

			return printFonts(cmd.OutOrStdout(), newResolver(cfg, logger).Resolve())
		},
	}
}

func printFonts(w io.Writer, catalog *fonts.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "CLASS\tPREFERRED\tRESOLVED")

	for _, class := range fonts.Classes {
		face := catalog.Lookup(class.String())
		fmt.Fprintf(tw, "%s\t%s\t%s %s\n",
			class, catalog.Family(class), face.Family, face.Subfamily)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FAMILY\tSTYLE\tCLASS\tSOURCE")

	for _, face := range catalog.Faces() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			face.Family, face.Subfamily, face.Class, face.Source)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write font table: %w", err)
	}

	return nil
}
