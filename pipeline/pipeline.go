// Package pipeline ties the benchmark scheduler to the chart renderer: it
// collects results, draws them as a bar chart and writes the PNG.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/weiihann/benchplot/artifact"
	"github.com/weiihann/benchplot/chart"
	"github.com/weiihann/benchplot/fonts"
	"github.com/weiihann/benchplot/harness"
	"github.com/weiihann/benchplot/plan"
	"github.com/weiihann/benchplot/raster"
)

const (
	DefaultTitle = "Program Run Comparison"
	DefaultWidth = 1600
	ValueLabel   = "Time (s)"
	CommandLabel = "Command"
)

// Scheduler produces one result per command, in command order.
type Scheduler interface {
	Run(ctx context.Context, cmds []plan.Command, opts harness.Options) ([]harness.Result, error)
}

// CatalogSource provides the font catalog used to draw text.
type CatalogSource interface {
	Resolve() *fonts.Catalog
}

// Renderer draws results as a bar chart and writes it as PNG.
type Renderer struct {
	Fonts  CatalogSource
	Width  int
	Title  string
	Logger *slog.Logger
}

// Render builds the chart for results, rasterizes it to the configured
// width and writes it to path. Failures are reported as *StageError.
func (r *Renderer) Render(results []harness.Result, path string) error {
	series := make([]chart.Point, len(results))
	for i, res := range results {
		series[i] = chart.Point{Label: res.Command, Value: res.Mean}
	}

	catalog := r.Fonts.Resolve()

	doc, err := chart.Build(chart.Spec{
		Title:    r.Title,
		Axes:     chart.AxisLabels{X: ValueLabel, Y: CommandLabel},
		Series:   series,
		Measurer: catalog,
	})
	if err != nil {
		return NewStageError(StageChart, err)
	}

	start := time.Now()

	img, err := raster.Rasterize(doc.Bytes(), catalog, r.Width)
	if err != nil {
		return NewStageError(StageRasterize, err)
	}

	r.Logger.Debug("chart rasterized",
		slog.Int("bars", doc.Bars()),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
		slog.Duration("elapsed", time.Since(start)),
	)

	if err := artifact.Write(img, path); err != nil {
		return NewStageError(StageWrite, err)
	}

	r.Logger.Info("chart written", slog.String("path", path))

	return nil
}

// Outcome is what a pipeline run produced.
type Outcome struct {
	Results []harness.Result
	// Path is the written image, empty when rendering failed.
	Path string
}

// Orchestrator runs the scheduler and renders its results.
type Orchestrator struct {
	Scheduler Scheduler
	Renderer  *Renderer
	Output    string
	Logger    *slog.Logger
}

// Run benchmarks cmds and renders the results to the output path.
//
// A scheduler error is returned unchanged with a nil Outcome and nothing is
// rendered. Once results exist the Outcome always carries them, also when
// rendering fails.
func (o *Orchestrator) Run(ctx context.Context, cmds []plan.Command, opts harness.Options) (*Outcome, error) {
	results, err := o.Scheduler.Run(ctx, cmds, opts)
	if err != nil {
		return nil, err
	}

	o.Logger.Info("benchmarks collected", slog.Int("commands", len(results)))

	out := &Outcome{Results: results}

	if err := o.Renderer.Render(results, o.Output); err != nil {
		return out, err
	}

	out.Path = o.Output

	return out, nil
}
