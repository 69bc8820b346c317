// Package chart builds the SVG bar chart comparing benchmark results. One
// horizontal bar is drawn per entry, in the order given, starting from a
// zero baseline.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	svg "github.com/ajstarks/svgo"
	"gonum.org/v1/plot"
)

var (
	// ErrEmptyDataset is returned for a series with no entries.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrInvalidValue is returned for NaN, infinite or negative values.
	ErrInvalidValue = errors.New("invalid value")
)

// BarColor is the fill of every bar.
const BarColor = "#4e79a7"

const (
	canvasWidth   = 800
	minPlotWidth  = 360
	marginTop     = 56
	marginBottom  = 64
	marginRight   = 90
	axisTitleBand = 34
	band          = 40
	barHeight     = 26
	fontSize      = 13
	titleSize     = 20
	maxLabelRunes = 40
	minLabelWidth = 60
	labelGap      = 12
	// estimateEm is the per-rune width, in ems, assumed without a Measurer.
	// It bounds the advance of common Latin glyphs.
	estimateEm = 1.0
	// headroom leaves space after the longest bar for its value label.
	headroom = 1.08
)

const (
	background = "#ffffff"
	textColor  = "#222222"
	axisColor  = "#333333"
	gridColor  = "#dddddd"
	fontFamily = "sans-serif"
)

// Point is one labeled value.
type Point struct {
	Label string
	Value float64
}

// AxisLabels names the value (X) and category (Y) axes.
type AxisLabels struct {
	X string
	Y string
}

// Measurer reports the rendered width of text in user units.
type Measurer interface {
	TextWidth(fontFamily string, size float64, s string) float64
}

// Spec describes a chart to build.
type Spec struct {
	Title  string
	Axes   AxisLabels
	Series []Point
	// Measurer sizes the label column. Without one, label widths are
	// estimated generously.
	Measurer Measurer
}

// Document is a built SVG chart.
type Document struct {
	data   []byte
	bars   int
	width  int
	height int
}

// Bytes returns the SVG source. The slice must not be modified.
func (d *Document) Bytes() []byte { return d.data }

// Bars returns the number of bars drawn.
func (d *Document) Bars() int { return d.bars }

// Width returns the native width in user units.
func (d *Document) Width() int { return d.width }

// Height returns the native height in user units.
func (d *Document) Height() int { return d.height }

// Build renders spec as an SVG document.
func Build(spec Spec) (*Document, error) {
	if len(spec.Series) == 0 {
		return nil, ErrEmptyDataset
	}

	maxValue := 0.0

	for i, p := range spec.Series {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value < 0 {
			return nil, fmt.Errorf("%w: entry %d (%q) is %v",
				ErrInvalidValue, i, p.Label, p.Value)
		}

		maxValue = math.Max(maxValue, p.Value)
	}

	axisMax := maxValue * headroom
	if axisMax == 0 {
		axisMax = 1
	}

	labels := make([]string, len(spec.Series))
	widest := 0.0

	for i, p := range spec.Series {
		labels[i] = truncate(p.Label)
		widest = math.Max(widest, textWidth(spec.Measurer, labels[i]))
	}

	labelWidth := max(int(math.Ceil(widest))+labelGap, minLabelWidth)

	left := axisTitleBand + labelWidth
	width := max(canvasWidth, left+minPlotWidth+marginRight)
	plotWidth := width - left - marginRight
	plotHeight := band * len(spec.Series)
	height := marginTop + plotHeight + marginBottom
	bottom := marginTop + plotHeight

	xpos := func(v float64) int {
		return left + int(math.Round(v/axisMax*float64(plotWidth)))
	}

	var buf bytes.Buffer

	canvas := svg.New(&buf)
	canvas.Startview(width, height, 0, 0, width, height)
	canvas.Rect(0, 0, width, height, "fill:"+background)

	if spec.Title != "" {
		canvas.Text(width/2, marginTop/2+titleSize/3, spec.Title,
			textStyle(titleSize, "middle"))
	}

	ticker := plot.DefaultTicks{}

	for _, tick := range ticker.Ticks(0, axisMax) {
		if tick.Label == "" || tick.Value > axisMax {
			continue
		}

		x := xpos(tick.Value)
		canvas.Line(x, marginTop, x, bottom, lineStyle(gridColor))
		canvas.Line(x, bottom, x, bottom+5, lineStyle(axisColor))
		canvas.Text(x, bottom+20, tick.Label, textStyle(fontSize, "middle"))
	}

	for i, p := range spec.Series {
		top := marginTop + i*band + (band-barHeight)/2
		center := top + barHeight/2 + fontSize/3
		end := xpos(p.Value)

		canvas.Rect(left, top, end-left, barHeight,
			fmt.Sprintf(`id="bar-%d"`, i), "fill:"+BarColor)
		canvas.Text(left-8, center, labels[i], textStyle(fontSize, "end"))
		canvas.Text(end+6, center, FormatSeconds(p.Value),
			textStyle(fontSize, "start"))
	}

	canvas.Line(left, marginTop, left, bottom, lineStyle(axisColor))
	canvas.Line(left, bottom, left+plotWidth, bottom, lineStyle(axisColor))

	if spec.Axes.X != "" {
		canvas.Text(left+plotWidth/2, height-16, spec.Axes.X,
			textStyle(fontSize+1, "middle"))
	}

	if spec.Axes.Y != "" {
		x, y := axisTitleBand/2+4, marginTop+plotHeight/2
		canvas.Text(x, y, spec.Axes.Y,
			fmt.Sprintf(`transform="rotate(-90 %d %d)"`, x, y),
			textStyle(fontSize+1, "middle"))
	}

	canvas.End()

	return &Document{
		data:   buf.Bytes(),
		bars:   len(spec.Series),
		width:  width,
		height: height,
	}, nil
}

// FormatSeconds renders a duration in seconds for a bar label.
func FormatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%.1f ms", s*1000)
	}

	return fmt.Sprintf("%.3f s", s)
}

func textWidth(m Measurer, s string) float64 {
	if m == nil {
		return float64(utf8.RuneCountInString(s)) * fontSize * estimateEm
	}

	return m.TextWidth(fontFamily, fontSize, s)
}

func truncate(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if utf8.RuneCountInString(label) <= maxLabelRunes {
		return label
	}

	runes := []rune(label)

	return string(runes[:maxLabelRunes-1]) + "…"
}

func textStyle(size int, anchor string) string {
	return fmt.Sprintf("font-family:%s;font-size:%dpx;text-anchor:%s;fill:%s",
		fontFamily, size, anchor, textColor)
}

func lineStyle(color string) string {
	return fmt.Sprintf("stroke:%s;stroke-width:1", color)
}
