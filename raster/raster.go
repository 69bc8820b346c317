// Package raster turns an SVG chart into a fixed-width RGBA image. Text is
// converted to glyph outlines from a fonts.Catalog before anything is
// measured, so the output does not depend on a text engine.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/beevik/etree"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/weiihann/benchplot/fonts"
)

var (
	// ErrMalformedDocument is returned when the input is not a usable SVG.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrDegenerateGeometry is returned when the document has no area.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrAllocationFailed is returned when the pixel buffer cannot be sized.
	ErrAllocationFailed = errors.New("allocation failed")
	// ErrRenderFailed is returned when glyph loading or drawing fails.
	ErrRenderFailed = errors.New("render failed")
)

// MaxPixels bounds width*height of an output image.
const MaxPixels = 1 << 28

// Rasterize renders doc at the given pixel width. The height follows the
// document's aspect ratio. Nothing is returned on error.
func Rasterize(doc []byte, catalog *fonts.Catalog, width int) (*image.RGBA, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	root := tree.Root()
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("%w: root element is not <svg>", ErrMalformedDocument)
	}

	if err := convertText(root, catalog); err != nil {
		return nil, err
	}

	converted, err := tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(converted), oksvg.StrictErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	nativeW, nativeH := icon.ViewBox.W, icon.ViewBox.H
	if !finitePositive(nativeW) || !finitePositive(nativeH) {
		return nil, fmt.Errorf("%w: native size %vx%v",
			ErrDegenerateGeometry, nativeW, nativeH)
	}

	if width <= 0 {
		return nil, fmt.Errorf("%w: width %d", ErrAllocationFailed, width)
	}

	scaledH := nativeH * float64(width) / nativeW
	rounded := math.Round(scaledH)

	if rounded < 1 {
		return nil, fmt.Errorf("%w: height %v rounds to %v at width %d",
			ErrAllocationFailed, scaledH, rounded, width)
	}

	if float64(width)*rounded > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%v exceeds %d pixels",
			ErrAllocationFailed, width, rounded, MaxPixels)
	}

	height := int(rounded)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if err := render(icon, img, float64(width), scaledH); err != nil {
		return nil, err
	}

	return img, nil
}

func render(icon *oksvg.SvgIcon, img *image.RGBA, w, h float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRenderFailed, r)
		}
	}()

	bounds := img.Bounds()
	icon.SetTarget(0, 0, w, h)

	scanner := rasterx.NewScannerGV(bounds.Dx(), bounds.Dy(), img, bounds)
	icon.Draw(rasterx.NewDasher(bounds.Dx(), bounds.Dy(), scanner), 1)

	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
