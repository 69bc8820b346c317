package raster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/weiihann/benchplot/fonts"
)

const (
	defaultFontSize   = 16
	defaultFontFamily = "sans-serif"
	defaultFill       = "#000000"
)

// convertText replaces every <text> element under root with a <path> of its
// glyph outlines, in place.
func convertText(root *etree.Element, catalog *fonts.Catalog) error {
	var buf sfnt.Buffer

	for _, el := range root.FindElements("//text") {
		parent := el.Parent()
		if parent == nil {
			continue
		}

		d, err := outline(el, catalog, &buf)
		if err != nil {
			return err
		}

		fill := property(el, "fill", defaultFill)
		if d != "" && fill != "none" {
			path := etree.NewElement("path")
			path.CreateAttr("d", d)
			path.CreateAttr("fill", fill)
			path.CreateAttr("fill-rule", "nonzero")

			if opacity := property(el, "fill-opacity", ""); opacity != "" {
				path.CreateAttr("fill-opacity", opacity)
			}

			parent.InsertChildAt(el.Index(), path)
		}

		parent.RemoveChild(el)
	}

	return nil
}

// outline lays out the text of el and returns SVG path data for it in the
// coordinate system of el's parent.
func outline(el *etree.Element, catalog *fonts.Catalog, buf *sfnt.Buffer) (string, error) {
	content := strings.Join(strings.Fields(textContent(el)), " ")
	if content == "" {
		return "", nil
	}

	x, err := floatAttr(el, "x")
	if err != nil {
		return "", err
	}

	y, err := floatAttr(el, "y")
	if err != nil {
		return "", err
	}

	size, err := fontSize(property(el, "font-size", ""))
	if err != nil {
		return "", err
	}

	m := rasterx.Identity
	if tr := el.SelectAttrValue("transform", ""); tr != "" {
		if m, err = parseTransform(tr); err != nil {
			return "", err
		}
	}

	face := catalog.Lookup(property(el, "font-family", defaultFontFamily))
	if face == nil {
		return "", fmt.Errorf("%w: no font face available", ErrRenderFailed)
	}

	ppem := fixed.Int26_6(math.Round(size * 64))

	glyphs, advance, err := catalog.Layout(buf, face, ppem, content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	switch property(el, "text-anchor", "start") {
	case "middle":
		x -= advance / 2
	case "end":
		x -= advance
	}

	var d pathData

	for _, g := range glyphs {
		segments, err := g.Face.Font.LoadGlyph(buf, g.Index, ppem, nil)
		if err != nil {
			return "", fmt.Errorf("%w: load glyph %d of %q: %v",
				ErrRenderFailed, g.Index, g.Face.Family, err)
		}

		d.glyph(segments, m, x+g.X, y)
	}

	return d.String(), nil
}

// pathData accumulates absolute SVG path commands.
type pathData struct {
	b    strings.Builder
	open bool
}

func (p *pathData) glyph(segments sfnt.Segments, m rasterx.Matrix2D, ox, oy float64) {
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			p.close()
			p.cmd('M', m, ox, oy, seg.Args[:1])
			p.open = true
		case sfnt.SegmentOpLineTo:
			p.cmd('L', m, ox, oy, seg.Args[:1])
		case sfnt.SegmentOpQuadTo:
			p.cmd('Q', m, ox, oy, seg.Args[:2])
		case sfnt.SegmentOpCubeTo:
			p.cmd('C', m, ox, oy, seg.Args[:3])
		}
	}

	p.close()
}

func (p *pathData) cmd(op byte, m rasterx.Matrix2D, ox, oy float64, pts []fixed.Point26_6) {
	if p.b.Len() > 0 {
		p.b.WriteByte(' ')
	}

	p.b.WriteByte(op)

	for _, pt := range pts {
		x, y := m.Transform(ox+fromFixed(pt.X), oy+fromFixed(pt.Y))
		p.b.WriteByte(' ')
		p.b.WriteString(strconv.FormatFloat(x, 'f', 2, 64))
		p.b.WriteByte(' ')
		p.b.WriteString(strconv.FormatFloat(y, 'f', 2, 64))
	}
}

func (p *pathData) close() {
	if p.open {
		p.b.WriteString(" Z")
		p.open = false
	}
}

func (p *pathData) String() string { return p.b.String() }

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// textContent concatenates the character data of el and its descendants.
func textContent(el *etree.Element) string {
	var b strings.Builder

	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			b.WriteString(tok.Data)
		case *etree.Element:
			b.WriteString(textContent(tok))
		}
	}

	return b.String()
}

// property returns a presentation property of el, looking at its style
// attribute, then the plain attribute, then its ancestors.
func property(el *etree.Element, name, def string) string {
	for e := el; e != nil; e = e.Parent() {
		if v, ok := styleValue(e.SelectAttrValue("style", ""), name); ok {
			return v
		}

		if v := strings.TrimSpace(e.SelectAttrValue(name, "")); v != "" {
			return v
		}
	}

	return def
}

func styleValue(style, name string) (string, bool) {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == name {
			return strings.TrimSpace(v), true
		}
	}

	return "", false
}

func floatAttr(el *etree.Element, name string) (float64, error) {
	raw := strings.TrimSpace(el.SelectAttrValue(name, ""))
	if raw == "" {
		return 0, nil
	}

	// Only the first coordinate of a list is honored.
	if fields := strings.FieldsFunc(raw, isSeparator); len(fields) > 0 {
		raw = fields[0]
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "px"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: text %s=%q", ErrMalformedDocument, name, raw)
	}

	return v, nil
}

func fontSize(raw string) (float64, error) {
	if raw == "" {
		return defaultFontSize, nil
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "px"), 64)
	if err != nil || !finitePositive(v) {
		return 0, fmt.Errorf("%w: font-size %q", ErrMalformedDocument, raw)
	}

	return v, nil
}
