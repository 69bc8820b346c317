package fonts

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Glyph is one positioned glyph of a laid out string.
type Glyph struct {
	Face  *Face
	Index sfnt.GlyphIndex
	// X is the pen position relative to the start of the string.
	X float64
}

// Layout places each rune of s on a baseline starting at zero, taking
// glyphs missing from primary from the other faces, and returns the glyphs
// and the total advance.
func (c *Catalog) Layout(buf *sfnt.Buffer, primary *Face, ppem fixed.Int26_6, s string) ([]Glyph, float64, error) {
	glyphs := make([]Glyph, 0, len(s))
	pen := 0.0

	for _, r := range s {
		f, idx, _ := c.ForRune(buf, primary, r)

		if n := len(glyphs); n > 0 && glyphs[n-1].Face == f {
			kern, err := f.Font.Kern(buf, glyphs[n-1].Index, idx, ppem, font.HintingNone)
			if err == nil {
				pen += fromFixed(kern)
			}
		}

		adv, err := f.Font.GlyphAdvance(buf, idx, ppem, font.HintingNone)
		if err != nil {
			return nil, 0, fmt.Errorf("advance of %q in %q: %w", r, f.Family, err)
		}

		glyphs = append(glyphs, Glyph{Face: f, Index: idx, X: pen})
		pen += fromFixed(adv)
	}

	return glyphs, pen, nil
}

// TextWidth returns the advance of s, with whitespace collapsed, set in the
// CSS font-family list fontFamily at size pixels. When no face can measure
// s it returns a one em per rune estimate.
func (c *Catalog) TextWidth(fontFamily string, size float64, s string) float64 {
	s = strings.Join(strings.Fields(s), " ")
	estimate := size * float64(utf8.RuneCountInString(s))

	face := c.Lookup(fontFamily)
	if face == nil {
		return estimate
	}

	var buf sfnt.Buffer

	_, width, err := c.Layout(&buf, face, fixed.Int26_6(math.Round(size*64)), s)
	if err != nil {
		return estimate
	}

	return width
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
