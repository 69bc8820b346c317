package raster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/rasterx"
)

// parseTransform parses an SVG transform list such as
// "translate(10 20) rotate(-90 5 5)" into a single matrix.
func parseTransform(s string) (rasterx.Matrix2D, error) {
	m := rasterx.Identity
	rest := strings.TrimSpace(s)

	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')

		if open <= 0 || closing < open {
			return m, fmt.Errorf("%w: transform %q", ErrMalformedDocument, s)
		}

		name := strings.TrimSpace(rest[:open])
		args, err := parseNumbers(rest[open+1 : closing])
		if err != nil {
			return m, fmt.Errorf("%w: transform %q: %v", ErrMalformedDocument, s, err)
		}

		step, err := transformStep(name, args)
		if err != nil {
			return m, fmt.Errorf("%w: transform %q: %v", ErrMalformedDocument, s, err)
		}

		m = m.Mult(step)
		rest = strings.TrimLeft(rest[closing+1:], ", \t\r\n")
	}

	return m, nil
}

func transformStep(name string, a []float64) (rasterx.Matrix2D, error) {
	switch {
	case name == "matrix" && len(a) == 6:
		return rasterx.Matrix2D{A: a[0], B: a[1], C: a[2], D: a[3], E: a[4], F: a[5]}, nil

	case name == "translate" && (len(a) == 1 || len(a) == 2):
		ty := 0.0
		if len(a) == 2 {
			ty = a[1]
		}

		return translation(a[0], ty), nil

	case name == "scale" && (len(a) == 1 || len(a) == 2):
		sy := a[0]
		if len(a) == 2 {
			sy = a[1]
		}

		return rasterx.Matrix2D{A: a[0], D: sy}, nil

	case name == "rotate" && (len(a) == 1 || len(a) == 3):
		sin, cos := math.Sincos(a[0] * math.Pi / 180)
		rot := rasterx.Matrix2D{A: cos, B: sin, C: -sin, D: cos}

		if len(a) == 1 {
			return rot, nil
		}

		return translation(a[1], a[2]).Mult(rot).Mult(translation(-a[1], -a[2])), nil

	case name == "skewX" && len(a) == 1:
		return rasterx.Matrix2D{A: 1, C: math.Tan(a[0] * math.Pi / 180), D: 1}, nil

	case name == "skewY" && len(a) == 1:
		return rasterx.Matrix2D{A: 1, B: math.Tan(a[0] * math.Pi / 180), D: 1}, nil

	default:
		return rasterx.Identity, fmt.Errorf("unsupported %s with %d arguments", name, len(a))
	}
}

func translation(tx, ty float64) rasterx.Matrix2D {
	return rasterx.Matrix2D{A: 1, D: 1, E: tx, F: ty}
}

func parseNumbers(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, isSeparator)
	out := make([]float64, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

func isSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
