// Package palette reduces decoded images to a limited color palette for
// output formats that need one.
package palette

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

const (
	// MinColors is the smallest palette Reduce will build
	MinColors = 2
	// MaxColors is the largest palette Reduce will build
	MaxColors = 256
)

var errBadColors = errors.Errorf("palette: number of colors must be between %d and %d", MinColors, MaxColors)

// Reduce returns m as a paletted image using no more than colors colors. The
// palette is chosen with a median cut and, if dither is set, error diffusion
// is used when mapping pixels onto it.
func Reduce(m image.Image, colors int, dither bool) (*image.Paletted, error) {
	if colors < MinColors || colors > MaxColors {
		return nil, errors.WithStack(errBadColors)
	}

	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm == nil || len(pm.Palette) > colors {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), m))
		if dither {
			draw.FloydSteinberg.Draw(pm, b, m, b.Min)
		} else {
			draw.Draw(pm, b, m, b.Min, draw.Src)
		}
	}

	// Adjust image so that top-left corner is at (0, 0)
	if pm.Rect.Min != (image.Point{}) {
		dup := *pm
		dup.Rect = dup.Rect.Sub(dup.Rect.Min)
		pm = &dup
	}

	return pm, nil
}
