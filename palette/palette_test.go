package palette

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(r image.Rectangle) *image.NRGBA {
	m := image.NewNRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(y * 4), uint8(x + y), 255})
		}
	}
	return m
}

func TestReduce(t *testing.T) {
	tables := []struct {
		name   string
		colors int
		dither bool
	}{
		{"sixteen", 16, false},
		{"sixteen dithered", 16, true},
		{"two", 2, false},
		{"full", 256, false},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			pm, err := Reduce(gradient(image.Rect(0, 0, 64, 40)), table.colors, table.dither)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(pm.Palette), table.colors)
			assert.Equal(t, image.Rect(0, 0, 64, 40), pm.Bounds())
		})
	}
}

func TestReduceOffset(t *testing.T) {
	pm, err := Reduce(gradient(image.Rect(10, 10, 42, 42)), 8, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), pm.Bounds())
}

func TestReducePaletted(t *testing.T) {
	p := color.Palette{color.Black, color.White}
	m := image.NewPaletted(image.Rect(0, 0, 4, 4), p)

	pm, err := Reduce(m, 16, false)
	require.NoError(t, err)
	assert.Same(t, m, pm)
}

func TestReduceBadColors(t *testing.T) {
	for _, colors := range []int{-1, 0, 1, 257} {
		_, err := Reduce(gradient(image.Rect(0, 0, 4, 4)), colors, false)
		assert.ErrorIs(t, err, errBadColors)
	}
}
