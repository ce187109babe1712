package qoitool

import (
	"encoding/binary"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/qoitool/qoi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{0xff, 0x00, 0x00, 0xff}
	blue = color.NRGBA{0x00, 0x00, 0xff, 0xff}
)

func header(width, height uint32, channels uint8) []byte {
	b := []byte(qoi.Magic)
	b = binary.BigEndian.AppendUint32(b, width)
	b = binary.BigEndian.AppendUint32(b, height)
	return append(b, channels, byte(qoi.SRGB))
}

func run(n int) []byte {
	var ops []byte
	for n > 0 {
		r := min(n, 62)
		ops = append(ops, qoi.OpRun|byte(r-1))
		n -= r
	}
	return ops
}

// solid returns a QOI image filled with c
func solid(width, height uint32, c color.NRGBA) []byte {
	b := append(header(width, height, 4), qoi.OpRGBA, c.R, c.G, c.B, c.A)
	b = append(b, run(int(width*height)-1)...)
	return append(b, qoi.EndMarker[:]...)
}

// stripes returns a three channel QOI image with red even rows and blue odd
// rows
func stripes(width, height uint32) []byte {
	b := header(width, height, 3)
	for y := uint32(0); y < height; y++ {
		c := red
		if y%2 == 1 {
			c = blue
		}
		b = append(b, qoi.OpRGB, c.R, c.G, c.B)
		b = append(b, run(int(width)-1)...)
	}
	return append(b, qoi.EndMarker[:]...)
}

func writeFile(t *testing.T, file string, b []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, b, 0o644))
	return file
}

func newTool(cfg Config) *Tool {
	return New(cfg, nil, zerolog.Nop())
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	tool := newTool(DefaultConfig())

	desc, err := tool.Info(writeFile(t, filepath.Join(dir, "red.qoi"), solid(3, 2, red)))
	require.NoError(t, err)
	assert.Equal(t, qoi.Descriptor{Width: 3, Height: 2, Channels: 4}, desc)

	_, err = tool.Info(writeFile(t, filepath.Join(dir, "bad.qoi"), []byte("not an image at all")))
	assert.ErrorIs(t, err, qoi.ErrBadSignature)

	_, err = tool.Info(writeFile(t, filepath.Join(dir, "short.qoi"), []byte("qoif")))
	assert.ErrorIs(t, err, qoi.ErrTruncated)

	_, err = tool.Info(filepath.Join(dir, "missing.qoi"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeFile(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "stripes.qoi"), stripes(3, 2))

	pixels, desc, err := newTool(DefaultConfig()).DecodeFile(file)
	require.NoError(t, err)
	assert.Equal(t, qoi.Descriptor{Width: 3, Height: 2, Channels: 3}, desc)
	assert.Equal(t, []byte{
		0xff, 0, 0, 0xff, 0, 0, 0xff, 0, 0,
		0, 0, 0xff, 0, 0, 0xff, 0, 0, 0xff,
	}, pixels)

	_, desc, err = newTool(Config{MaxPixels: 5}).DecodeFile(file)
	assert.ErrorIs(t, err, qoi.ErrTooLarge)
	assert.Equal(t, uint32(3), desc.Width)
}
