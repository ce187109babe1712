package qoitool

import (
	"image"
	"io"
	"os"

	"github.com/bodgit/qoitool/palette"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// ConvertOptions controls how Convert transforms the image before writing.
type ConvertOptions struct {
	// Width scales the image to this width, keeping the aspect ratio. Zero
	// keeps the original size.
	Width int
	// Colors reduces the image to this many colors. Zero keeps every color.
	Colors int
	// Dither uses error diffusion when reducing colors
	Dither bool
}

func scale(m image.Image, width int) image.Image {
	b := m.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 {
		return m
	}

	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m, b, draw.Src, nil)

	return dst
}

// Convert decodes the QOI image in in and writes it to out in the format
// implied by the extension of out.
func (t *Tool) Convert(in, out string, opts ConvertOptions) (err error) {
	f, err := formatFromFilename(out)
	if err != nil {
		return err
	}

	b, err := t.readFile(in)
	if err != nil {
		return err
	}

	nrgba, desc, err := t.decoder().DecodeNRGBA(b)
	if err != nil {
		return errors.Wrap(err, in)
	}

	var m image.Image = scale(nrgba, opts.Width)

	if opts.Colors > 0 {
		if m, err = palette.Reduce(m, opts.Colors, opts.Dither); err != nil {
			return err
		}
	}

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	if err = f.encode(w, m); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}

	t.logger.Info().Str("in", in).Str("out", out).Stringer("descriptor", desc).Msg("converted")

	return nil
}

// Dump decodes the QOI image in file and writes the packed pixels to w,
// optionally zstd compressed.
func (t *Tool) Dump(file string, w io.Writer, compress bool) error {
	pixels, _, err := t.DecodeFile(file)
	if err != nil {
		return err
	}

	if !compress {
		_, err = w.Write(pixels)
		return err
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}

	if _, err = zw.Write(pixels); err != nil {
		zw.Close()
		return err
	}

	return zw.Close()
}
