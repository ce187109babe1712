package qoi

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"io"

	"github.com/pkg/errors"
)

func init() {
	image.RegisterFormat("qoi", Magic, DecodeImage, DecodeConfig)
}

// A Decoder holds the options used when decoding. The zero value accepts
// images up to DefaultMaxPixels and writes only the declared channels.
type Decoder struct {
	// MaxPixels is the largest width*height accepted before any pixel
	// memory is allocated. Zero means DefaultMaxPixels.
	MaxPixels uint64

	// AlphaAlways writes four bytes per pixel even when the header
	// declares three channels.
	AlphaAlways bool
}

type decoder struct {
	b   []byte
	pos int

	desc Descriptor

	px    Pixel
	run   int
	cache cache
}

func (d *decoder) remaining() int {
	return len(d.b) - d.pos
}

// need ensures n bytes remain after the tag byte at d.pos-1
func (d *decoder) need(n int, op string) error {
	if d.remaining() < n {
		return errors.Wrapf(ErrTruncated, "%s at offset %d needs %d bytes, %d remain", op, d.pos-1, n, d.remaining())
	}
	return nil
}

func (d *decoder) readHeader() error {
	if len(d.b) < len(Magic) || string(d.b[:len(Magic)]) != Magic {
		return ErrBadSignature
	}
	if len(d.b) < HeaderSize {
		return errors.Wrapf(ErrTruncated, "header needs %d bytes, have %d", HeaderSize, len(d.b))
	}

	d.desc = Descriptor{
		Width:      binary.BigEndian.Uint32(d.b[4:8]),
		Height:     binary.BigEndian.Uint32(d.b[8:12]),
		Channels:   d.b[12],
		Colorspace: Colorspace(d.b[13]),
	}
	d.pos = HeaderSize

	return nil
}

// next resolves the pixel at the current position
func (d *decoder) next() error {
	if d.run > 0 {
		d.run--
		return nil
	}

	// Input is exhausted, keep repeating the last pixel
	if d.pos >= len(d.b) {
		return nil
	}

	tag := d.b[d.pos]
	d.pos++

	switch {
	case tag == OpRGB:
		if err := d.need(3, "QOI_OP_RGB"); err != nil {
			return err
		}
		d.px.R = d.b[d.pos]
		d.px.G = d.b[d.pos+1]
		d.px.B = d.b[d.pos+2]
		d.pos += 3
	case tag == OpRGBA:
		if err := d.need(4, "QOI_OP_RGBA"); err != nil {
			return err
		}
		d.px.R = d.b[d.pos]
		d.px.G = d.b[d.pos+1]
		d.px.B = d.b[d.pos+2]
		d.px.A = d.b[d.pos+3]
		d.pos += 4
	case tag&opMask == OpIndex:
		d.px = d.cache[tag&^opMask]
	case tag&opMask == OpDiff:
		d.px.R += (tag>>4)&0x03 - 2
		d.px.G += (tag>>2)&0x03 - 2
		d.px.B += tag&0x03 - 2
	case tag&opMask == OpLuma:
		if err := d.need(1, "QOI_OP_LUMA"); err != nil {
			return err
		}
		b := d.b[d.pos]
		d.pos++
		dg := tag&0x3f - 32
		d.px.R += dg - 8 + b>>4
		d.px.G += dg
		d.px.B += dg - 8 + b&0x0f
	case tag&opMask == OpRun:
		d.run = int(tag &^ opMask)
	}

	// Every tag stores, the run tag included; continuing a run does not
	d.cache.store(d.px)

	return nil
}

func (d *decoder) decode(b []byte, opts Decoder, configOnly bool) ([]byte, error) {
	d.b = b
	d.px = Pixel{A: 0xff}

	if err := d.readHeader(); err != nil {
		return nil, err
	}

	if d.desc.Channels != 3 && d.desc.Channels != 4 {
		return nil, errors.Wrapf(ErrBadChannels, "header declares %d", d.desc.Channels)
	}

	if configOnly {
		return nil, nil
	}

	limit := opts.MaxPixels
	if limit == 0 {
		limit = DefaultMaxPixels
	}
	if d.desc.Pixels() > limit {
		return nil, errors.Wrapf(ErrTooLarge, "%d pixels exceeds limit of %d", d.desc.Pixels(), limit)
	}

	stride := int(d.desc.Channels)
	if opts.AlphaAlways {
		stride = 4
	}

	size, err := d.desc.Size(stride)
	if err != nil {
		return nil, err
	}

	pixels := make([]byte, size)
	for i := 0; i < size; i += stride {
		if err := d.next(); err != nil {
			return nil, err
		}

		pixels[i+0] = d.px.R
		pixels[i+1] = d.px.G
		pixels[i+2] = d.px.B
		if stride == 4 {
			pixels[i+3] = d.px.A
		}
	}

	return pixels, nil
}

// Decode decodes the QOI image held in b. It returns the pixels, packed
// left-to-right and top-to-bottom with one byte per declared channel unless
// AlphaAlways is set. The returned Descriptor is filled in as far as the
// header could be parsed, even when an error is returned.
func (opts Decoder) Decode(b []byte) ([]byte, Descriptor, error) {
	var d decoder
	pixels, err := d.decode(b, opts, false)
	if err != nil {
		return nil, d.desc, err
	}
	return pixels, d.desc, nil
}

// Decode decodes the QOI image held in b using the default options.
func Decode(b []byte) ([]byte, Descriptor, error) {
	return Decoder{}.Decode(b)
}

// DecodeHeader parses and validates only the header held in b.
func DecodeHeader(b []byte) (Descriptor, error) {
	var d decoder
	if _, err := d.decode(b, Decoder{}, true); err != nil {
		return d.desc, err
	}
	return d.desc, nil
}

// HasEndMarker reports whether b finishes with EndMarker.
func HasEndMarker(b []byte) bool {
	return bytes.HasSuffix(b, EndMarker[:])
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// DecodeNRGBA decodes the QOI image held in b into an *image.NRGBA. Three
// channel images are given an opaque alpha channel.
func (opts Decoder) DecodeNRGBA(b []byte) (*image.NRGBA, Descriptor, error) {
	opts.AlphaAlways = true
	pixels, desc, err := opts.Decode(b)
	if err != nil {
		return nil, desc, err
	}

	return &image.NRGBA{
		Pix:    pixels,
		Stride: 4 * int(desc.Width),
		Rect:   image.Rect(0, 0, int(desc.Width), int(desc.Height)),
	}, desc, nil
}

// DecodeImage reads a QOI image from r and returns it as an image.Image.
func DecodeImage(r io.Reader) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m, _, err := Decoder{}.DecodeNRGBA(b)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeConfig returns the color model and dimensions of a QOI image without
// decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var tmp [HeaderSize]byte
	if err := readFull(r, tmp[:]); err != nil {
		if err != io.ErrUnexpectedEOF {
			return image.Config{}, err
		}
		// Short input still deserves the signature check first
		if _, herr := DecodeHeader(tmp[:]); herr == ErrBadSignature {
			return image.Config{}, herr
		}
		return image.Config{}, ErrTruncated
	}

	desc, err := DecodeHeader(tmp[:])
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(desc.Width),
		Height:     int(desc.Height),
	}, nil
}
