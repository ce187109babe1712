/*
Package qoi implements a decoder for the QOI ("Quite OK Image") format.

A file starts with a 14 byte header; the four byte signature "qoif", the
width and height as big-endian 32-bit values, the number of channels (3 or 4)
and a colorspace tag. The header is followed by a stream of opcodes, each
starting with a tag byte:

	11111110 rrrrrrrr gggggggg bbbbbbbb           RGB, alpha unchanged
	11111111 rrrrrrrr gggggggg bbbbbbbb aaaaaaaa  RGBA
	00iiiiii                                      INDEX into the color cache
	01rrggbb                                      DIFF, each channel -2..1
	10gggggg rrrrbbbb                             LUMA, green -32..31, red and blue relative to green -8..7
	11rrrrrr                                      RUN of 1..62 copies of the previous pixel, stored with a bias of -1

Every pixel produced by an opcode is stored in a 64 entry cache at
(r*3 + g*5 + b*7 + a*11) % 64. Channel arithmetic wraps modulo 256. The
stream is conventionally terminated by seven 0x00 bytes and a single 0x01.
*/
package qoi

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const (
	// Magic is the signature found at the start of every QOI file
	Magic = "qoif"

	// HeaderSize is the size in bytes of the fixed header
	HeaderSize = 14

	// DefaultMaxPixels is the limit on width*height applied when a Decoder
	// doesn't set one
	DefaultMaxPixels = 1 << 28

	cacheSize = 64

	// maxSize caps any single pixel buffer regardless of MaxPixels
	maxSize uint64 = 1 << 34
)

// Opcode tags. The 8-bit tags are matched exactly, the 2-bit tags are
// matched against the top two bits of the tag byte.
const (
	OpRGB   byte = 0xfe
	OpRGBA  byte = 0xff
	OpIndex byte = 0x00
	OpDiff  byte = 0x40
	OpLuma  byte = 0x80
	OpRun   byte = 0xc0

	opMask byte = 0xc0
)

// EndMarker is the byte sequence that terminates a QOI stream.
var EndMarker = [...]byte{0, 0, 0, 0, 0, 0, 0, 1}

var (
	// ErrBadSignature is returned when the data does not start with Magic.
	ErrBadSignature = errors.New("qoi: invalid signature")
	// ErrBadChannels is returned when the header declares a channel count
	// other than 3 or 4.
	ErrBadChannels = errors.New("qoi: invalid number of channels")
	// ErrTooLarge is returned when the output buffer for the declared
	// dimensions cannot be allocated.
	ErrTooLarge = errors.New("qoi: image too large")
	// ErrTruncated is returned when the header or an opcode needs more bytes
	// than remain in the input.
	ErrTruncated = errors.New("qoi: not enough image data")
)

// Colorspace is the opaque colorspace tag carried in the header.
type Colorspace uint8

const (
	// SRGB is sRGB with linear alpha
	SRGB Colorspace = iota
	// Linear means all channels are linear
	Linear
)

func (c Colorspace) String() string {
	switch c {
	case SRGB:
		return "sRGB"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("Colorspace(%d)", uint8(c))
	}
}

// Descriptor describes an image as declared by its header.
type Descriptor struct {
	Width      uint32
	Height     uint32
	Channels   uint8
	Colorspace Colorspace
}

// Pixels returns the number of pixels in the image.
func (d Descriptor) Pixels() uint64 {
	return uint64(d.Width) * uint64(d.Height)
}

// Size returns the number of bytes needed to hold every pixel at the given
// number of bytes per pixel. It fails with ErrTooLarge rather than return a
// size that could not be allocated.
func (d Descriptor) Size(bytesPerPixel int) (int, error) {
	limit := uint64(math.MaxInt)
	if limit > maxSize {
		limit = maxSize
	}

	n := d.Pixels()
	if bytesPerPixel <= 0 || n > limit/uint64(bytesPerPixel) {
		return 0, errors.Wrapf(ErrTooLarge, "%dx%d with %d bytes per pixel", d.Width, d.Height, bytesPerPixel)
	}
	return int(n) * bytesPerPixel, nil
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d, %d channels, %s", d.Width, d.Height, d.Channels, d.Colorspace)
}

// Pixel is a single RGBA value. It is always carried as four channels, even
// for images declaring three.
type Pixel struct {
	R, G, B, A uint8
}

func (p Pixel) hash() int {
	return (int(p.R)*3 + int(p.G)*5 + int(p.B)*7 + int(p.A)*11) % cacheSize
}

// cache is the direct-mapped color cache. Colors that hash to the same slot
// overwrite each other.
type cache [cacheSize]Pixel

func (c *cache) store(p Pixel) {
	c[p.hash()] = p
}
