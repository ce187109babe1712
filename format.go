package qoitool

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnknownFormat is returned when an output file name does not map to a
// supported image format.
var ErrUnknownFormat = errors.New("unknown output format")

type format int

const (
	formatPNG format = iota + 1
	formatGIF
	formatJPEG
	formatBMP
	formatTIFF
)

var formatExtensions = map[string]format{
	".png":  formatPNG,
	".gif":  formatGIF,
	".jpg":  formatJPEG,
	".jpeg": formatJPEG,
	".bmp":  formatBMP,
	".tif":  formatTIFF,
	".tiff": formatTIFF,
}

func formatFromFilename(file string) (format, error) {
	ext := strings.ToLower(filepath.Ext(file))
	if f, ok := formatExtensions[ext]; ok {
		return f, nil
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "%q", ext)
}

func (f format) encode(w io.Writer, m image.Image) error {
	switch f {
	case formatPNG:
		return png.Encode(w, m)
	case formatGIF:
		return gif.Encode(w, m, nil)
	case formatJPEG:
		return jpeg.Encode(w, m, &jpeg.Options{Quality: 90})
	case formatBMP:
		return bmp.Encode(w, m)
	case formatTIFF:
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	default:
		return ErrUnknownFormat
	}
}
