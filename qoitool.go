/*
Package qoitool is a library for inspecting, converting and cataloguing
images stored in the QOI format.
*/
package qoitool

import (
	"io"
	"os"

	"github.com/bodgit/qoitool/qoi"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Tool carries the configuration, cache and logger shared by every
// operation.
type Tool struct {
	cfg    Config
	db     *ImageDB
	logger zerolog.Logger

	// sha1 of the encoded file to its descriptor, for files already
	// handled by this Tool
	seen cmap.ConcurrentMap[string, qoi.Descriptor]
}

// New returns a Tool. db may be nil in which case nothing is cached between
// runs.
func New(cfg Config, db *ImageDB, logger zerolog.Logger) *Tool {
	return &Tool{
		cfg:    cfg,
		db:     db,
		logger: logger,
		seen:   cmap.New[qoi.Descriptor](),
	}
}

// Open returns a Tool backed by the image database at file. An empty file
// name disables the database.
func Open(cfg Config, file string, logger zerolog.Logger) (*Tool, error) {
	if file == "" {
		return New(cfg, nil, logger), nil
	}

	db, err := NewImageDB(file)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %s", file)
	}

	return New(cfg, db, logger), nil
}

// Close releases the image database, if any
func (t *Tool) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

func (t *Tool) decoder() qoi.Decoder {
	return qoi.Decoder{
		MaxPixels: t.cfg.MaxPixels,
	}
}

// Info returns the header of the QOI image in file, reading nothing past it.
func (t *Tool) Info(file string) (qoi.Descriptor, error) {
	f, err := os.Open(file)
	if err != nil {
		return qoi.Descriptor{}, err
	}
	defer f.Close()

	var b [qoi.HeaderSize]byte
	n, err := io.ReadFull(f, b[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return qoi.Descriptor{}, errors.Wrapf(err, "reading %s", file)
	}

	desc, err := qoi.DecodeHeader(b[:n])
	if err != nil {
		return desc, errors.Wrap(err, file)
	}

	return desc, nil
}

func (t *Tool) readFile(file string) ([]byte, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}

	if !qoi.HasEndMarker(b) {
		t.logger.Warn().Str("file", file).Msg("missing end marker")
	}

	return b, nil
}

// DecodeFile decodes the QOI image in file, returning the packed pixels and
// the image descriptor.
func (t *Tool) DecodeFile(file string) ([]byte, qoi.Descriptor, error) {
	b, err := t.readFile(file)
	if err != nil {
		return nil, qoi.Descriptor{}, err
	}

	pixels, desc, err := t.decoder().Decode(b)
	if err != nil {
		return nil, desc, errors.Wrap(err, file)
	}

	t.logger.Debug().Str("file", file).Stringer("descriptor", desc).Msg("decoded")

	return pixels, desc, nil
}
