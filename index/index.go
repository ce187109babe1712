/*
Package index implements the small sidecar index written to each directory
containing QOI images. It records the header of every image so a directory
can be listed without opening each file.

The file starts with the four byte signature "qidx" and a big-endian 32-bit
entry count. Each entry is 14 bytes; the CRC-32 of the upper-cased file name,
the width and height, the channel count and the colorspace tag. Entries are
sorted by CRC.
*/
package index

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sort"
	"strings"

	"github.com/bodgit/qoitool/qoi"
	"github.com/pkg/errors"
)

const (
	// Filename is the expected filename used when writing to disk
	Filename   = "qoi.idx"
	maxEntries = 0xffff
	magic      = "qidx"
)

var (
	errBadMagic      = errors.New("index: invalid signature")
	errNotEnough     = errors.New("index: insufficient data")
	errTooMuch       = errors.New("index: trailing data")
	errDuplicateName = errors.New("index: duplicate entry")
)

type entry struct {
	CRC        uint32
	Width      uint32
	Height     uint32
	Channels   uint8
	Colorspace uint8
}

// Index is the sidecar index object. It implements the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Index struct {
	entries map[uint32]qoi.Descriptor
}

// New returns an empty index
func New() *Index {
	return &Index{
		entries: make(map[uint32]qoi.Descriptor),
	}
}

// CRCFilename computes the key used for a given filename
func CRCFilename(filename string) uint32 {
	return crc32.ChecksumIEEE([]byte(strings.ToUpper(filename)))
}

// Len returns the number of entries in the index
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Set stores the descriptor for the given filename, replacing any existing
// entry
func (idx *Index) Set(filename string, desc qoi.Descriptor) {
	idx.entries[CRCFilename(filename)] = desc
}

// Get returns the descriptor stored for the given filename
func (idx *Index) Get(filename string) (qoi.Descriptor, bool) {
	desc, ok := idx.entries[CRCFilename(filename)]
	return desc, ok
}

// MarshalBinary encodes the index into binary form and returns the result
func (idx *Index) MarshalBinary() ([]byte, error) {
	if len(idx.entries) > maxEntries {
		return nil, errors.Errorf("index: more than %d entries", maxEntries)
	}

	keys := make([]uint32, 0, len(idx.entries))
	for k := range idx.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	b := new(bytes.Buffer)
	b.WriteString(magic)

	if err := binary.Write(b, binary.BigEndian, uint32(len(keys))); err != nil {
		return nil, err
	}

	for _, k := range keys {
		desc := idx.entries[k]
		e := entry{
			CRC:        k,
			Width:      desc.Width,
			Height:     desc.Height,
			Channels:   desc.Channels,
			Colorspace: uint8(desc.Colorspace),
		}
		if err := binary.Write(b, binary.BigEndian, &e); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

// UnmarshalBinary decodes the index from binary form
func (idx *Index) UnmarshalBinary(b []byte) error {
	r := bytes.NewReader(b)

	idx.entries = make(map[uint32]qoi.Descriptor)

	var sig [len(magic)]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return errNotEnough
	}
	if string(sig[:]) != magic {
		return errBadMagic
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return errNotEnough
	}

	for i := uint32(0); i < count; i++ {
		var e entry
		if err := binary.Read(r, binary.BigEndian, &e); err != nil {
			return errNotEnough
		}
		if _, ok := idx.entries[e.CRC]; ok {
			return errors.Wrapf(errDuplicateName, "CRC %08X", e.CRC)
		}
		idx.entries[e.CRC] = qoi.Descriptor{
			Width:      e.Width,
			Height:     e.Height,
			Channels:   e.Channels,
			Colorspace: qoi.Colorspace(e.Colorspace),
		}
	}

	if r.Len() != 0 {
		return errTooMuch
	}

	return nil
}
