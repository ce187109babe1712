package index

import (
	"testing"

	"github.com/bodgit/qoitool/qoi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	idx := New()
	idx.Set("dice.qoi", qoi.Descriptor{Width: 800, Height: 600, Channels: 4})
	idx.Set("kodim10.qoi", qoi.Descriptor{Width: 512, Height: 768, Channels: 3, Colorspace: qoi.Linear})
	idx.Set("DICE.QOI", qoi.Descriptor{Width: 1, Height: 1, Channels: 4})

	assert.Equal(t, 2, idx.Len())

	desc, ok := idx.Get("dice.qoi")
	require.True(t, ok)
	assert.Equal(t, qoi.Descriptor{Width: 1, Height: 1, Channels: 4}, desc)

	_, ok = idx.Get("missing.qoi")
	assert.False(t, ok)

	b, err := idx.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, 8+2*14)
	assert.Equal(t, "qidx", string(b[:4]))

	dup := New()
	require.NoError(t, dup.UnmarshalBinary(b))
	assert.Equal(t, idx.entries, dup.entries)
}

func TestUnmarshalErrors(t *testing.T) {
	idx := New()
	idx.Set("a.qoi", qoi.Descriptor{Width: 2, Height: 2, Channels: 3})
	b, err := idx.MarshalBinary()
	require.NoError(t, err)

	tables := []struct {
		name string
		b    []byte
		err  error
	}{
		{"empty", nil, errNotEnough},
		{"bad magic", append([]byte("qoif"), b[4:]...), errBadMagic},
		{"short entry", b[:len(b)-1], errNotEnough},
		{"trailing", append(append([]byte{}, b...), 0), errTooMuch},
		{"duplicate", append(append([]byte("qidx\x00\x00\x00\x02"), b[8:]...), b[8:]...), errDuplicateName},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.ErrorIs(t, New().UnmarshalBinary(table.b), table.err)
		})
	}
}
