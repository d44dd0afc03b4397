package index_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indextest"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func newStore(order binary.ByteOrder, lists ...index.PostingList) *index.PostingsStore {
	var data []byte
	for _, l := range lists {
		data = indextest.AppendPostings(data, order, l)
	}
	return index.NewPostingsStore(bytes.NewReader(data), int64(len(data)), "postings", order)
}

func TestReadPostingsRandomAccess(t *testing.T) {
	first := index.PostingList{{DocID: 3, TermFreq: 2}, {DocID: 7, TermFreq: 1}}
	second := index.PostingList{{DocID: 1, TermFreq: 9}}
	third := index.PostingList{{DocID: 2, TermFreq: 1}, {DocID: 5, TermFreq: 3}, {DocID: 70000, TermFreq: 65536}}
	store := newStore(binary.LittleEndian, first, second, third)
	assert.EqualValues(t, 48, store.Size())

	got, err := store.ReadPostings(24, 3)
	require.NoError(t, err)
	assert.Equal(t, third, got)

	got, err = store.ReadPostings(0, 2)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = store.ReadPostings(16, 1)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	got, err = store.ReadPostings(0, 1)
	require.NoError(t, err)
	assert.Equal(t, first[:1], got)
}

func TestReadPostingsByteOrder(t *testing.T) {
	list := index.PostingList{{DocID: 0x01020304, TermFreq: 5}}
	big := newStore(binary.BigEndian, list)
	got, err := big.ReadPostings(0, 1)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	var data []byte
	data = indextest.AppendPostings(data, binary.BigEndian, list)
	misread := index.NewPostingsStore(bytes.NewReader(data), int64(len(data)), "postings", binary.LittleEndian)
	got, err = misread.ReadPostings(0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), got[0].DocID)
}

func TestReadPostingsErrors(t *testing.T) {
	store := newStore(binary.LittleEndian, index.PostingList{{DocID: 1, TermFreq: 1}, {DocID: 2, TermFreq: 1}})

	_, err := store.ReadPostings(16, 1)
	assert.ErrorIs(t, err, rrerrors.ErrInvalidOffset)

	_, err = store.ReadPostings(1<<40, 1)
	assert.ErrorIs(t, err, rrerrors.ErrInvalidOffset)

	_, err = store.ReadPostings(8, 2)
	assert.ErrorIs(t, err, rrerrors.ErrTruncatedPostings)
	var pe *rrerrors.PostingsError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, uint64(8), pe.Offset)
	assert.Equal(t, uint32(2), pe.Count)
	assert.Equal(t, "postings", pe.File)
	assert.True(t, rrerrors.IsTermScoped(err))

	_, err = store.ReadPostings(0, 3)
	assert.ErrorIs(t, err, rrerrors.ErrTruncatedPostings)

	got, err := store.ReadPostings(999, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type shortReader struct{ data []byte }

func (r shortReader) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, r.data[off:len(r.data)/2])
	return n, nil
}

func TestReadPostingsShortRead(t *testing.T) {
	var data []byte
	data = indextest.AppendPostings(data, binary.LittleEndian, index.PostingList{{DocID: 1, TermFreq: 1}, {DocID: 2, TermFreq: 1}})
	store := index.NewPostingsStore(shortReader{data: data}, int64(len(data)), "postings", nil)
	_, err := store.ReadPostings(0, 2)
	assert.ErrorIs(t, err, rrerrors.ErrTruncatedPostings)
}

func TestReadPostingsConcurrent(t *testing.T) {
	lists := make([]index.PostingList, 50)
	offsets := make([]uint64, 50)
	var off uint64
	for i := range lists {
		for j := 0; j <= i%7; j++ {
			lists[i] = append(lists[i], index.Posting{DocID: uint32(i*10 + j), TermFreq: uint32(j + 1)})
		}
		offsets[i] = off
		off += uint64(len(lists[i])) * index.PostingSize
	}
	store := newStore(binary.LittleEndian, lists...)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := 0; k < 200; k++ {
				i := (k*7 + w*13) % len(lists)
				got, err := store.ReadPostings(offsets[i], uint32(len(lists[i])))
				if assert.NoError(t, err) {
					assert.Equal(t, lists[i], got)
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestOpenPostings(t *testing.T) {
	paths := indextest.MustWrite(t, indextest.Fixture{
		Terms: []indextest.Term{{Term: "cat", Postings: index.PostingList{{DocID: 4, TermFreq: 1}}}},
	})
	store, err := index.OpenPostings(paths.Postings, binary.LittleEndian)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.ReadPostings(0, 1)
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: 4, TermFreq: 1}}, got)

	_, err = index.OpenPostings(paths.Dir+"/missing", binary.LittleEndian)
	assert.Error(t, err)
}

func TestParseByteOrder(t *testing.T) {
	o, err := index.ParseByteOrder("little")
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian, o)
	o, err = index.ParseByteOrder("BIG")
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, o)
	_, err = index.ParseByteOrder("native")
	assert.ErrorIs(t, err, rrerrors.ErrInvalidInput)
}
