package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// ParseByteOrder maps "little" or "big" to the matching encoding/binary
// order. The postings producer and reader must agree on it.
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q: %w", s, rrerrors.ErrInvalidInput)
	}
}

// PostingsStore decodes postings lists by byte offset. Reads are positioned
// (ReadAt), so one store can serve concurrent queries.
type PostingsStore struct {
	r      io.ReaderAt
	closer io.Closer
	size   int64
	name   string
	order  binary.ByteOrder
}

// OpenPostings opens the postings file at path for random access.
func OpenPostings(path string, order binary.ByteOrder) (*PostingsStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening postings file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat postings file: %w", err)
	}
	s := NewPostingsStore(f, info.Size(), path, order)
	s.closer = f
	return s, nil
}

// NewPostingsStore wraps an arbitrary ReaderAt of the given size.
func NewPostingsStore(r io.ReaderAt, size int64, name string, order binary.ByteOrder) *PostingsStore {
	if order == nil {
		order = binary.LittleEndian
	}
	return &PostingsStore{r: r, size: size, name: name, order: order}
}

// ReadPostings returns exactly count postings starting at offset, in file
// order.
func (s *PostingsStore) ReadPostings(offset uint64, count uint32) (PostingList, error) {
	if count == 0 {
		return PostingList{}, nil
	}
	if offset > math.MaxInt64 || int64(offset) >= s.size {
		return nil, s.errorf(rrerrors.ErrInvalidOffset, offset, count)
	}
	need := int64(count) * PostingSize
	if int64(offset) > s.size-need {
		return nil, s.errorf(rrerrors.ErrTruncatedPostings, offset, count)
	}
	buf := make([]byte, need)
	n, err := s.r.ReadAt(buf, int64(offset))
	if n < len(buf) {
		if err == nil || err == io.EOF {
			return nil, s.errorf(rrerrors.ErrTruncatedPostings, offset, count)
		}
		return nil, fmt.Errorf("reading postings at offset %d: %w", offset, err)
	}
	postings := make(PostingList, count)
	for i := range postings {
		rec := buf[i*PostingSize : (i+1)*PostingSize]
		postings[i] = Posting{
			DocID:    s.order.Uint32(rec[0:4]),
			TermFreq: s.order.Uint32(rec[4:8]),
		}
	}
	return postings, nil
}

func (s *PostingsStore) errorf(kind error, offset uint64, count uint32) error {
	return &rrerrors.PostingsError{
		Kind:   kind,
		File:   s.name,
		Offset: offset,
		Count:  count,
		Size:   s.size,
	}
}

// Size is the postings file length in bytes.
func (s *PostingsStore) Size() int64 {
	return s.size
}

func (s *PostingsStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
