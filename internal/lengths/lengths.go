// Package lengths holds the vector length table: for every document, the sum
// of squared weights of its full term vector, used for cosine normalisation.
// The table is loaded once and read-only afterwards.
package lengths

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

type Table struct {
	sums map[uint32]float64
}

func New(sums map[uint32]float64) *Table {
	if sums == nil {
		sums = make(map[uint32]float64)
	}
	return &Table{sums: sums}
}

// Get returns the sum of squared weights for docID.
func (t *Table) Get(docID uint32) (float64, bool) {
	v, ok := t.sums[docID]
	return v, ok
}

func (t *Table) Has(docID uint32) bool {
	_, ok := t.sums[docID]
	return ok
}

func (t *Table) Len() int {
	return len(t.sums)
}

// LoadFile reads the side-file at path. Plain text, zstd and LZ4 frames are
// accepted; the encoding is detected from the leading magic bytes.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector length file: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse decodes "docID value" lines. Blank lines and lines starting with '#'
// are skipped.
func Parse(r io.Reader, name string) (*Table, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(4)
	var src io.Reader = br
	switch {
	case bytes.Equal(magic, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream %s: %w", name, err)
		}
		defer dec.Close()
		src = dec
	case bytes.Equal(magic, lz4Magic):
		src = lz4.NewReader(br)
	}

	sums := make(map[uint32]float64)
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, &rrerrors.FormatError{File: name, Line: lineNo, Msg: fmt.Sprintf("expected 2 fields (docID value), got %d", len(fields))}
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, &rrerrors.FormatError{File: name, Line: lineNo, Column: 1, Msg: fmt.Sprintf("document id %q is not an unsigned integer", fields[0])}
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &rrerrors.FormatError{File: name, Line: lineNo, Msg: fmt.Sprintf("vector length %q is not a finite non-negative number", fields[1])}
		}
		if _, dup := sums[uint32(id)]; dup {
			return nil, &rrerrors.FormatError{File: name, Line: lineNo, Column: 1, Msg: fmt.Sprintf("duplicate document id %d", id)}
		}
		sums[uint32(id)] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading vector lengths %s: %w", name, err)
	}
	return New(sums), nil
}
