// Package indextest writes small synthetic index files (dictionary, postings
// and vector lengths) in the on-disk format the search engine reads. It is
// intended for tests and benchmarks.
package indextest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
)

// HeaderLabel is the label the original producer writes before the docID list.
const HeaderLabel = "all indexed docIDs: "

type Term struct {
	Term     string
	Postings index.PostingList
}

// Fixture describes an index. When DocIDs is nil the set of posted docIDs is
// used. When Lengths is nil each document's length is the sum of squared
// document-side weights (1 + log10 tf) over its postings.
type Fixture struct {
	DocIDs    []uint32
	Terms     []Term
	Lengths   map[uint32]float64
	ByteOrder binary.ByteOrder
}

type Paths struct {
	Dir        string
	Dictionary string
	Postings   string
	Lengths    string
}

// Write lays the fixture out under dir. Terms are written in the given order,
// each postings list directly after the previous one.
func Write(dir string, f Fixture) (Paths, error) {
	paths := Paths{
		Dir:        dir,
		Dictionary: filepath.Join(dir, "dictionary.txt"),
		Postings:   filepath.Join(dir, "postings.txt"),
		Lengths:    filepath.Join(dir, "vector_squares_sum"),
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return paths, fmt.Errorf("creating fixture directory: %w", err)
	}
	order := f.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	var postings []byte
	var dict strings.Builder
	docIDs := f.DocIDs
	if docIDs == nil {
		docIDs = postedDocIDs(f.Terms)
	}
	dict.WriteString(HeaderLabel)
	for _, id := range docIDs {
		dict.WriteString(strconv.FormatUint(uint64(id), 10))
		dict.WriteByte(',')
	}
	dict.WriteByte('\n')
	for _, t := range f.Terms {
		fmt.Fprintf(&dict, "%s %d %d\n", t.Term, len(t.Postings), len(postings))
		postings = AppendPostings(postings, order, t.Postings)
	}

	lengths := f.Lengths
	if lengths == nil {
		lengths = DocumentLengths(f.Terms)
	}
	if err := writeAtomic(paths.Dictionary, []byte(dict.String())); err != nil {
		return paths, err
	}
	if err := writeAtomic(paths.Postings, postings); err != nil {
		return paths, err
	}
	if err := writeAtomic(paths.Lengths, EncodeLengths(lengths)); err != nil {
		return paths, err
	}
	return paths, nil
}

// MustWrite writes the fixture into a fresh temporary directory.
func MustWrite(tb testing.TB, f Fixture) Paths {
	tb.Helper()
	paths, err := Write(tb.TempDir(), f)
	if err != nil {
		tb.Fatalf("writing index fixture: %v", err)
	}
	return paths
}

// AppendPostings encodes postings as consecutive 8-byte records.
func AppendPostings(dst []byte, order binary.ByteOrder, postings index.PostingList) []byte {
	var rec [index.PostingSize]byte
	for _, p := range postings {
		order.PutUint32(rec[0:4], p.DocID)
		order.PutUint32(rec[4:8], p.TermFreq)
		dst = append(dst, rec[:]...)
	}
	return dst
}

// DocumentLengths sums (1 + log10 tf)^2 per document.
func DocumentLengths(terms []Term) map[uint32]float64 {
	out := make(map[uint32]float64)
	for _, t := range terms {
		for _, p := range t.Postings {
			w := 1 + math.Log10(float64(p.TermFreq))
			out[p.DocID] += w * w
		}
	}
	return out
}

// EncodeLengths renders the vector length side-file, one "docID value" pair
// per line in ascending docID order.
func EncodeLengths(lengths map[uint32]float64) []byte {
	ids := make([]uint32, 0, len(lengths))
	for id := range lengths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d %s\n", id, strconv.FormatFloat(lengths[id], 'g', -1, 64))
	}
	return []byte(b.String())
}

func postedDocIDs(terms []Term) []uint32 {
	seen := make(map[uint32]struct{})
	for _, t := range terms {
		for _, p := range t.Postings {
			seen[p.DocID] = struct{}{}
		}
	}
	ids := make([]uint32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
