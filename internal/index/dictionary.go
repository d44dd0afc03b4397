// Package index reads the on-disk inverted index: the text dictionary that
// maps terms to document frequency and postings offset, and the binary
// postings file holding fixed-width (docID, term frequency) records.
package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// Dictionary is the in-memory term lookup plus the universe of indexed
// documents. It is immutable once loaded and safe for concurrent reads.
type Dictionary struct {
	Terms  map[string]Entry
	DocIDs []uint32
	docSet *roaring.Bitmap
}

// N is the number of documents in the collection.
func (d *Dictionary) N() int {
	return len(d.DocIDs)
}

func (d *Dictionary) Lookup(term string) (Entry, bool) {
	e, ok := d.Terms[term]
	return e, ok
}

// Contains reports whether docID is a member of the indexed document set.
func (d *Dictionary) Contains(docID uint32) bool {
	return d.docSet.Contains(docID)
}

// LoadDictionary opens, parses and closes the dictionary file at path.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary file: %w", err)
	}
	defer f.Close()
	return ParseDictionary(f, path)
}

// ParseDictionary reads a dictionary stream. The first non-empty line lists
// every indexed docID; each following line is "term df offset". name is only
// used in error positions.
func ParseDictionary(r io.Reader, name string) (*Dictionary, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	dict := &Dictionary{
		Terms:  make(map[string]Entry),
		docSet: roaring.New(),
	}
	lineNo := 0
	headerSeen := false
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("reading dictionary %s: %w", name, readErr)
		}
		if line != "" {
			lineNo++
			line = strings.TrimRight(line, "\r\n")
			if line != "" {
				if !headerSeen {
					ids, err := parseHeader(line)
					if err != nil {
						err.File, err.Line = name, lineNo
						return nil, err
					}
					dict.DocIDs = ids
					dict.docSet.AddMany(ids)
					headerSeen = true
				} else if err := dict.addTermLine(line); err != nil {
					err.File, err.Line = name, lineNo
					return nil, err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
	}
	if !headerSeen {
		return nil, fmt.Errorf("dictionary %s: %w", name, rrerrors.ErrEmptyIndex)
	}
	return dict, nil
}

func (d *Dictionary) addTermLine(line string) *rrerrors.FormatError {
	fields := splitFields(line)
	if len(fields) != 3 {
		return &rrerrors.FormatError{Msg: fmt.Sprintf("expected 3 fields (term df offset), got %d", len(fields))}
	}
	term := fields[0].text
	if _, dup := d.Terms[term]; dup {
		return &rrerrors.FormatError{Column: fields[0].col, Msg: fmt.Sprintf("duplicate term %q", term)}
	}
	df, err := strconv.ParseUint(fields[1].text, 10, 32)
	if err != nil {
		return &rrerrors.FormatError{Column: fields[1].col, Msg: fmt.Sprintf("document frequency %q is not an unsigned integer", fields[1].text)}
	}
	if df == 0 {
		return &rrerrors.FormatError{Column: fields[1].col, Msg: fmt.Sprintf("term %q has zero document frequency", term)}
	}
	if df > uint64(len(d.DocIDs)) {
		return &rrerrors.FormatError{Column: fields[1].col, Msg: fmt.Sprintf("term %q document frequency %d exceeds collection size %d", term, df, len(d.DocIDs))}
	}
	offset, err := strconv.ParseUint(fields[2].text, 10, 64)
	if err != nil {
		return &rrerrors.FormatError{Column: fields[2].col, Msg: fmt.Sprintf("postings offset %q is not an unsigned integer", fields[2].text)}
	}
	d.Terms[term] = Entry{DocFreq: uint32(df), Offset: offset}
	return nil
}

type field struct {
	text string
	col  int
}

func splitFields(line string) []field {
	var out []field
	start := -1
	for i := 0; i <= len(line); i++ {
		space := i == len(line) || line[i] == ' ' || line[i] == '\t'
		switch {
		case space && start >= 0:
			out = append(out, field{text: line[start:i], col: start + 1})
			start = -1
		case !space && start < 0:
			start = i
		}
	}
	return out
}

// parseHeader decodes "<label>: <id>,<id>,...<terminator>". The label runs to
// the first colon; a leading '[' and one trailing non-digit terminator are
// accepted. IDs must be strictly ascending.
func parseHeader(line string) ([]uint32, *rrerrors.FormatError) {
	pos := 0
	if i := strings.IndexByte(line, ':'); i >= 0 {
		pos = i + 1
	}
	skip := func() {
		for pos < len(line) && line[pos] == ' ' {
			pos++
		}
	}
	skip()
	if pos < len(line) && line[pos] == '[' {
		pos++
	}
	var ids []uint32
	for {
		skip()
		start := pos
		for pos < len(line) && line[pos] >= '0' && line[pos] <= '9' {
			pos++
		}
		if start == pos {
			if pos >= len(line) {
				return nil, &rrerrors.FormatError{Column: pos + 1, Msg: "expected document id, found end of line"}
			}
			return nil, &rrerrors.FormatError{Column: pos + 1, Msg: fmt.Sprintf("expected document id, found %q", line[pos])}
		}
		v, err := strconv.ParseUint(line[start:pos], 10, 32)
		if err != nil {
			return nil, &rrerrors.FormatError{Column: start + 1, Msg: fmt.Sprintf("document id %q out of range", line[start:pos])}
		}
		id := uint32(v)
		if n := len(ids); n > 0 && id <= ids[n-1] {
			return nil, &rrerrors.FormatError{Column: start + 1, Msg: fmt.Sprintf("document id %d not in ascending order after %d", id, ids[n-1])}
		}
		ids = append(ids, id)
		skip()
		if pos >= len(line) {
			return ids, nil
		}
		if line[pos] == ',' {
			pos++
			skip()
			if pos >= len(line) {
				return ids, nil
			}
			continue
		}
		if pos == len(line)-1 {
			return ids, nil
		}
		return nil, &rrerrors.FormatError{Column: pos + 1, Msg: fmt.Sprintf("unexpected %q in document id list", line[pos])}
	}
}
