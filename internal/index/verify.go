package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

const maxViolations = 1000

// LengthLookup reports whether a document has a vector length entry.
type LengthLookup interface {
	Has(docID uint32) bool
}

type Violation struct {
	Term   string
	Offset uint64
	Msg    string
}

func (v Violation) String() string {
	if v.Term == "" {
		return v.Msg
	}
	return fmt.Sprintf("term %q at offset %d: %s", v.Term, v.Offset, v.Msg)
}

// Report is the outcome of an index conformance check.
type Report struct {
	Terms      int
	Postings   int
	Documents  int
	Violations []Violation
	Dropped    int
}

func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

func (r *Report) add(term string, offset uint64, format string, args ...any) {
	if len(r.Violations) >= maxViolations {
		r.Dropped++
		return
	}
	r.Violations = append(r.Violations, Violation{Term: term, Offset: offset, Msg: fmt.Sprintf(format, args...)})
}

// Verify checks the producer contract the query path trusts without
// checking: each term's document frequency matches the postings stored at its
// offset, the lists tile the postings file, every posting docID is indexed and
// carries a term frequency of at least one, and (when lengths is non-nil) every
// posted document has a vector length.
func Verify(dict *Dictionary, store *PostingsStore, lengths LengthLookup) *Report {
	report := &Report{Terms: len(dict.Terms), Documents: dict.N()}

	type span struct {
		term  string
		entry Entry
	}
	spans := make([]span, 0, len(dict.Terms))
	for term, e := range dict.Terms {
		spans = append(spans, span{term: term, entry: e})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].entry.Offset != spans[j].entry.Offset {
			return spans[i].entry.Offset < spans[j].entry.Offset
		}
		return spans[i].term < spans[j].term
	})

	posted := roaring.New()
	var expected uint64
	for i, sp := range spans {
		if i == 0 && sp.entry.Offset != 0 {
			report.add("", 0, "postings file starts with %d unreferenced bytes", sp.entry.Offset)
		}
		if i > 0 {
			prev := spans[i-1]
			switch {
			case sp.entry.Offset > expected:
				report.add(prev.term, prev.entry.Offset, "%d unreferenced bytes follow this list; document frequency %d may be too small",
					sp.entry.Offset-expected, prev.entry.DocFreq)
			case sp.entry.Offset < expected:
				report.add(prev.term, prev.entry.Offset, "list overruns the next list (term %q) by %d bytes; document frequency %d may be too large",
					sp.term, expected-sp.entry.Offset, prev.entry.DocFreq)
			}
		}
		expected = sp.entry.Offset + uint64(sp.entry.DocFreq)*PostingSize

		postings, err := store.ReadPostings(sp.entry.Offset, sp.entry.DocFreq)
		if err != nil {
			report.add(sp.term, sp.entry.Offset, "%v", err)
			continue
		}
		report.Postings += len(postings)
		seen := make(map[uint32]struct{}, len(postings))
		for _, p := range postings {
			if _, dup := seen[p.DocID]; dup {
				report.add(sp.term, sp.entry.Offset, "doc %d listed twice", p.DocID)
			}
			seen[p.DocID] = struct{}{}
			if !dict.Contains(p.DocID) {
				report.add(sp.term, sp.entry.Offset, "doc %d is not in the indexed document set", p.DocID)
			}
			if p.TermFreq == 0 {
				report.add(sp.term, sp.entry.Offset, "doc %d has zero term frequency", p.DocID)
			}
			posted.Add(p.DocID)
		}
	}
	if len(spans) > 0 && int64(expected) != store.Size() {
		last := spans[len(spans)-1]
		report.add(last.term, last.entry.Offset, "last list ends at byte %d but postings file is %d bytes", expected, store.Size())
	}

	if lengths != nil {
		it := posted.Iterator()
		for it.HasNext() {
			docID := it.Next()
			if !lengths.Has(docID) {
				report.add("", 0, "doc %d has postings but no vector length", docID)
			}
		}
	}
	return report
}
