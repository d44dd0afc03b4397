// Package ranker scores documents against a query with TF-IDF weights,
// cosine-normalises the accumulated scores and selects the top results.
package ranker

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/tokenizer"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// TopLimit is the number of results returned when no limit is given.
const TopLimit = 10

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Lexicon resolves terms to their dictionary entries.
type Lexicon interface {
	Lookup(term string) (index.Entry, bool)
	N() int
}

type PostingsReader interface {
	ReadPostings(offset uint64, count uint32) (index.PostingList, error)
}

// LengthSource returns the sum of squared weights of a document vector.
type LengthSource interface {
	Get(docID uint32) (float64, bool)
}

// SkippedTerm is a query term whose postings could not be read.
type SkippedTerm struct {
	Term string
	Err  error
}

// QueryWeight is the weight of a term occurring tf times in a query, in a
// collection of n documents of which df contain the term.
func QueryWeight(tf, n int, df uint32) float64 {
	return (1 + math.Log10(float64(tf))) * math.Log10(float64(n)/float64(df))
}

// DocWeight is the weight of a term occurring tf times in a document. It
// carries no IDF factor.
func DocWeight(tf uint32) float64 {
	return 1 + math.Log10(float64(tf))
}

// Score accumulates w_tq * w_td over every query term found in lex, in query
// order, and over each term's postings in file order. Terms missing from lex
// are ignored. Terms whose postings are truncated or point outside the
// postings file are returned as skipped; any other read error aborts.
func Score(lex Lexicon, postings PostingsReader, terms tokenizer.TermFreqs) (*Accumulator, []SkippedTerm, error) {
	acc := NewAccumulator()
	var skipped []SkippedTerm
	n := lex.N()
	for _, tf := range terms {
		entry, ok := lex.Lookup(tf.Term)
		if !ok {
			continue
		}
		list, err := postings.ReadPostings(entry.Offset, entry.DocFreq)
		if err != nil {
			if rrerrors.IsTermScoped(err) {
				skipped = append(skipped, SkippedTerm{Term: tf.Term, Err: err})
				continue
			}
			return nil, skipped, fmt.Errorf("reading postings for %q: %w", tf.Term, err)
		}
		wtq := QueryWeight(tf.Count, n, entry.DocFreq)
		for _, p := range list {
			acc.Add(p.DocID, wtq*DocWeight(p.TermFreq))
		}
	}
	return acc, skipped, nil
}

// Normalize divides every accumulated score by the Euclidean length of its
// document vector. A document with a zero length scores zero. A document
// with no length at all is an index consistency error.
func Normalize(acc *Accumulator, lengths LengthSource) ([]ScoredDoc, error) {
	docs := acc.Docs()
	for i := range docs {
		sum, ok := lengths.Get(docs[i].DocID)
		if !ok {
			return nil, &rrerrors.MissingVectorLengthError{DocID: docs[i].DocID}
		}
		if sum == 0 {
			docs[i].Score = 0
			continue
		}
		docs[i].Score /= math.Sqrt(sum)
	}
	return docs, nil
}

// TopK sorts docs by descending score and returns at most limit of them,
// dropping documents that scored zero. Equal scores keep their input order.
// A limit below one selects TopLimit results. docs is sorted in place.
func TopK(docs []ScoredDoc, limit int) []ScoredDoc {
	if limit < 1 {
		limit = TopLimit
	}
	docs = slices.DeleteFunc(docs, func(d ScoredDoc) bool { return d.Score <= 0 })
	slices.SortStableFunc(docs, func(a, b ScoredDoc) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
