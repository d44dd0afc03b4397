// Package benchmark contains Go benchmarks for index loading, term
// extraction, scoring and batch evaluation, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indextest"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
)

var vocabulary = []string{
	"distribut", "search", "index", "queri", "rank", "cach", "shard",
	"token", "stem", "postings", "vector", "cosin", "weight", "document",
	"term", "frequenc", "invers", "length", "normal", "retriev",
}

// syntheticIndex posts term i in every document whose ID is divisible by
// i+1, so frequent and rare terms are both present.
func syntheticIndex(numDocs int) indextest.Fixture {
	docIDs := make([]uint32, numDocs)
	for i := range docIDs {
		docIDs[i] = uint32(i + 1)
	}
	terms := make([]indextest.Term, 0, len(vocabulary))
	for i, word := range vocabulary {
		var pl index.PostingList
		for _, id := range docIDs {
			if int(id)%(i+1) == 0 {
				pl = append(pl, index.Posting{DocID: id, TermFreq: uint32(int(id)%7 + 1)})
			}
		}
		terms = append(terms, indextest.Term{Term: word, Postings: pl})
	}
	return indextest.Fixture{DocIDs: docIDs, Terms: terms}
}

func openSession(b *testing.B, numDocs int) *searcher.Session {
	b.Helper()
	paths := indextest.MustWrite(b, syntheticIndex(numDocs))
	cfg := config.Default()
	cfg.Index.DictionaryPath = paths.Dictionary
	cfg.Index.PostingsPath = paths.Postings
	cfg.Index.LengthsPath = paths.Lengths
	s, err := searcher.Open(context.Background(), cfg)
	if err != nil {
		b.Fatalf("opening session: %v", err)
	}
	b.Cleanup(func() { s.Close() })
	return s
}

func sizeName(n int) string {
	return fmt.Sprintf("docs_%d", n)
}
