package benchmark

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/tokenizer"
)

// BenchmarkRankPipeline measures scoring, normalisation and top-k selection
// for a single frequent term over growing collections.
func BenchmarkRankPipeline(b *testing.B) {
	for _, n := range []int{1000, 10000, 100000} {
		s := openSession(b, n)
		ix := s.Index()
		terms := tokenizer.TermFreqs{{Term: "distribut", Count: 1}, {Term: "index", Count: 2}}
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				acc, _, err := ranker.Score(ix.Dictionary, ix.Postings, terms)
				if err != nil {
					b.Fatal(err)
				}
				docs, err := ranker.Normalize(acc, ix.Lengths)
				if err != nil {
					b.Fatal(err)
				}
				_ = ranker.TopK(docs, ranker.TopLimit)
			}
		})
	}
}

func BenchmarkSearch(b *testing.B) {
	queries := map[string]string{
		"single":    "searching",
		"multi":     "distributed search index ranking",
		"stopwords": "the ranking of the documents in the index",
		"oov":       "quokka wombat searching",
	}
	s := openSession(b, 10000)
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := s.Search(context.Background(), q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	s := openSession(b, 10000)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.Search(context.Background(), "distributed caching of vector lengths"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkRunBatch compares sequential and concurrent batch evaluation.
func BenchmarkRunBatch(b *testing.B) {
	s := openSession(b, 10000)
	var sb strings.Builder
	for i := range 200 {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(vocabulary[i%len(vocabulary)] + " " + vocabulary[(i*7)%len(vocabulary)])
	}
	input := sb.String()

	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if err := searcher.RunBatch(context.Background(), s, strings.NewReader(input), io.Discard, workers); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
