// Package tokenizer turns free-text queries into ordered term frequencies.
// It NFC-normalises and case-folds input, splits it into word tokens,
// removes English stopwords, and stems each remaining token with the
// configured stemmer.
package tokenizer

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	StemmerPorter   = "porter"
	StemmerSnowball = "snowball"
	StemmerNone     = "none"
)

// clitics are split off the end of a word as separate tokens, so "China's"
// yields "china" and "'s".
var clitics = []string{"n't", "'s", "'re", "'ve", "'ll", "'d", "'m"}

// TermFreq is a query term and the number of times it occurred.
type TermFreq struct {
	Term  string
	Count int
}

// TermFreqs lists query terms in order of first occurrence.
type TermFreqs []TermFreq

// Terms returns the distinct terms in order of first occurrence.
func (tf TermFreqs) Terms() []string {
	out := make([]string, len(tf))
	for i, t := range tf {
		out[i] = t.Term
	}
	return out
}

type Options struct {
	IgnoreStopwords bool
	IgnoreSingles   bool
	CaseFold        bool
	Stemmer         string
}

// DefaultOptions matches the behaviour the index producer used.
func DefaultOptions() Options {
	return Options{
		IgnoreStopwords: true,
		IgnoreSingles:   true,
		CaseFold:        true,
		Stemmer:         StemmerPorter,
	}
}

type Extractor struct {
	opts   Options
	stem   func(string) string
	logger *slog.Logger
}

func New(opts Options) (*Extractor, error) {
	e := &Extractor{
		opts:   opts,
		logger: slog.Default().With("component", "tokenizer"),
	}
	switch opts.Stemmer {
	case StemmerPorter, "":
		e.stem = e.porter
	case StemmerSnowball:
		e.stem = e.snowball
	case StemmerNone:
		e.stem = func(s string) string { return s }
	default:
		return nil, fmt.Errorf("unknown stemmer %q", opts.Stemmer)
	}
	return e, nil
}

// Extract returns the term frequencies of text. The same text always
// yields the same terms in the same order. It is safe for concurrent use.
func (e *Extractor) Extract(text string) TermFreqs {
	var out TermFreqs
	pos := make(map[string]int)
	fold := cases.Fold()
	for _, tok := range Tokenize(norm.NFC.String(text)) {
		term, ok := e.normalize(fold, tok)
		if !ok {
			continue
		}
		if i, seen := pos[term]; seen {
			out[i].Count++
			continue
		}
		pos[term] = len(out)
		out = append(out, TermFreq{Term: term, Count: 1})
	}
	return out
}

func (e *Extractor) normalize(fold cases.Caser, tok string) (string, bool) {
	folded := fold.String(tok)
	term := tok
	if e.opts.CaseFold {
		term = folded
	}
	if e.opts.IgnoreStopwords && IsStopword(folded) {
		return "", false
	}
	term = e.stem(term)
	term = strings.TrimSuffix(term, "'")
	if term == "" {
		return "", false
	}
	if e.opts.IgnoreSingles && utf8.RuneCountInString(term) == 1 {
		return "", false
	}
	return term, true
}

func (e *Extractor) porter(word string) (stemmed string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("recovered from panic while stemming", "token", word, "panic", r)
			stemmed = word
		}
	}()
	return string(porterstemmer.StemWithoutLowerCasing([]rune(word)))
}

func (e *Extractor) snowball(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		e.logger.Warn("snowball stemming failed", "token", word, "error", err)
		return word
	}
	return stemmed
}

// Tokenize splits text into word tokens: runs of letters, digits and
// combining marks, with apostrophes allowed inside a word. A hyphen or
// period between word characters stays in the word ("well-known", "3.5",
// "U.S"), as does a comma between digits. A dotted abbreviation keeps its
// final period unless it ends the text, so "U.S. policy" yields "U.S.".
// Leading and trailing
// apostrophes are dropped and clitics become their own tokens.
func Tokenize(text string) []string {
	runes := []rune(text)
	var tokens []string
	var b strings.Builder
	var last rune
	var dotted bool
	flush := func() {
		word := strings.Trim(b.String(), "'")
		b.Reset()
		last, dotted = 0, false
		if word == "" {
			return
		}
		tokens = append(tokens, splitClitic(word)...)
	}
	for i, r := range runes {
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case r == '\'' || r == '’':
			b.WriteByte('\'')
			last = '\''
		case isWordRune(r):
			b.WriteRune(r)
			last = r
		case r == '-' && isWordRune(last) && isWordRune(next):
			b.WriteRune(r)
			last = r
		case r == ',' && unicode.IsDigit(last) && unicode.IsDigit(next):
			b.WriteRune(r)
			last = r
		case r == '.' && isWordRune(last) && isWordRune(next):
			b.WriteRune(r)
			last = r
			dotted = true
		case r == '.' && dotted && unicode.IsLetter(last) && hasWord(runes[i+1:]):
			b.WriteRune(r)
			flush()
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func hasWord(rs []rune) bool {
	return slices.ContainsFunc(rs, isWordRune)
}

func splitClitic(word string) []string {
	for _, c := range clitics {
		cut := len(word) - len(c)
		if cut > 0 && strings.EqualFold(word[cut:], c) {
			return []string{word[:cut], word[cut:]}
		}
	}
	return []string{word}
}
