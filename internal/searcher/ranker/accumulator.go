package ranker

// Accumulator sums partial scores per document and remembers the order in
// which documents were first seen. It is owned by a single query.
type Accumulator struct {
	docs []ScoredDoc
	pos  map[uint32]int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{pos: make(map[uint32]int)}
}

func (a *Accumulator) Add(docID uint32, w float64) {
	if i, ok := a.pos[docID]; ok {
		a.docs[i].Score += w
		return
	}
	a.pos[docID] = len(a.docs)
	a.docs = append(a.docs, ScoredDoc{DocID: docID, Score: w})
}

func (a *Accumulator) Get(docID uint32) (float64, bool) {
	i, ok := a.pos[docID]
	if !ok {
		return 0, false
	}
	return a.docs[i].Score, true
}

func (a *Accumulator) Len() int {
	return len(a.docs)
}

// Docs returns a copy of the accumulated scores in first-seen order.
func (a *Accumulator) Docs() []ScoredDoc {
	out := make([]ScoredDoc, len(a.docs))
	copy(out, a.docs)
	return out
}
