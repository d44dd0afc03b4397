package index

// PostingSize is the width in bytes of one encoded posting: a docID and a
// raw term frequency, each an unsigned 32-bit integer.
const PostingSize = 8

type Posting struct {
	DocID    uint32
	TermFreq uint32
}

type PostingList []Posting

// Entry is the dictionary record for one term.
type Entry struct {
	DocFreq uint32
	Offset  uint64
}
