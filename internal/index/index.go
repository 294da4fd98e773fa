// Package index implements the in-memory inverted index. Two maps are kept
// in lockstep behind a single mutation API: term → (doc id → term frequency)
// for retrieval, and doc id → (term → term frequency) for removal and
// duplicate detection. The maps can never drift because Add and Remove are
// the only writers and always touch both.
package index

// Inverted is the dual-map inverted index. The zero value is not usable;
// construct with New.
type Inverted struct {
	termDocs map[string]map[int]float64
	docTerms map[int]map[string]float64
}

func New() *Inverted {
	return &Inverted{
		termDocs: make(map[string]map[int]float64),
		docTerms: make(map[int]map[string]float64),
	}
}

// Add indexes the retained words of a document. Term frequency is
// accumulated additively as 1/len(words) per occurrence, so repeated words
// contribute proportionally. A document with no retained words leaves the
// index untouched.
func (x *Inverted) Add(docID int, words []string) {
	if len(words) == 0 {
		return
	}
	invWordCount := 1.0 / float64(len(words))
	freqs := x.docTerms[docID]
	if freqs == nil {
		freqs = make(map[string]float64, len(words))
		x.docTerms[docID] = freqs
	}
	for _, word := range words {
		docs := x.termDocs[word]
		if docs == nil {
			docs = make(map[int]float64)
			x.termDocs[word] = docs
		}
		docs[docID] += invWordCount
		freqs[word] += invWordCount
	}
}

// Remove drops every trace of docID from both maps. Terms left with no
// referencing documents are deleted so they cannot affect document
// frequencies. Removing an unknown id is a no-op.
func (x *Inverted) Remove(docID int) {
	for word := range x.docTerms[docID] {
		docs := x.termDocs[word]
		delete(docs, docID)
		if len(docs) == 0 {
			delete(x.termDocs, word)
		}
	}
	delete(x.docTerms, docID)
}

// Postings returns the doc id → term frequency map for a term, or nil if no
// document contains it. Callers must not modify the returned map.
func (x *Inverted) Postings(term string) map[int]float64 {
	return x.termDocs[term]
}

// WordFrequencies returns the term → frequency map for a document; the
// result is empty for an unknown id. Callers must not modify the returned
// map.
func (x *Inverted) WordFrequencies(docID int) map[string]float64 {
	return x.docTerms[docID]
}

// DocumentFrequency reports how many documents contain term.
func (x *Inverted) DocumentFrequency(term string) int {
	return len(x.termDocs[term])
}
