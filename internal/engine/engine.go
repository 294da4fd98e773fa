// Package engine implements the search server facade: document ingestion
// with stop-word filtering, TF-IDF ranked retrieval with minus-word
// exclusion, per-document matching, and removal. A Server owns its index and
// document store exclusively and provides no internal locking; callers that
// share one instance across goroutines must serialize access themselves.
package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/RKGekk/searchserver/internal/docstore"
	"github.com/RKGekk/searchserver/internal/index"
	"github.com/RKGekk/searchserver/internal/tokenizer"
	apperrors "github.com/RKGekk/searchserver/pkg/errors"
)

// MaxResultDocumentCount caps the number of documents a search returns.
const MaxResultDocumentCount = 5

// Relevance values closer than this are considered equal and tie-broken by
// rating.
const relevanceEpsilon = 1e-6

// Document is one ranked search result.
type Document struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// Predicate decides per document whether it may appear in search results.
type Predicate func(id int, status docstore.Status, rating int) bool

// Server is the search engine. Construct with New or one of the stop-word
// variants.
type Server struct {
	stopWords map[string]struct{}
	index     *index.Inverted
	docs      *docstore.Store
}

func New() *Server {
	return &Server{
		stopWords: make(map[string]struct{}),
		index:     index.New(),
		docs:      docstore.New(),
	}
}

// NewFromText builds a Server whose stop words come from a whitespace
// delimited string. Any invalid stop word fails construction.
func NewFromText(stopWordsText string) (*Server, error) {
	s := New()
	if err := s.SetStopWordsText(stopWordsText); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromWords builds a Server from an explicit stop-word list.
func NewFromWords(stopWords []string) (*Server, error) {
	s := New()
	if err := s.SetStopWords(stopWords); err != nil {
		return nil, err
	}
	return s, nil
}

// SetStopWords replaces the stop-word set wholesale. Documents already
// indexed are not re-tokenized.
func (s *Server) SetStopWords(stopWords []string) error {
	set := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		if !tokenizer.IsValidWord(word) {
			return fmt.Errorf("stop word %q: %w", word, apperrors.ErrInvalidArgument)
		}
		set[word] = struct{}{}
	}
	s.stopWords = set
	return nil
}

// SetStopWordsText is SetStopWords for raw whitespace-delimited text.
func (s *Server) SetStopWordsText(stopWordsText string) error {
	return s.SetStopWords(tokenizer.SplitIntoWords(stopWordsText))
}

// AddDocument tokenizes text, strips stop words, computes the average
// rating, and indexes the document. It fails before any mutation: a negative
// or duplicate id, or any invalid word in text, leaves the engine untouched.
func (s *Server) AddDocument(id int, text string, status docstore.Status, ratings []int) error {
	if id < 0 {
		return fmt.Errorf("document id %d is negative: %w", id, apperrors.ErrInvalidArgument)
	}
	if s.docs.Has(id) {
		return fmt.Errorf("document id %d: %w", id, apperrors.ErrDocumentExists)
	}
	words, err := s.splitIntoWordsNoStop(text)
	if err != nil {
		return err
	}
	s.docs.Put(id, docstore.Document{
		Status: status,
		Rating: computeAverageRating(ratings),
		Words:  words,
	})
	s.index.Add(id, words)
	return nil
}

// RemoveDocument removes a document from the store, the id sequence, and
// every inverted-index entry referencing it. Removing an unknown id is a
// no-op, which lets the duplicate pass remove ids without re-checking
// existence.
func (s *Server) RemoveDocument(id int) {
	if !s.docs.Has(id) {
		return
	}
	s.index.Remove(id)
	s.docs.Delete(id)
}

// FindTopDocuments searches with the default ACTUAL-status filter.
func (s *Server) FindTopDocuments(rawQuery string) ([]Document, error) {
	return s.FindTopDocumentsWithStatus(rawQuery, docstore.StatusActual)
}

// FindTopDocumentsWithStatus searches with a status-equality filter.
func (s *Server) FindTopDocumentsWithStatus(rawQuery string, status docstore.Status) ([]Document, error) {
	return s.FindTopDocumentsFunc(rawQuery, func(_ int, documentStatus docstore.Status, _ int) bool {
		return documentStatus == status
	})
}

// FindTopDocumentsFunc runs the full retrieval pipeline: parse, score
// predicate-approved candidates by TF-IDF, drop minus-word matches, rank by
// relevance with a rating tie-break, and truncate to MaxResultDocumentCount.
func (s *Server) FindTopDocumentsFunc(rawQuery string, pred Predicate) ([]Document, error) {
	query, err := s.parseQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	matched := s.findAllDocuments(query, pred)

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Relevance > matched[j].Relevance ||
			(math.Abs(matched[i].Relevance-matched[j].Relevance) < relevanceEpsilon &&
				matched[i].Rating > matched[j].Rating)
	})
	if len(matched) > MaxResultDocumentCount {
		matched = matched[:MaxResultDocumentCount]
	}
	return matched, nil
}

// MatchDocument returns the query's plus words present in the document, in
// lexicographic order, together with the document status. A single matching
// minus word empties the result. Unknown ids are an error, mirroring the
// ingestion and query failure policy.
func (s *Server) MatchDocument(rawQuery string, id int) ([]string, docstore.Status, error) {
	doc, ok := s.docs.Get(id)
	if !ok {
		return nil, 0, fmt.Errorf("document id %d: %w", id, apperrors.ErrUnknownDocument)
	}
	query, err := s.parseQuery(rawQuery)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]string, 0)
	for word := range query.plusWords {
		if _, present := s.index.Postings(word)[id]; present {
			matched = append(matched, word)
		}
	}
	for word := range query.minusWords {
		if _, present := s.index.Postings(word)[id]; present {
			matched = matched[:0]
			break
		}
	}
	sort.Strings(matched)
	return matched, doc.Status, nil
}

// DocumentCount returns the number of indexed documents.
func (s *Server) DocumentCount() int {
	return s.docs.Count()
}

// DocumentID returns the id at position index in insertion order.
func (s *Server) DocumentID(index int) (int, error) {
	id, ok := s.docs.IDAt(index)
	if !ok {
		return 0, fmt.Errorf("document index %d not in [0, %d): %w", index, s.docs.Count(), apperrors.ErrOutOfRange)
	}
	return id, nil
}

// DocumentIDs returns all document ids in insertion order.
func (s *Server) DocumentIDs() []int {
	return s.docs.IDs()
}

// WordFrequencies returns a document's term → frequency map, empty for an
// unknown id. The map must be treated as read-only.
func (s *Server) WordFrequencies(id int) map[string]float64 {
	return s.index.WordFrequencies(id)
}

type query struct {
	plusWords  map[string]struct{}
	minusWords map[string]struct{}
}

// parseQuery splits and classifies the raw query. A single malformed token
// fails the whole query; stop words parse successfully but are dropped.
func (s *Server) parseQuery(text string) (query, error) {
	q := query{
		plusWords:  make(map[string]struct{}),
		minusWords: make(map[string]struct{}),
	}
	for _, word := range tokenizer.SplitIntoWords(text) {
		qw, ok := tokenizer.ParseQueryWord(word)
		if !ok {
			return query{}, fmt.Errorf("query word %q: %w", word, apperrors.ErrInvalidQuery)
		}
		if s.isStopWord(qw.Word) {
			continue
		}
		if qw.IsMinus {
			q.minusWords[qw.Word] = struct{}{}
		} else {
			q.plusWords[qw.Word] = struct{}{}
		}
	}
	return q, nil
}

// findAllDocuments accumulates TF×IDF relevance for predicate-approved
// documents under each plus word, then erases every candidate referenced by
// a minus word. Candidates are emitted in ascending id order so that the
// caller's stable sort is deterministic.
func (s *Server) findAllDocuments(q query, pred Predicate) []Document {
	relevance := make(map[int]float64)
	for word := range q.plusWords {
		postings := s.index.Postings(word)
		if len(postings) == 0 {
			continue
		}
		idf := s.computeInverseDocumentFrequency(word)
		for docID, termFreq := range postings {
			doc, _ := s.docs.Get(docID)
			if pred(docID, doc.Status, doc.Rating) {
				relevance[docID] += termFreq * idf
			}
		}
	}
	for word := range q.minusWords {
		for docID := range s.index.Postings(word) {
			delete(relevance, docID)
		}
	}

	ids := make([]int, 0, len(relevance))
	for docID := range relevance {
		ids = append(ids, docID)
	}
	sort.Ints(ids)

	matched := make([]Document, 0, len(ids))
	for _, docID := range ids {
		doc, _ := s.docs.Get(docID)
		matched = append(matched, Document{
			ID:        docID,
			Relevance: relevance[docID],
			Rating:    doc.Rating,
		})
	}
	return matched
}

func (s *Server) computeInverseDocumentFrequency(word string) float64 {
	return math.Log(float64(s.docs.Count()) / float64(s.index.DocumentFrequency(word)))
}

// splitIntoWordsNoStop tokenizes document text, rejecting the whole text on
// the first invalid word and dropping stop words from the result.
func (s *Server) splitIntoWordsNoStop(text string) ([]string, error) {
	words := make([]string, 0)
	for _, word := range tokenizer.SplitIntoWords(text) {
		if !tokenizer.IsValidWord(word) {
			return nil, fmt.Errorf("document word %q: %w", word, apperrors.ErrInvalidArgument)
		}
		if !s.isStopWord(word) {
			words = append(words, word)
		}
	}
	return words, nil
}

func (s *Server) isStopWord(word string) bool {
	_, ok := s.stopWords[word]
	return ok
}

// computeAverageRating truncates the mean toward zero; no ratings means 0.
func computeAverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
