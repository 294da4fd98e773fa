// Package docstore keeps per-document metadata (status, rating, retained
// words) and the insertion-ordered sequence of document ids.
package docstore

import "fmt"

// Status is the lifecycle state of a document.
type Status int

const (
	StatusActual Status = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

var statusNames = map[Status]string{
	StatusActual:     "ACTUAL",
	StatusIrrelevant: "IRRELEVANT",
	StatusBanned:     "BANNED",
	StatusRemoved:    "REMOVED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts the wire representation back to a Status.
func ParseStatus(name string) (Status, bool) {
	for status, n := range statusNames {
		if n == name {
			return status, true
		}
	}
	return 0, false
}

// Document holds everything the store knows about one document. Words is the
// ordered list of retained (non-stop) words, duplicates included.
type Document struct {
	Status Status
	Rating int
	Words  []string
}

// Store maps document ids to their data and remembers insertion order.
type Store struct {
	docs  map[int]Document
	order []int
}

func New() *Store {
	return &Store{docs: make(map[int]Document)}
}

// Put inserts a document and appends its id to the order sequence. The
// engine guarantees the id is not already present.
func (s *Store) Put(id int, doc Document) {
	s.docs[id] = doc
	s.order = append(s.order, id)
}

// Get returns the document data for id.
func (s *Store) Get(id int) (Document, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

// Has reports whether id is present.
func (s *Store) Has(id int) bool {
	_, ok := s.docs[id]
	return ok
}

// Delete removes id from the store and the order sequence. Unknown ids are
// ignored.
func (s *Store) Delete(id int) {
	if _, ok := s.docs[id]; !ok {
		return
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	return len(s.docs)
}

// IDAt returns the id at the given position in insertion order.
func (s *Store) IDAt(index int) (int, bool) {
	if index < 0 || index >= len(s.order) {
		return 0, false
	}
	return s.order[index], true
}

// IDs returns a copy of the id sequence in insertion order.
func (s *Store) IDs() []int {
	ids := make([]int, len(s.order))
	copy(ids, s.order)
	return ids
}
