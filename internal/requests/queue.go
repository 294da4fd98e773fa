// Package requests tracks how many of the most recent search requests
// returned no results. The window is measured in requests, not wall-clock
// time: WindowSize requests represent one simulated day, and eviction
// happens on the next push, never on a timer.
package requests

import "github.com/RKGekk/searchserver/internal/engine"

// WindowSize is the number of requests in one simulated day.
const WindowSize = 1440

// Finder is the slice of the search engine the queue wraps.
type Finder interface {
	FindTopDocuments(rawQuery string) ([]engine.Document, error)
}

// Queue is a fixed-capacity FIFO window over search outcomes with an O(1)
// zero-result counter. Not safe for concurrent use, same as the engine it
// wraps.
type Queue struct {
	finder   Finder
	window   [WindowSize]bool // true = request returned no results
	head     int
	size     int
	noResult int
}

func New(finder Finder) *Queue {
	return &Queue{finder: finder}
}

// AddFindRequest executes the query and records whether it came back empty,
// evicting the oldest record first when the window is full. A query error
// propagates to the caller and records nothing.
func (q *Queue) AddFindRequest(rawQuery string) ([]engine.Document, error) {
	found, err := q.finder.FindTopDocuments(rawQuery)
	if err != nil {
		return nil, err
	}
	q.push(len(found) == 0)
	return found, nil
}

// NoResultRequests returns the number of zero-result requests currently in
// the window.
func (q *Queue) NoResultRequests() int {
	return q.noResult
}

func (q *Queue) push(isEmpty bool) {
	if q.size == WindowSize {
		if q.window[q.head] {
			q.noResult--
		}
		q.head = (q.head + 1) % WindowSize
		q.size--
	}
	q.window[(q.head+q.size)%WindowSize] = isEmpty
	q.size++
	if isEmpty {
		q.noResult++
	}
}
