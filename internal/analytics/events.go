// Package analytics publishes and aggregates search-server usage events.
// The API layer emits events to Kafka through a batching collector; a
// separate aggregator service consumes them, keeps in-memory stats, and
// snapshots them to PostgreSQL.
package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventIndex  EventType = "index_document"
	EventRemove EventType = "remove_document"
	EventDedup  EventType = "remove_duplicates"
)

// Envelope carries only the type discriminator, for decoding.
type Envelope struct {
	Type EventType `json:"type"`
}

// SearchEvent is emitted for every search request, successful or not.
type SearchEvent struct {
	Type           EventType `json:"type"`
	Query          string    `json:"query"`
	Status         string    `json:"status"`
	Returned       int       `json:"returned"`
	ZeroResult     bool      `json:"zero_result"`
	NoResultWindow int       `json:"no_result_window"`
	CacheHit       bool      `json:"cache_hit"`
	LatencyMs      int64     `json:"latency_ms"`
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id"`
}

// IndexEvent is emitted when a document is added or removed. TermCount is
// the number of distinct terms retained for the document after stop-word
// filtering, not the raw word count of its text.
type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID int       `json:"document_id"`
	TermCount  int       `json:"term_count"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// DedupEvent is emitted after a duplicate-removal pass.
type DedupEvent struct {
	Type       EventType `json:"type"`
	RemovedIDs []int     `json:"removed_ids"`
	Timestamp  time.Time `json:"timestamp"`
}
