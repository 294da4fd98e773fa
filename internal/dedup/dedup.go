// Package dedup finds and removes near-duplicate documents: two documents
// are duplicates when their sets of distinct retained terms are identical,
// regardless of term frequencies. This is a bulk maintenance pass, not a hot
// path; the pairwise scan is quadratic on purpose.
package dedup

import "sort"

// Engine is the subset of search-server operations the duplicate pass needs.
type Engine interface {
	DocumentCount() int
	DocumentID(index int) (int, error)
	WordFrequencies(id int) map[string]float64
	RemoveDocument(id int)
}

// ReportFunc receives each removed document id. A nil ReportFunc disables
// reporting.
type ReportFunc func(id int)

// RemoveDuplicates scans every pair of documents in insertion order and
// removes each later-inserted duplicate of an earlier one. Marking is
// computed against the original positions before any removal, so removal
// order cannot change which ids are marked. Removed ids are reported in
// ascending order.
func RemoveDuplicates(e Engine, report ReportFunc) []int {
	count := e.DocumentCount()
	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		id, err := e.DocumentID(i)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	marked := make(map[int]struct{})
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if sameTermSet(e.WordFrequencies(ids[i]), e.WordFrequencies(ids[j])) {
				marked[ids[j]] = struct{}{}
			}
		}
	}

	removed := make([]int, 0, len(marked))
	for id := range marked {
		removed = append(removed, id)
	}
	sort.Ints(removed)
	for _, id := range removed {
		if report != nil {
			report(id)
		}
		e.RemoveDocument(id)
	}
	return removed
}

// sameTermSet compares the key sets of two frequency maps; the frequency
// values are irrelevant.
func sameTermSet(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for term := range a {
		if _, ok := b[term]; !ok {
			return false
		}
	}
	return true
}
