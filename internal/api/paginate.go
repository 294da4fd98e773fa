package api

import "github.com/RKGekk/searchserver/internal/engine"

// paginate slices ranked results into fixed-size pages. Pages are numbered
// from 1; a page past the end is empty, not an error.
func paginate(docs []engine.Document, page, pageSize int) (pageDocs []engine.Document, pageCount int) {
	if pageSize <= 0 {
		pageSize = 1
	}
	pageCount = (len(docs) + pageSize - 1) / pageSize
	if page < 1 || page > pageCount {
		return []engine.Document{}, pageCount
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end], pageCount
}
