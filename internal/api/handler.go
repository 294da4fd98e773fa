// Package api exposes the search engine over HTTP JSON. This layer is the
// single place where core errors become status codes and where access to
// the single-owner engine is serialized; the engine itself stays free of
// HTTP, logging, and locking concerns.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/RKGekk/searchserver/internal/analytics"
	"github.com/RKGekk/searchserver/internal/api/cache"
	"github.com/RKGekk/searchserver/internal/dedup"
	"github.com/RKGekk/searchserver/internal/docstore"
	"github.com/RKGekk/searchserver/internal/engine"
	"github.com/RKGekk/searchserver/internal/requests"
	apperrors "github.com/RKGekk/searchserver/pkg/errors"
	"github.com/RKGekk/searchserver/pkg/logger"
	"github.com/RKGekk/searchserver/pkg/metrics"
	"github.com/RKGekk/searchserver/pkg/middleware"
	"github.com/RKGekk/searchserver/pkg/tracing"
)

// Handler serves the search API. The mutex serializes every engine and
// tracker call: the engine provides no internal locking by design.
type Handler struct {
	mu        sync.Mutex
	engine    *engine.Server
	tracker   *requests.Queue
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	pageSize  int
	logger    *slog.Logger
}

type addDocumentRequest struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Status  string `json:"status"`
	Ratings []int  `json:"ratings"`
}

type matchResponse struct {
	Words  []string `json:"words"`
	Status string   `json:"status"`
}

func NewHandler(
	eng *engine.Server,
	tracker *requests.Queue,
	queryCache *cache.QueryCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	pageSize int,
) *Handler {
	if pageSize <= 0 {
		pageSize = engine.MaxResultDocumentCount
	}
	return &Handler{
		engine:    eng,
		tracker:   tracker,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		pageSize:  pageSize,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// AddDocument ingests one document.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status := docstore.StatusActual
	if req.Status != "" {
		parsed, ok := docstore.ParseStatus(req.Status)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown document status "+req.Status)
			return
		}
		status = parsed
	}

	h.mu.Lock()
	err := h.engine.AddDocument(req.ID, req.Text, status, req.Ratings)
	h.mu.Unlock()
	if err != nil {
		log.Error("add document failed", "doc_id", req.ID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	h.invalidateCache(ctx)
	if h.metrics != nil {
		h.metrics.DocumentsIndexedTotal.Inc()
	}
	h.track(analytics.EventIndex, analytics.IndexEvent{
		Type:       analytics.EventIndex,
		DocumentID: req.ID,
		TermCount:  len(h.wordFrequencies(req.ID)),
		Status:     status.String(),
		Timestamp:  time.Now().UTC(),
	})
	log.Info("document indexed", "doc_id", req.ID, "status", status.String())
	h.writeJSON(w, http.StatusCreated, map[string]int{"id": req.ID})
}

// RemoveDocument removes a document; removing an unknown id succeeds.
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	h.engine.RemoveDocument(id)
	h.mu.Unlock()

	h.invalidateCache(r.Context())
	if h.metrics != nil {
		h.metrics.DocumentsRemovedTotal.Inc()
	}
	h.track(analytics.EventRemove, analytics.IndexEvent{
		Type:       analytics.EventRemove,
		DocumentID: id,
		Timestamp:  time.Now().UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments returns every document id in insertion order.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	ids := h.engine.DocumentIDs()
	count := h.engine.DocumentCount()
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, map[string]any{
		"count": count,
		"ids":   ids,
	})
}

// WordFrequencies returns a document's term → frequency map; an unknown id
// yields an empty map, mirroring the engine contract.
func (h *Handler) WordFrequencies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	freqs := h.wordFrequencies(id)
	if freqs == nil {
		freqs = map[string]float64{}
	}
	h.writeJSON(w, http.StatusOK, freqs)
}

// Search runs the ranked retrieval pipeline. The default-status path goes
// through the request tracker; a cache hit never reaches the engine and is
// therefore invisible to the tracker window.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	rawQuery := r.URL.Query().Get("q")
	if rawQuery == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	statusName := r.URL.Query().Get("status")
	status := docstore.StatusActual
	if statusName != "" {
		parsed, ok := docstore.ParseStatus(statusName)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown document status "+statusName)
			return
		}
		status = parsed
	} else {
		statusName = status.String()
	}
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	ctx, span := tracing.StartSpan(ctx, "search", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("query", rawQuery)
	span.SetAttr("status", statusName)

	computeFn := func() (*cache.Result, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		var docs []engine.Document
		var err error
		if status == docstore.StatusActual && h.tracker != nil {
			docs, err = h.tracker.AddFindRequest(rawQuery)
			if h.metrics != nil {
				h.metrics.NoResultWindow.Set(float64(h.tracker.NoResultRequests()))
			}
		} else {
			docs, err = h.engine.FindTopDocumentsWithStatus(rawQuery, status)
		}
		if err != nil {
			return nil, err
		}
		pageDocs, pageCount := paginate(docs, page, h.pageSize)
		return &cache.Result{
			Query:      rawQuery,
			Status:     statusName,
			Page:       page,
			PageCount:  pageCount,
			ZeroResult: len(docs) == 0,
			Documents:  pageDocs,
		}, nil
	}

	var result *cache.Result
	var err error
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, rawQuery, statusName, page, computeFn)
	} else {
		result, err = computeFn()
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.SearchesTotal.WithLabelValues("invalid_query").Inc()
		}
		log.Error("search failed", "query", rawQuery, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	latency := time.Since(start)
	zeroResult := result.ZeroResult
	h.observeSearch(zeroResult, cacheHit, latency, len(result.Documents))
	span.SetAttr("returned", len(result.Documents))
	span.SetAttr("cache_hit", cacheHit)

	h.track(analytics.EventSearch, analytics.SearchEvent{
		Type:           analytics.EventSearch,
		Query:          rawQuery,
		Status:         statusName,
		Returned:       len(result.Documents),
		ZeroResult:     zeroResult,
		NoResultWindow: h.noResultRequests(),
		CacheHit:       cacheHit,
		LatencyMs:      latency.Milliseconds(),
		Timestamp:      time.Now().UTC(),
		RequestID:      middleware.GetRequestID(ctx),
	})
	log.Info("search completed",
		"query", rawQuery,
		"status", statusName,
		"returned", len(result.Documents),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Match reports which query words a document contains.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rawQuery := r.URL.Query().Get("q")
	if rawQuery == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	h.mu.Lock()
	words, status, err := h.engine.MatchDocument(rawQuery, id)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, matchResponse{Words: words, Status: status.String()})
}

// RemoveDuplicates runs the duplicate pass, reporting each removed id to
// the log stream.
func (h *Handler) RemoveDuplicates(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	h.mu.Lock()
	removed := dedup.RemoveDuplicates(h.engine, func(id int) {
		log.Info("found duplicate document", "doc_id", id)
	})
	h.mu.Unlock()

	h.invalidateCache(r.Context())
	if h.metrics != nil {
		h.metrics.DuplicatesRemovedTotal.Add(float64(len(removed)))
	}
	h.track(analytics.EventDedup, analytics.DedupEvent{
		Type:       analytics.EventDedup,
		RemovedIDs: removed,
		Timestamp:  time.Now().UTC(),
	})
	h.writeJSON(w, http.StatusOK, map[string]any{"removed_ids": removed})
}

// RequestStats returns the sliding-window zero-result counter.
func (h *Handler) RequestStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]int{
		"no_result_requests": h.noResultRequests(),
	})
}

// CacheStats reports query-cache hit rates.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]int64{
		"hits":   hits,
		"misses": misses,
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return 0, false
	}
	return id, true
}

// DocumentCount reports the number of indexed documents. Exposed for
// health probes, which run outside the request path.
func (h *Handler) DocumentCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.DocumentCount()
}

func (h *Handler) wordFrequencies(id int) map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.WordFrequencies(id)
}

func (h *Handler) noResultRequests() int {
	if h.tracker == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tracker.NoResultRequests()
}

func (h *Handler) observeSearch(zeroResult, cacheHit bool, latency time.Duration, returned int) {
	if h.metrics == nil {
		return
	}
	resultType := "ok"
	if zeroResult {
		resultType = "zero_result"
	}
	h.metrics.SearchesTotal.WithLabelValues(resultType).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(returned))
}

func (h *Handler) invalidateCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("failed to invalidate query cache", "error", err)
	}
}

func (h *Handler) track(eventType analytics.EventType, event any) {
	if h.collector == nil {
		return
	}
	h.collector.Track(string(eventType), event)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
