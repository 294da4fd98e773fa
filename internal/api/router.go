package api

import (
	"net/http"
	"time"

	"github.com/RKGekk/searchserver/pkg/health"
	"github.com/RKGekk/searchserver/pkg/metrics"
	"github.com/RKGekk/searchserver/pkg/middleware"
)

// NewRouter builds the search-server HTTP handler with all routes and
// middleware.
//
// Route table:
//
//	POST   /api/v1/documents                    → add document
//	GET    /api/v1/documents                    → list document ids
//	DELETE /api/v1/documents/{id}               → remove document
//	GET    /api/v1/documents/{id}/frequencies   → word frequencies
//	GET    /api/v1/documents/{id}/match         → match query against document
//	GET    /api/v1/search                       → ranked search
//	POST   /api/v1/maintenance/deduplicate      → remove duplicate documents
//	GET    /api/v1/requests/stats               → sliding-window request stats
//	GET    /api/v1/cache/stats                  → query cache stats
//	GET    /health/live, /health/ready          → health probes
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → RateLimit → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, limiter *middleware.Limiter, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	// Health (no middleware concerns beyond what the probes need)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Document API
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/frequencies", h.WordFrequencies)
	mux.HandleFunc("GET /api/v1/documents/{id}/match", h.Match)

	// Search API
	mux.HandleFunc("GET /api/v1/search", h.Search)

	// Maintenance API
	mux.HandleFunc("POST /api/v1/maintenance/deduplicate", h.RemoveDuplicates)

	// Stats API
	mux.HandleFunc("GET /api/v1/requests/stats", h.RequestStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)

	var chain http.Handler = mux
	chain = middleware.Timeout(requestTimeout)(chain)
	chain = middleware.RateLimit(limiter)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	return chain
}
