package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/RKGekk/searchserver/internal/api/cache"
	"github.com/RKGekk/searchserver/internal/engine"
	"github.com/RKGekk/searchserver/internal/requests"
)

// newTestMux wires the handler routes without middleware or external
// dependencies; Prometheus metrics register globally, so tests leave them
// nil.
func newTestMux(t *testing.T, stopWords string, pageSize int) (*http.ServeMux, *Handler) {
	t.Helper()
	eng, err := engine.NewFromText(stopWords)
	if err != nil {
		t.Fatalf("NewFromText(%q): %v", stopWords, err)
	}
	h := NewHandler(eng, requests.New(eng), nil, nil, nil, pageSize)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/frequencies", h.WordFrequencies)
	mux.HandleFunc("GET /api/v1/documents/{id}/match", h.Match)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/maintenance/deduplicate", h.RemoveDuplicates)
	mux.HandleFunc("GET /api/v1/requests/stats", h.RequestStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	return mux, h
}

func addDoc(t *testing.T, mux *http.ServeMux, id int, text, status string, ratings []int) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(addDocumentRequest{ID: id, Text: text, Status: status, Ratings: ratings})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func seedDocuments(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	docs := []struct {
		id   int
		text string
	}{
		{0, "white cat and fancy collar"},
		{1, "fluffy cat fluffy tail"},
		{2, "groomed dog expressive eyes"},
	}
	for _, d := range docs {
		if rec := addDoc(t, mux, d.id, d.text, "", []int{1, 2, 3}); rec.Code != http.StatusCreated {
			t.Fatalf("add doc %d: status %d, body %s", d.id, rec.Code, rec.Body)
		}
	}
}

func TestAddDocumentValidation(t *testing.T) {
	mux, _ := newTestMux(t, "", 0)

	tests := []struct {
		name       string
		id         int
		text       string
		status     string
		wantStatus int
	}{
		{"negative id", -1, "cat", "", http.StatusBadRequest},
		{"invalid word", 3, "big \x01dog", "", http.StatusBadRequest},
		{"unknown status", 3, "cat", "SHINY", http.StatusBadRequest},
		{"valid", 3, "cat", "BANNED", http.StatusCreated},
		{"duplicate id", 3, "dog", "", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := addDoc(t, mux, tt.id, tt.text, tt.status, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestSearchRankedResults(t *testing.T) {
	mux, _ := newTestMux(t, "and", 5)
	seedDocuments(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=fluffy+groomed+cat", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result cache.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	gotIDs := make([]int, len(result.Documents))
	for i, d := range result.Documents {
		gotIDs[i] = d.ID
	}
	if diff := cmp.Diff([]int{1, 2, 0}, gotIDs); diff != "" {
		t.Errorf("ranked ids mismatch (-want +got):\n%s", diff)
	}
	if result.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", result.PageCount)
	}
}

func TestSearchPagination(t *testing.T) {
	mux, _ := newTestMux(t, "", 2)
	seedDocuments(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=fluffy+groomed+cat&page=2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result cache.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(result.Documents) != 1 {
		t.Fatalf("page 2 returned %d documents, want 1", len(result.Documents))
	}
	if result.Documents[0].ID != 0 {
		t.Errorf("page 2 document id = %d, want 0", result.Documents[0].ID)
	}
	if result.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", result.PageCount)
	}
}

func TestSearchZeroResultFlag(t *testing.T) {
	mux, _ := newTestMux(t, "", 2)
	seedDocuments(t, mux)

	// Zero-result means the full result set was empty, not the requested
	// page: a page past the end of three matching documents is empty but
	// must not be flagged.
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"matching query", "/api/v1/search?q=cat", false},
		{"page past the end", "/api/v1/search?q=fluffy+groomed+cat&page=99", false},
		{"no matches", "/api/v1/search?q=rat", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.query, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}

			var result cache.Result
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if result.ZeroResult != tt.want {
				t.Errorf("ZeroResult = %v, want %v", result.ZeroResult, tt.want)
			}
		})
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	mux, _ := newTestMux(t, "", 0)
	seedDocuments(t, mux)

	for _, q := range []string{"--cat", "cat -"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q="+url.QueryEscape(q), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestSearchByStatus(t *testing.T) {
	mux, _ := newTestMux(t, "", 5)
	if rec := addDoc(t, mux, 1, "banned cat", "BANNED", nil); rec.Code != http.StatusCreated {
		t.Fatalf("add doc: status %d", rec.Code)
	}
	if rec := addDoc(t, mux, 2, "actual cat", "", nil); rec.Code != http.StatusCreated {
		t.Fatalf("add doc: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat&status=BANNED", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result cache.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(result.Documents) != 1 || result.Documents[0].ID != 1 {
		t.Errorf("BANNED search returned %+v, want single document 1", result.Documents)
	}
}

func TestRequestStatsTracksZeroResults(t *testing.T) {
	mux, _ := newTestMux(t, "", 5)
	seedDocuments(t, mux)

	queries := []string{"unicorn", "cat", "dragon"}
	for _, q := range queries {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q="+q, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query %q: status = %d", q, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var stats map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if got := stats["no_result_requests"]; got != 2 {
		t.Errorf("no_result_requests = %d, want 2", got)
	}
}

func TestMatchDocument(t *testing.T) {
	mux, _ := newTestMux(t, "", 0)
	seedDocuments(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/1/match?q=fluffy+cat+-tail", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp matchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Words) != 0 {
		t.Errorf("minus word should empty the match, got %v", resp.Words)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/99/match?q=cat", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown document: status = %d, want 404", rec.Code)
	}
}

func TestRemoveDocumentIsIdempotent(t *testing.T) {
	mux, _ := newTestMux(t, "", 0)
	seedDocuments(t, mux)

	for range 2 {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var list struct {
		Count int   `json:"count"`
		IDs   []int `json:"ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if diff := cmp.Diff([]int{0, 2}, list.IDs); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestWordFrequencies(t *testing.T) {
	mux, _ := newTestMux(t, "", 0)
	if rec := addDoc(t, mux, 1, "cat cat dog", "", nil); rec.Code != http.StatusCreated {
		t.Fatalf("add doc: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/1/frequencies", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var freqs map[string]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &freqs); err != nil {
		t.Fatalf("unmarshal frequencies: %v", err)
	}
	want := map[string]float64{"cat": 2.0 / 3.0, "dog": 1.0 / 3.0}
	if diff := cmp.Diff(want, freqs); diff != "" {
		t.Errorf("frequencies mismatch (-want +got):\n%s", diff)
	}

	// Unknown id yields an empty map, not an error.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/42/frequencies", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("unknown id: status = %d, want 200", rec.Code)
	}
}

func TestRemoveDuplicatesEndpoint(t *testing.T) {
	mux, h := newTestMux(t, "", 0)
	if rec := addDoc(t, mux, 1, "funny pet", "", nil); rec.Code != http.StatusCreated {
		t.Fatal("seed failed")
	}
	if rec := addDoc(t, mux, 2, "pet funny pet", "", nil); rec.Code != http.StatusCreated {
		t.Fatal("seed failed")
	}
	if rec := addDoc(t, mux, 3, "funny pet nasty rat", "", nil); rec.Code != http.StatusCreated {
		t.Fatal("seed failed")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/deduplicate", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		RemovedIDs []int `json:"removed_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if diff := cmp.Diff([]int{2}, resp.RemovedIDs); diff != "" {
		t.Errorf("removed ids mismatch (-want +got):\n%s", diff)
	}
	if got := h.engine.DocumentCount(); got != 2 {
		t.Errorf("DocumentCount after dedup = %d, want 2", got)
	}
}

func TestCacheStatsDisabled(t *testing.T) {
	mux, _ := newTestMux(t, "", 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["status"] != "disabled" {
		t.Errorf("status = %q, want disabled", resp["status"])
	}
}
