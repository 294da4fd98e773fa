package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/RKGekk/searchserver/internal/docstore"
	apperrors "github.com/RKGekk/searchserver/pkg/errors"
)

const relEps = 1e-6

func mustAdd(t *testing.T, s *Server, id int, text string, status docstore.Status, ratings []int) {
	t.Helper()
	if err := s.AddDocument(id, text, status, ratings); err != nil {
		t.Fatalf("AddDocument(%d, %q): %v", id, text, err)
	}
}

func resultIDs(docs []Document) []int {
	ids := make([]int, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestAddDocumentAndCount(t *testing.T) {
	s := New()
	if s.DocumentCount() != 0 {
		t.Fatalf("fresh server has %d documents", s.DocumentCount())
	}
	mustAdd(t, s, 42, "cat in the city", docstore.StatusActual, []int{1, 2, 3})
	mustAdd(t, s, 7, "dog out of town", docstore.StatusActual, nil)
	if got := s.DocumentCount(); got != 2 {
		t.Errorf("DocumentCount() = %d, want 2", got)
	}

	found, err := s.FindTopDocuments("cat")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != 42 {
		t.Errorf("FindTopDocuments(cat) = %v, want single document 42", found)
	}
}

func TestAddDocumentRejectsBadIDs(t *testing.T) {
	s := New()
	mustAdd(t, s, 1, "cat", docstore.StatusActual, nil)

	if err := s.AddDocument(-1, "dog", docstore.StatusActual, nil); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("negative id: got %v, want ErrInvalidArgument", err)
	}
	if err := s.AddDocument(1, "dog", docstore.StatusActual, nil); !errors.Is(err, apperrors.ErrDocumentExists) {
		t.Errorf("duplicate id: got %v, want ErrDocumentExists", err)
	}
	if got := s.DocumentCount(); got != 1 {
		t.Errorf("failed adds mutated the store: count = %d, want 1", got)
	}
}

func TestAddDocumentRejectsInvalidWords(t *testing.T) {
	s := New()
	err := s.AddDocument(3, "big dog spar\x12row eugene", docstore.StatusActual, nil)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("control character in word: got %v, want ErrInvalidArgument", err)
	}
	if s.DocumentCount() != 0 {
		t.Error("failed ingestion left partial state")
	}
}

func TestStopWordsExcludedFromContent(t *testing.T) {
	s, err := NewFromText("in the")
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, 42, "cat in the city", docstore.StatusActual, []int{1, 2, 3})

	found, err := s.FindTopDocuments("in")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("stop word matched documents: %v", found)
	}

	if freqs := s.WordFrequencies(42); len(freqs) != 2 {
		t.Errorf("WordFrequencies(42) = %v, want cat and city only", freqs)
	}
}

func TestInvalidStopWordsFailConstruction(t *testing.T) {
	if _, err := NewFromText("in th\x12e"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("NewFromText with control byte: got %v, want ErrInvalidArgument", err)
	}
	if _, err := NewFromWords([]string{"ok", ""}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("NewFromWords with empty word: got %v, want ErrInvalidArgument", err)
	}
}

func TestMinusWordsExcludeDocuments(t *testing.T) {
	s := New()
	mustAdd(t, s, 1, "fluffy cat fluffy tail", docstore.StatusActual, []int{7, 2, 7})
	mustAdd(t, s, 2, "groomed dog expressive eyes", docstore.StatusActual, []int{5, -12, 2, 1})

	found, err := s.FindTopDocuments("fluffy groomed -dog")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1}, resultIDs(found)); diff != "" {
		t.Errorf("minus word exclusion mismatch (-want +got):\n%s", diff)
	}

	// A minus word excludes a document regardless of plus matches.
	found, err = s.FindTopDocuments("fluffy -fluffy")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("document with minus word still returned: %v", found)
	}
}

func TestQueryParsingRejectsMalformedWords(t *testing.T) {
	s := New()
	mustAdd(t, s, 1, "fluffy cat", docstore.StatusActual, nil)

	for _, q := range []string{"-", "fluffy --cat", "fluffy -", "ca\x12t"} {
		if _, err := s.FindTopDocuments(q); !errors.Is(err, apperrors.ErrInvalidQuery) {
			t.Errorf("FindTopDocuments(%q): got %v, want ErrInvalidQuery", q, err)
		}
		if _, _, err := s.MatchDocument(q, 1); !errors.Is(err, apperrors.ErrInvalidQuery) {
			t.Errorf("MatchDocument(%q): got %v, want ErrInvalidQuery", q, err)
		}
	}
}

func TestMatchDocument(t *testing.T) {
	s, err := NewFromText("in the")
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, 42, "big cat in the city", docstore.StatusBanned, nil)

	words, status, err := s.MatchDocument("big city cat missing", 42)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"big", "cat", "city"}, words); diff != "" {
		t.Errorf("matched words mismatch (-want +got):\n%s", diff)
	}
	if status != docstore.StatusBanned {
		t.Errorf("status = %v, want BANNED", status)
	}

	// Stop words never match.
	words, _, err = s.MatchDocument("in the", 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 0 {
		t.Errorf("stop words matched: %v", words)
	}

	// One matching minus word empties the result.
	words, _, err = s.MatchDocument("big cat -city", 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 0 {
		t.Errorf("minus word did not empty the match: %v", words)
	}

	if _, _, err := s.MatchDocument("cat", 99); !errors.Is(err, apperrors.ErrUnknownDocument) {
		t.Errorf("unknown id: got %v, want ErrUnknownDocument", err)
	}
}

func TestRelevanceSortAndTruncation(t *testing.T) {
	s, err := NewFromText("and in on")
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, 0, "white cat and trendy collar", docstore.StatusActual, []int{8, -3})
	mustAdd(t, s, 1, "fluffy cat fluffy tail", docstore.StatusActual, []int{7, 2, 7})
	mustAdd(t, s, 2, "groomed dog expressive eyes", docstore.StatusActual, []int{5, -12, 2, 1})

	found, err := s.FindTopDocuments("fluffy groomed cat")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 0}, resultIDs(found)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(found); i++ {
		if found[i-1].Relevance < found[i].Relevance-relEps {
			t.Errorf("relevance increases at position %d: %v", i, found)
		}
	}

	// More than five matches are truncated.
	for id := 10; id < 20; id++ {
		mustAdd(t, s, id, "cat", docstore.StatusActual, nil)
	}
	found, err = s.FindTopDocuments("cat")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != MaxResultDocumentCount {
		t.Errorf("got %d results, want %d", len(found), MaxResultDocumentCount)
	}
}

func TestRelevanceValues(t *testing.T) {
	s, err := NewFromText("and in on")
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, 0, "white cat and trendy collar", docstore.StatusActual, nil)
	mustAdd(t, s, 1, "fluffy cat fluffy tail", docstore.StatusActual, nil)
	mustAdd(t, s, 2, "groomed dog expressive eyes", docstore.StatusActual, nil)

	found, err := s.FindTopDocuments("fluffy")
	if err != nil {
		t.Fatal(err)
	}
	// tf(fluffy, doc 1) = 2/4, idf = ln(3/1).
	want := 0.5 * math.Log(3.0)
	if len(found) != 1 || math.Abs(found[0].Relevance-want) > relEps {
		t.Errorf("FindTopDocuments(fluffy) = %v, want relevance %v", found, want)
	}
}

func TestRatingComputation(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    int
	}{
		{"truncated toward zero", []int{8, -3}, 2},
		{"empty", nil, 0},
		{"negative mean", []int{-7, -3}, -5},
		{"single", []int{9}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			mustAdd(t, s, 1, "cat", docstore.StatusActual, tt.ratings)
			found, err := s.FindTopDocuments("cat")
			if err != nil {
				t.Fatal(err)
			}
			if len(found) != 1 || found[0].Rating != tt.want {
				t.Errorf("rating = %v, want %d", found, tt.want)
			}
		})
	}
}

func TestRatingTieBreak(t *testing.T) {
	s := New()
	// Same single-word content, so identical relevance; rating decides.
	mustAdd(t, s, 1, "cat", docstore.StatusActual, []int{1})
	mustAdd(t, s, 2, "cat", docstore.StatusActual, []int{5})
	mustAdd(t, s, 3, "cat", docstore.StatusActual, []int{3})

	found, err := s.FindTopDocuments("cat")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 3, 1}, resultIDs(found)); diff != "" {
		t.Errorf("rating tie-break mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusAndPredicateFiltering(t *testing.T) {
	s := New()
	mustAdd(t, s, 1, "cat", docstore.StatusActual, []int{1})
	mustAdd(t, s, 2, "cat", docstore.StatusBanned, []int{2})
	mustAdd(t, s, 3, "cat", docstore.StatusIrrelevant, []int{3})
	mustAdd(t, s, 4, "cat", docstore.StatusRemoved, []int{4})

	found, err := s.FindTopDocumentsWithStatus("cat", docstore.StatusBanned)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2}, resultIDs(found)); diff != "" {
		t.Errorf("status filter mismatch (-want +got):\n%s", diff)
	}

	found, err = s.FindTopDocumentsFunc("cat", func(id int, _ docstore.Status, _ int) bool {
		return id%2 == 0
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 2}, resultIDs(found)); diff != "" {
		t.Errorf("predicate filter mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveDocument(t *testing.T) {
	s := New()
	mustAdd(t, s, 1, "cat dog", docstore.StatusActual, nil)
	mustAdd(t, s, 2, "cat", docstore.StatusActual, nil)

	s.RemoveDocument(1)

	if s.DocumentCount() != 1 {
		t.Errorf("DocumentCount() = %d after removal, want 1", s.DocumentCount())
	}
	if freqs := s.WordFrequencies(1); len(freqs) != 0 {
		t.Errorf("WordFrequencies(1) = %v after removal, want empty", freqs)
	}
	found, err := s.FindTopDocuments("dog")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("removed document still searchable: %v", found)
	}

	// Idempotent: a second removal changes nothing.
	s.RemoveDocument(1)
	s.RemoveDocument(99)
	if s.DocumentCount() != 1 {
		t.Errorf("DocumentCount() = %d after repeated removals, want 1", s.DocumentCount())
	}
	if diff := cmp.Diff([]int{2}, s.DocumentIDs()); diff != "" {
		t.Errorf("DocumentIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentIDAccess(t *testing.T) {
	s := New()
	mustAdd(t, s, 5, "cat", docstore.StatusActual, nil)
	mustAdd(t, s, 2, "dog", docstore.StatusActual, nil)

	if id, err := s.DocumentID(0); err != nil || id != 5 {
		t.Errorf("DocumentID(0) = %d, %v, want 5", id, err)
	}
	if id, err := s.DocumentID(1); err != nil || id != 2 {
		t.Errorf("DocumentID(1) = %d, %v, want 2", id, err)
	}
	for _, idx := range []int{-1, 2} {
		if _, err := s.DocumentID(idx); !errors.Is(err, apperrors.ErrOutOfRange) {
			t.Errorf("DocumentID(%d): got %v, want ErrOutOfRange", idx, err)
		}
	}
	if diff := cmp.Diff([]int{5, 2}, s.DocumentIDs()); diff != "" {
		t.Errorf("DocumentIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestUTF8Queries(t *testing.T) {
	s, err := NewFromText("и в на")
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, 1, "пушистый кот пушистый хвост", docstore.StatusActual, []int{7, 2, 7})
	mustAdd(t, s, 2, "пушистый пёс и модный ошейник", docstore.StatusActual, []int{1, 2})

	found, err := s.FindTopDocuments("пушистый -пёс")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1}, resultIDs(found)); diff != "" {
		t.Errorf("utf8 minus query mismatch (-want +got):\n%s", diff)
	}

	for _, q := range []string{"пушистый --кот", "пушистый -"} {
		if _, err := s.FindTopDocuments(q); !errors.Is(err, apperrors.ErrInvalidQuery) {
			t.Errorf("FindTopDocuments(%q): got %v, want ErrInvalidQuery", q, err)
		}
	}
}
