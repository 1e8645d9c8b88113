package scanner

import "testing"

func TestFilterCandidates(t *testing.T) {
	t.Parallel()

	filter, err := NewURLFilter([]string{"minute", "agenda", "council"})
	if err != nil {
		t.Fatalf("NewURLFilter() error = %v", err)
	}
	hits := []SearchHit{
		{URL: "https://example.gov/Minutes/2024-03.pdf"},
		{URL: "https://example.com/news/article"},
		{URL: "https://example.gov/city-COUNCIL/agenda"},
		{URL: "https://example.gov/budget"},
	}
	kept := FilterCandidates(hits, filter, 15)
	if len(kept) != 2 {
		t.Fatalf("FilterCandidates() kept %d, want 2: %+v", len(kept), kept)
	}
	if kept[0].URL != hits[0].URL || kept[1].URL != hits[2].URL {
		t.Fatalf("FilterCandidates() broke provider order: %+v", kept)
	}
}

func TestFilterCandidatesCap(t *testing.T) {
	t.Parallel()

	filter, err := NewURLFilter([]string{"minute"})
	if err != nil {
		t.Fatalf("NewURLFilter() error = %v", err)
	}
	var hits []SearchHit
	for range 30 {
		hits = append(hits, SearchHit{URL: "https://example.gov/minutes"})
	}
	if kept := FilterCandidates(hits, filter, 15); len(kept) != 15 {
		t.Fatalf("FilterCandidates() kept %d, want 15", len(kept))
	}
}

func TestNewURLFilterEmptyTerms(t *testing.T) {
	t.Parallel()

	if _, err := NewURLFilter(nil); err == nil {
		t.Fatal("expected error for empty terms")
	}
}
