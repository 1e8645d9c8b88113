package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]ScanJob
	results   []ScanResult
	progress  [][2]int
	recordErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]ScanJob)}
}

func (s *fakeStore) CreateJob(_ context.Context, job ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) UpdateJobProgress(_ context.Context, jobID string, citiesScanned, totalResults int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.CitiesScanned = citiesScanned
	job.TotalResults = totalResults
	s.jobs[jobID] = job
	s.progress = append(s.progress, [2]int{citiesScanned, totalResults})
	return nil
}

func (s *fakeStore) CompleteJob(_ context.Context, jobID string, status JobStatus, errMsg string, totalResults int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job already terminal")
	}
	job.Status = status
	job.ErrorMessage = errMsg
	job.TotalResults = totalResults
	job.CompletedAt = &completedAt
	s.jobs[jobID] = job
	return nil
}

func (s *fakeStore) RecordResult(_ context.Context, result ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.results = append(s.results, result)
	return nil
}

func (s *fakeStore) GetJob(_ context.Context, jobID string) (ScanJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ScanJob{}, ErrJobNotFound
	}
	return job, nil
}

func (s *fakeStore) ListJobResults(_ context.Context, jobID string) ([]ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScanResult
	for _, res := range s.results {
		if res.JobID == jobID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *fakeStore) ListResults(_ context.Context, _ ResultFilter) ([]ScanResult, error) {
	return nil, nil
}

func (s *fakeStore) ListJobs(_ context.Context, _ int) ([]ScanJob, error) {
	return nil, nil
}

func (s *fakeStore) Stats(_ context.Context) (Stats, error) {
	return Stats{}, nil
}

type fakeSearch struct {
	hits []SearchHit
	err  error
}

func (f *fakeSearch) Search(_ context.Context, _ string, _ int) ([]SearchHit, error) {
	return f.hits, f.err
}

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return []byte(f.bodies[url]), nil
}

// passthroughExtractor treats the fetched bytes as the extracted text.
type passthroughExtractor struct {
	panicOn string
}

func (p passthroughExtractor) Extract(doc Document) (string, string, error) {
	if p.panicOn != "" && doc.URL == p.panicOn {
		panic("extractor blew up")
	}
	return string(doc.Body), "", nil
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("job-%d", g.n), nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []CompletionEvent
}

func (p *capturingPublisher) Publish(_ context.Context, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := payload.(CompletionEvent); ok {
		p.events = append(p.events, ev)
	}
	return "msg-1", nil
}

type orchestratorFixture struct {
	store     *fakeStore
	search    *fakeSearch
	fetcher   *fakeFetcher
	pacer     *countingPacer
	publisher *capturingPublisher
	orch      *Orchestrator
}

func newFixture(t *testing.T, search *fakeSearch, fetcher *fakeFetcher, extractor Extractor) *orchestratorFixture {
	t.Helper()
	matcher, err := NewMatcher([]string{"vac-truck", "sweeper"}, MatcherConfig{})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	urlFilter, err := NewURLFilter([]string{"minute", "agenda", "council"})
	if err != nil {
		t.Fatalf("NewURLFilter() error = %v", err)
	}
	f := &orchestratorFixture{
		store:     newFakeStore(),
		search:    search,
		fetcher:   fetcher,
		pacer:     &countingPacer{},
		publisher: &capturingPublisher{},
	}
	f.orch = NewOrchestrator(
		f.store,
		f.search,
		f.fetcher,
		extractor,
		matcher,
		urlFilter,
		f.pacer,
		f.publisher,
		fixedClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		&seqIDs{},
		OrchestratorConfig{MaxSearchResults: 20, MaxURLsPerCity: 15},
		nil,
	)
	return f
}

func TestScanCompletesWithNoCandidates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeSearch{}, &fakeFetcher{}, passthroughExtractor{})
	job, err := f.orch.Scan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.CitiesScanned != 1 || job.TotalResults != 0 {
		t.Fatalf("counters = (%d, %d), want (1, 0)", job.CitiesScanned, job.TotalResults)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed_at not set on terminal job")
	}
}

func TestScanRecordsMatchesAndSkipsFailedFetch(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{hits: []SearchHit{
		{URL: "https://a.gov/minutes/1", Title: "January minutes"},
		{URL: "https://a.gov/minutes/2"},
		{URL: "https://a.gov/unrelated"},
	}}
	fetcher := &fakeFetcher{
		bodies: map[string]string{
			"https://a.gov/minutes/2": "approved the vac-truck and the vac-truck again, plus a sweeper",
		},
		errs: map[string]error{
			"https://a.gov/minutes/1": errors.New("connection timed out"),
		},
	}
	f := newFixture(t, search, fetcher, passthroughExtractor{})

	job, err := f.orch.Scan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("status = %s, want completed (fetch failure must not fail the job)", job.Status)
	}
	// The unrelated URL is filtered out; both minutes URLs are paced
	// and attempted even though the first fetch fails.
	if len(fetcher.calls) != 2 {
		t.Fatalf("fetch calls = %v, want both minutes URLs", fetcher.calls)
	}
	if f.pacer.waits != 2 {
		t.Fatalf("pacer waits = %d, want 2 (one before each fetch)", f.pacer.waits)
	}
	// Duplicate vac-truck hit on the same URL is deduplicated.
	if job.TotalResults != 2 || len(f.store.results) != 2 {
		t.Fatalf("results = %d (counter %d), want 2", len(f.store.results), job.TotalResults)
	}
	keywords := map[string]bool{}
	for _, res := range f.store.results {
		keywords[res.Keyword] = true
		if res.SourceURL != "https://a.gov/minutes/2" {
			t.Errorf("unexpected source url %s", res.SourceURL)
		}
		if res.City != "Ames" || res.State != "IA" {
			t.Errorf("result city/state = %s/%s", res.City, res.State)
		}
	}
	if !keywords["vac-truck"] || !keywords["sweeper"] {
		t.Fatalf("keywords recorded = %v", keywords)
	}
}

func TestScanDedupeScopeIsPerCityPass(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{hits: []SearchHit{{URL: "https://shared.gov/minutes"}}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://shared.gov/minutes": "a vac-truck purchase",
	}}
	f := newFixture(t, search, fetcher, passthroughExtractor{})

	cities := []CityRequest{{City: "Ames", State: "IA"}, {City: "Boone", State: "IA"}}
	job, err := f.orch.Scan(context.Background(), cities)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	// The same (url, keyword) pair repeats under a different city
	// context; the dedupe set resets per city.
	if job.TotalResults != 2 {
		t.Fatalf("total_results = %d, want 2", job.TotalResults)
	}
}

func TestScanProgressPersistedPerCity(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{hits: []SearchHit{{URL: "https://a.gov/minutes"}}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://a.gov/minutes": "one vac-truck here",
	}}
	f := newFixture(t, search, fetcher, passthroughExtractor{})

	cities := []CityRequest{{City: "Ames", State: "IA"}, {City: "Boone", State: "IA"}}
	if _, err := f.orch.Scan(context.Background(), cities); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := [][2]int{{1, 1}, {2, 2}}
	if len(f.store.progress) != len(want) {
		t.Fatalf("progress snapshots = %v, want %v", f.store.progress, want)
	}
	for i, snap := range f.store.progress {
		if snap != want[i] {
			t.Fatalf("progress snapshots = %v, want %v", f.store.progress, want)
		}
	}
}

func TestScanSearchProviderFailureDegrades(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeSearch{err: errors.New("provider down")}, &fakeFetcher{}, passthroughExtractor{})
	job, err := f.orch.Scan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if job.Status != JobStatusCompleted || job.CitiesScanned != 1 {
		t.Fatalf("job = %+v, want completed with city counted", job)
	}
}

func TestScanStoreFailureFailsJob(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{hits: []SearchHit{{URL: "https://a.gov/minutes"}}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://a.gov/minutes": "a vac-truck",
	}}
	f := newFixture(t, search, fetcher, passthroughExtractor{})
	// The multi-byte tail is positioned so the cap falls mid-rune.
	f.store.recordErr = errors.New("disk full!: " + strings.Repeat("ü", 300))

	job, err := f.orch.Scan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if job.Status != JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("error_message empty on failed job")
	}
	if len(job.ErrorMessage) > 500 {
		t.Fatalf("error_message length %d exceeds cap", len(job.ErrorMessage))
	}
	if !utf8.ValidString(job.ErrorMessage) {
		t.Fatalf("error_message truncation split a rune: %q", job.ErrorMessage)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed_at not set on failed job")
	}
}

func TestScanPanicFailsJobAndKeepsPartialResults(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{hits: []SearchHit{
		{URL: "https://a.gov/minutes/good"},
		{URL: "https://a.gov/minutes/bad"},
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://a.gov/minutes/good": "the vac-truck item",
		"https://a.gov/minutes/bad":  "irrelevant",
	}}
	f := newFixture(t, search, fetcher, passthroughExtractor{panicOn: "https://a.gov/minutes/bad"})

	job, err := f.orch.Scan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if job.Status != JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if len(f.store.results) != 1 {
		t.Fatalf("partial results = %d, want 1 retained", len(f.store.results))
	}
}

func TestScanPublishesCompletionEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeSearch{}, &fakeFetcher{}, passthroughExtractor{})
	job, err := f.orch.Scan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.publisher.events))
	}
	ev := f.publisher.events[0]
	if ev.JobID != job.ID || ev.Status != JobStatusCompleted || ev.CitiesScanned != 1 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestStartScanReturnsRunningJobImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeSearch{}, &fakeFetcher{}, passthroughExtractor{})
	job, err := f.orch.StartScan(context.Background(), []CityRequest{{City: "Ames", State: "IA"}})
	if err != nil {
		t.Fatalf("StartScan() error = %v", err)
	}
	if job.Status != JobStatusRunning {
		t.Fatalf("initial status = %s, want running", job.Status)
	}
	if job.CompletedAt != nil {
		t.Fatal("completed_at set on a running job")
	}

	// Poll until the background goroutine finishes.
	deadline := time.After(5 * time.Second)
	for {
		current, err := f.store.GetJob(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if current.Status.IsTerminal() {
			if current.Status != JobStatusCompleted {
				t.Fatalf("final status = %s, want completed", current.Status)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("job never reached a terminal state")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
