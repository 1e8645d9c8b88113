// Package memory provides an in-memory store for development/testing.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// Store keeps jobs and results in process memory behind a RWMutex.
// Jobs are written by their single owning orchestrator goroutine and
// read by arbitrarily many concurrent API callers.
type Store struct {
	mu       sync.RWMutex
	jobs     map[string]scanner.ScanJob
	jobOrder []string
	results  []scanner.ScanResult
	byJob    map[string][]int
	nextID   int64
}

// New constructs a Store.
func New() *Store {
	return &Store{
		jobs:  make(map[string]scanner.ScanJob),
		byJob: make(map[string][]int),
	}
}

// CreateJob stores a new job.
func (s *Store) CreateJob(_ context.Context, job scanner.ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// UpdateJobProgress persists the monotonic progress counters so
// polling clients observe progress mid-run.
func (s *Store) UpdateJobProgress(_ context.Context, jobID string, citiesScanned, totalResults int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scanner.ErrJobNotFound
	}
	job.CitiesScanned = citiesScanned
	job.TotalResults = totalResults
	s.jobs[jobID] = job
	return nil
}

// CompleteJob performs the terminal transition exactly once.
func (s *Store) CompleteJob(
	_ context.Context,
	jobID string,
	status scanner.JobStatus,
	errMsg string,
	totalResults int,
	completedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scanner.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.Status)
	}
	job.Status = status
	job.ErrorMessage = errMsg
	job.TotalResults = totalResults
	job.CompletedAt = &completedAt
	s.jobs[jobID] = job
	return nil
}

// RecordResult appends a result row for a job.
func (s *Store) RecordResult(_ context.Context, result scanner.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[result.JobID]; !ok {
		return scanner.ErrJobNotFound
	}
	s.nextID++
	result.ID = s.nextID
	s.byJob[result.JobID] = append(s.byJob[result.JobID], len(s.results))
	s.results = append(s.results, result)
	return nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(_ context.Context, jobID string) (scanner.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scanner.ScanJob{}, scanner.ErrJobNotFound
	}
	return job, nil
}

// ListJobResults returns a job's results, newest first.
func (s *Store) ListJobResults(_ context.Context, jobID string) ([]scanner.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil, scanner.ErrJobNotFound
	}
	indexes := s.byJob[jobID]
	out := make([]scanner.ScanResult, 0, len(indexes))
	for i := len(indexes) - 1; i >= 0; i-- {
		out = append(out, s.results[indexes[i]])
	}
	return out, nil
}

// ListResults returns filtered results across all jobs, newest first,
// capped at filter.Limit.
func (s *Store) ListResults(_ context.Context, filter scanner.ResultFilter) ([]scanner.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scanner.ScanResult
	for i := len(s.results) - 1; i >= 0; i-- {
		res := s.results[i]
		if !matchesFilter(res, filter) {
			continue
		}
		out = append(out, res)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ListJobs returns the most recent jobs, newest first, without results.
func (s *Store) ListJobs(_ context.Context, limit int) ([]scanner.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scanner.ScanJob
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		out = append(out, s.jobs[s.jobOrder[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Stats aggregates scanner activity across all jobs.
func (s *Store) Stats(_ context.Context) (scanner.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cities := make(map[string]struct{})
	keywords := make(map[string]struct{})
	for _, res := range s.results {
		cities[strings.ToLower(res.City)+"|"+strings.ToLower(res.State)] = struct{}{}
		keywords[res.Keyword] = struct{}{}
	}
	stats := scanner.Stats{
		TotalMentions:  len(s.results),
		CitiesWithHits: len(cities),
		ActiveKeywords: len(keywords),
	}
	if n := len(s.jobOrder); n > 0 {
		last := s.jobs[s.jobOrder[n-1]]
		stats.LastScan = &last
	}
	return stats, nil
}

func matchesFilter(res scanner.ScanResult, f scanner.ResultFilter) bool {
	if f.City != "" && !strings.EqualFold(res.City, f.City) {
		return false
	}
	if f.State != "" && !strings.EqualFold(res.State, f.State) {
		return false
	}
	if f.Keyword != "" && !containsFold(res.Keyword, f.Keyword) {
		return false
	}
	if f.DateFrom != nil && res.FoundAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && res.FoundAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" &&
		!containsFold(res.Snippet, f.Search) &&
		!containsFold(res.PageTitle, f.Search) &&
		!containsFold(res.City, f.Search) &&
		!containsFold(res.Keyword, f.Search) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
