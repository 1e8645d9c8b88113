package scanner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fleetline/minutes-scanner/internal/metrics"
)

// maxErrorMessageLen bounds the error text stored on a failed job.
const maxErrorMessageLen = 500

// maxTitleLen bounds a stored page title.
const maxTitleLen = 300

// OrchestratorConfig controls the per-city scan loop.
type OrchestratorConfig struct {
	// MaxSearchResults is the number of raw hits requested per city.
	MaxSearchResults int
	// MaxURLsPerCity caps the filtered candidate list per city.
	MaxURLsPerCity int
}

// Orchestrator owns the ScanJob lifecycle: it drives the per-city
// loop, throttles outbound requests, deduplicates hits, persists
// incremental progress, and moves the job to a terminal state.
type Orchestrator struct {
	store     Store
	search    SearchProvider
	fetcher   Fetcher
	extractor Extractor
	matcher   *Matcher
	urlFilter *regexp.Regexp
	pacer     Pacer
	publisher Publisher
	clock     Clock
	ids       IDGenerator
	cfg       OrchestratorConfig
	logger    *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	store Store,
	search SearchProvider,
	fetcher Fetcher,
	extractor Extractor,
	matcher *Matcher,
	urlFilter *regexp.Regexp,
	pacer Pacer,
	publisher Publisher,
	clock Clock,
	ids IDGenerator,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 20
	}
	if cfg.MaxURLsPerCity <= 0 {
		cfg.MaxURLsPerCity = 15
	}
	return &Orchestrator{
		store:     store,
		search:    search,
		fetcher:   fetcher,
		extractor: extractor,
		matcher:   matcher,
		urlFilter: urlFilter,
		pacer:     pacer,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartScan creates a running job and launches its worker goroutine.
// It returns immediately with the job's initial state; clients poll
// the store for progress. There is no cancellation: once triggered, a
// job runs to completion or failure.
func (o *Orchestrator) StartScan(ctx context.Context, cities []CityRequest) (ScanJob, error) {
	job, err := o.createJob(ctx)
	if err != nil {
		return ScanJob{}, err
	}
	go o.run(context.Background(), job, cities)
	return job, nil
}

// Scan runs a job synchronously and returns its final state. Used by
// the one-shot CLI command; the API path uses StartScan.
func (o *Orchestrator) Scan(ctx context.Context, cities []CityRequest) (ScanJob, error) {
	job, err := o.createJob(ctx)
	if err != nil {
		return ScanJob{}, err
	}
	o.run(ctx, job, cities)
	return o.store.GetJob(ctx, job.ID)
}

func (o *Orchestrator) createJob(ctx context.Context) (ScanJob, error) {
	id, err := o.ids.NewID()
	if err != nil {
		return ScanJob{}, fmt.Errorf("generate job id: %w", err)
	}
	job := ScanJob{
		ID:        id,
		StartedAt: o.clock.Now(),
		Status:    JobStatusRunning,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return ScanJob{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// run executes the scan loop and performs exactly one terminal
// transition. Per-URL failures are logged and skipped; store failures
// and panics escape the loop and fail the job.
func (o *Orchestrator) run(ctx context.Context, job ScanJob, cities []CityRequest) {
	var citiesScanned, totalResults int

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("scan panic: %v", r)
			}
		}()
		for _, city := range cities {
			found, cityErr := o.scanCity(ctx, job.ID, city)
			totalResults += found
			if cityErr != nil {
				return cityErr
			}
			citiesScanned++
			if err := o.store.UpdateJobProgress(ctx, job.ID, citiesScanned, totalResults); err != nil {
				return fmt.Errorf("persist progress: %w", err)
			}
			metrics.CityScanned()
		}
		return nil
	}()

	now := o.clock.Now()
	status := JobStatusCompleted
	errMsg := ""
	if err != nil {
		status = JobStatusFailed
		errMsg = truncate(err.Error(), maxErrorMessageLen)
		o.logger.Error("scan job failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
	if err := o.store.CompleteJob(ctx, job.ID, status, errMsg, totalResults, now); err != nil {
		o.logger.Error("final job status update failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return
	}
	metrics.JobFinished(string(status))
	o.logger.Info("scan job finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(status)),
		zap.Int("cities_scanned", citiesScanned),
		zap.Int("total_results", totalResults),
	)
	o.publishCompletion(ctx, CompletionEvent{
		JobID:         job.ID,
		Status:        status,
		CitiesScanned: citiesScanned,
		TotalResults:  totalResults,
		CompletedAt:   now,
	})
}

// scanCity searches one city, filters candidates, and processes each
// retained URL. The returned error is fatal to the job; transient
// per-URL and provider failures never surface here.
func (o *Orchestrator) scanCity(ctx context.Context, jobID string, city CityRequest) (int, error) {
	query := fmt.Sprintf("%q %q city council meeting minutes", city.City, city.State)
	o.logger.Info("scanning city",
		zap.String("job_id", jobID),
		zap.String("query", query),
	)

	hits, err := o.search.Search(ctx, query, o.cfg.MaxSearchResults)
	if err != nil {
		o.logger.Warn("search provider failed, skipping city",
			zap.String("job_id", jobID),
			zap.String("city", city.City),
			zap.Error(err),
		)
		hits = nil
	}
	metrics.SearchHits(len(hits))
	candidates := FilterCandidates(hits, o.urlFilter, o.cfg.MaxURLsPerCity)

	// Dedup scope is a single city pass: the same keyword on the same
	// URL may repeat under a different city context.
	seen := make(map[resultKey]struct{})
	found := 0
	for _, hit := range candidates {
		if hit.URL == "" {
			continue
		}
		// Pause before every fetch, including the first, to throttle
		// the provider and target hosts uniformly.
		if err := o.pacer.Wait(ctx); err != nil {
			return found, fmt.Errorf("pacer wait: %w", err)
		}
		n, err := o.processURL(ctx, jobID, city, hit, seen)
		found += n
		if err != nil {
			return found, err
		}
	}
	return found, nil
}

// processURL fetches, extracts, and matches one candidate. Fetch and
// extraction failures skip the URL; only store failures return an
// error.
func (o *Orchestrator) processURL(
	ctx context.Context,
	jobID string,
	city CityRequest,
	hit SearchHit,
	seen map[resultKey]struct{},
) (int, error) {
	docType := DocumentHTML
	if strings.HasSuffix(strings.ToLower(hit.URL), ".pdf") {
		docType = DocumentPDF
	}

	start := o.clock.Now()
	body, err := o.fetcher.Fetch(ctx, hit.URL)
	metrics.ObserveFetchDuration(string(docType), o.clock.Now().Sub(start))
	if err != nil {
		metrics.FetchFailed()
		o.logger.Warn("fetch failed, skipping url",
			zap.String("job_id", jobID),
			zap.String("url", hit.URL),
			zap.Error(err),
		)
		return 0, nil
	}

	text, title, err := o.extractor.Extract(Document{URL: hit.URL, Type: docType, Body: body})
	if err != nil {
		o.logger.Warn("extraction failed, skipping url",
			zap.String("job_id", jobID),
			zap.String("url", hit.URL),
			zap.Error(err),
		)
		return 0, nil
	}
	if text == "" {
		return 0, nil
	}
	if title == "" {
		title = truncate(hit.Title, maxTitleLen)
	}

	found := 0
	for _, match := range o.matcher.FindMatches(text) {
		key := resultKey{url: hit.URL, keyword: match.Keyword}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		result := ScanResult{
			JobID:        jobID,
			City:         city.City,
			State:        city.State,
			Keyword:      match.Keyword,
			Snippet:      o.matcher.Snippet(text, match.Start, match.End),
			SourceURL:    hit.URL,
			PageTitle:    title,
			MeetingDate:  o.matcher.MeetingDate(text, match.Start, match.End),
			DocumentType: docType,
			FoundAt:      o.clock.Now(),
		}
		if err := o.store.RecordResult(ctx, result); err != nil {
			return found, fmt.Errorf("record result: %w", err)
		}
		found++
		metrics.ResultRecorded()
	}
	return found, nil
}

func (o *Orchestrator) publishCompletion(ctx context.Context, event CompletionEvent) {
	if o.publisher == nil {
		return
	}
	if _, err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("publish completion event failed",
			zap.String("job_id", event.JobID),
			zap.Error(err),
		)
	}
}

// resultKey is the per-city-pass dedup key.
type resultKey struct {
	url     string
	keyword string
}

// truncate caps s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
