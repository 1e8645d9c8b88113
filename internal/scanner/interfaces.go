package scanner

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by stores when a job ID is unknown.
var ErrJobNotFound = errors.New("scan job not found")

// Store persists job and result records. It is written by the single
// orchestrator goroutine that owns a job and read by arbitrarily many
// concurrent API callers.
type Store interface {
	CreateJob(ctx context.Context, job ScanJob) error
	UpdateJobProgress(ctx context.Context, jobID string, citiesScanned, totalResults int) error
	CompleteJob(ctx context.Context, jobID string, status JobStatus, errMsg string, totalResults int, completedAt time.Time) error
	RecordResult(ctx context.Context, result ScanResult) error
	GetJob(ctx context.Context, jobID string) (ScanJob, error)
	ListJobResults(ctx context.Context, jobID string) ([]ScanResult, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]ScanResult, error)
	ListJobs(ctx context.Context, limit int) ([]ScanJob, error)
	Stats(ctx context.Context) (Stats, error)
}

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor converts a fetched document into plain text plus a
// best-effort title. Empty text with a nil error means the document
// has nothing to scan and must be skipped, not failed.
type Extractor interface {
	Extract(doc Document) (text, title string, err error)
}

// SearchProvider issues a web search query and returns raw candidates.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Pacer blocks between outbound requests to throttle target hosts.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
