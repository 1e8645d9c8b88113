// Package scanner defines core types shared across subsystems.
package scanner

import "time"

// JobStatus represents the lifecycle state of a scan job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status permits no further mutation.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DocumentType identifies the format of a fetched document.
type DocumentType string

// Document types recorded on scan results.
const (
	DocumentHTML DocumentType = "html"
	DocumentPDF  DocumentType = "pdf"
)

// CityRequest is one city/state pair submitted with a scan trigger.
type CityRequest struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// ScanJob is the metadata persisted for one invocation of the scanner
// over a set of cities. A job is mutated by exactly one orchestrator
// goroutine for the duration of its run.
type ScanJob struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Status        JobStatus  `json:"status"`
	CitiesScanned int        `json:"cities_scanned"`
	TotalResults  int        `json:"total_results"`
	ErrorMessage  string     `json:"error_message"`
}

// ScanResult is one persisted (URL, keyword) hit belonging to a job.
type ScanResult struct {
	ID           int64        `json:"id"`
	JobID        string       `json:"scan_job"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Keyword      string       `json:"keyword"`
	Snippet      string       `json:"snippet"`
	SourceURL    string       `json:"source_url"`
	PageTitle    string       `json:"page_title"`
	MeetingDate  *time.Time   `json:"meeting_date"`
	DocumentType DocumentType `json:"document_type"`
	FoundAt      time.Time    `json:"found_at"`
}

// SearchHit is one raw candidate returned by a search provider.
type SearchHit struct {
	Title string
	URL   string
	Body  string
}

// Document carries fetched bytes plus enough context to extract them.
type Document struct {
	URL  string
	Type DocumentType
	Body []byte
}

// ResultFilter narrows a result listing. Zero values mean "no filter".
type ResultFilter struct {
	City     string
	State    string
	Keyword  string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

// Stats aggregates scanner activity for the dashboard.
type Stats struct {
	TotalMentions  int      `json:"total_mentions"`
	CitiesWithHits int      `json:"cities_with_hits"`
	LastScan       *ScanJob `json:"last_scan"`
	ActiveKeywords int      `json:"active_keywords"`
}

// CompletionEvent is published when a job reaches a terminal state.
type CompletionEvent struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	CitiesScanned int       `json:"cities_scanned"`
	TotalResults  int       `json:"total_results"`
	CompletedAt   time.Time `json:"completed_at"`
}
