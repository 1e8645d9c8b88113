// Package postgres provides the Postgres-backed job/result store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists jobs and results in Postgres.
type Store struct {
	pool dbConn
}

// New creates a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbConn) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// schema creates the scanner tables if they do not exist.
const schema = `
CREATE TABLE IF NOT EXISTS scan_jobs (
	id             TEXT PRIMARY KEY,
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ,
	status         TEXT NOT NULL,
	cities_scanned INTEGER NOT NULL DEFAULT 0,
	total_results  INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS scan_results (
	id            BIGSERIAL PRIMARY KEY,
	job_id        TEXT NOT NULL REFERENCES scan_jobs(id) ON DELETE CASCADE,
	city          TEXT NOT NULL,
	state         TEXT NOT NULL,
	keyword       TEXT NOT NULL,
	snippet       TEXT NOT NULL,
	source_url    TEXT NOT NULL,
	page_title    TEXT NOT NULL DEFAULT '',
	meeting_date  DATE,
	document_type TEXT NOT NULL,
	found_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_results_city_state_idx ON scan_results (city, state);
CREATE INDEX IF NOT EXISTS scan_results_keyword_idx ON scan_results (keyword);
`

// EnsureSchema creates the scanner tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateJob stores a new job.
func (s *Store) CreateJob(ctx context.Context, job scanner.ScanJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_jobs (id, started_at, status, cities_scanned, total_results, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.StartedAt, string(job.Status), job.CitiesScanned, job.TotalResults, job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobProgress persists the monotonic progress counters.
func (s *Store) UpdateJobProgress(ctx context.Context, jobID string, citiesScanned, totalResults int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_jobs SET cities_scanned = $2, total_results = $3 WHERE id = $1`,
		jobID, citiesScanned, totalResults,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scanner.ErrJobNotFound
	}
	return nil
}

// CompleteJob performs the terminal transition. The status guard keeps
// the transition idempotent against a duplicate writer.
func (s *Store) CompleteJob(
	ctx context.Context,
	jobID string,
	status scanner.JobStatus,
	errMsg string,
	totalResults int,
	completedAt time.Time,
) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_jobs
		 SET status = $2, error_message = $3, total_results = $4, completed_at = $5
		 WHERE id = $1 AND status = $6`,
		jobID, string(status), errMsg, totalResults, completedAt, string(scanner.JobStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scanner.ErrJobNotFound
	}
	return nil
}

// RecordResult appends a result row for a job.
func (s *Store) RecordResult(ctx context.Context, result scanner.ScanResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_results
		 (job_id, city, state, keyword, snippet, source_url, page_title, meeting_date, document_type, found_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.JobID, result.City, result.State, result.Keyword, result.Snippet,
		result.SourceURL, result.PageTitle, result.MeetingDate, string(result.DocumentType), result.FoundAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

const jobColumns = `id, started_at, completed_at, status, cities_scanned, total_results, error_message`

// GetJob fetches a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (scanner.ScanJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scanner.ScanJob{}, scanner.ErrJobNotFound
		}
		return scanner.ScanJob{}, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

const resultColumns = `id, job_id, city, state, keyword, snippet, source_url, page_title, meeting_date, document_type, found_at`

// ListJobResults returns a job's results, newest first.
func (s *Store) ListJobResults(ctx context.Context, jobID string) ([]scanner.ScanResult, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM scan_results WHERE job_id = $1 ORDER BY found_at DESC, id DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("select job results: %w", err)
	}
	return scanResults(rows)
}

// ListResults returns filtered results across all jobs, newest first.
func (s *Store) ListResults(ctx context.Context, filter scanner.ResultFilter) ([]scanner.ScanResult, error) {
	query := `SELECT ` + resultColumns + ` FROM scan_results`
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.City != "" {
		clauses = append(clauses, `LOWER(city) = LOWER(`+arg(filter.City)+`)`)
	}
	if filter.State != "" {
		clauses = append(clauses, `LOWER(state) = LOWER(`+arg(filter.State)+`)`)
	}
	if filter.Keyword != "" {
		clauses = append(clauses, `keyword ILIKE `+arg("%"+filter.Keyword+"%"))
	}
	if filter.DateFrom != nil {
		clauses = append(clauses, `found_at >= `+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		clauses = append(clauses, `found_at <= `+arg(*filter.DateTo))
	}
	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf(
			`(snippet ILIKE %[1]s OR page_title ILIKE %[1]s OR city ILIKE %[1]s OR keyword ILIKE %[1]s)`,
			pattern,
		))
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY found_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	return scanResults(rows)
}

// ListJobs returns the most recent jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]scanner.ScanJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs ORDER BY started_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	defer rows.Close()
	var jobs []scanner.ScanJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Stats aggregates scanner activity.
func (s *Store) Stats(ctx context.Context) (scanner.Stats, error) {
	var stats scanner.Stats
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(DISTINCT (LOWER(city), LOWER(state))),
		        COUNT(DISTINCT keyword)
		 FROM scan_results`)
	if err := row.Scan(&stats.TotalMentions, &stats.CitiesWithHits, &stats.ActiveKeywords); err != nil {
		return scanner.Stats{}, fmt.Errorf("select stats: %w", err)
	}
	last, err := s.ListJobs(ctx, 1)
	if err != nil {
		return scanner.Stats{}, err
	}
	if len(last) > 0 {
		stats.LastScan = &last[0]
	}
	return stats, nil
}

func scanJob(row pgx.Row) (scanner.ScanJob, error) {
	var (
		job    scanner.ScanJob
		status string
	)
	err := row.Scan(
		&job.ID, &job.StartedAt, &job.CompletedAt, &status,
		&job.CitiesScanned, &job.TotalResults, &job.ErrorMessage,
	)
	if err != nil {
		return scanner.ScanJob{}, err
	}
	job.Status = scanner.JobStatus(status)
	return job, nil
}

func scanResults(rows pgx.Rows) ([]scanner.ScanResult, error) {
	defer rows.Close()
	var results []scanner.ScanResult
	for rows.Next() {
		var (
			res     scanner.ScanResult
			docType string
		)
		err := rows.Scan(
			&res.ID, &res.JobID, &res.City, &res.State, &res.Keyword, &res.Snippet,
			&res.SourceURL, &res.PageTitle, &res.MeetingDate, &docType, &res.FoundAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		res.DocumentType = scanner.DocumentType(docType)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
