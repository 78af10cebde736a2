package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hfarouk/docdex/internal/db"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	StatusQueued  JobStatus = "QUEUED"
	StatusRunning JobStatus = "RUNNING"
	StatusDone    JobStatus = "DONE"
	StatusFailed  JobStatus = "FAILED"
)

// JobTypeIndexDocument is the only job type today; the column exists so
// other background work can share the queue later.
const JobTypeIndexDocument = "INDEX_DOCUMENT"

// maxErrorLen bounds stored failure messages.
const maxErrorLen = 2000

// Job is one durable unit of asynchronous work. Rows are never deleted;
// DONE and FAILED jobs double as an audit trail.
type Job struct {
	ID           int64      `json:"id"`
	DocumentID   string     `json:"document_id"`
	ContentHash  string     `json:"content_hash"`
	JobType      string     `json:"job_type"`
	Status       JobStatus  `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LeaseExpires *time.Time `json:"lease_expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Queue is a durable job queue over the jobs table. Claims are atomic
// conditional updates, so concurrent workers never run the same job.
type Queue struct {
	db    *db.DB
	lease time.Duration
}

// New creates a queue. Claimed jobs hold a lease for the given duration;
// ReclaimExpired returns jobs whose lease has lapsed to QUEUED so a crashed
// worker does not strand them in RUNNING forever.
func New(database *db.DB, lease time.Duration) *Queue {
	return &Queue{db: database, lease: lease}
}

// Enqueue inserts a QUEUED indexing job for the document. If a job with
// the same content hash already exists this is a silent no-op — the
// re-upload dedup guarantee.
func (q *Queue) Enqueue(ctx context.Context, documentID, contentHash string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO jobs (document_id, content_hash, job_type, status)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO NOTHING`,
		documentID, contentHash, JobTypeIndexDocument, StatusQueued)
	if err != nil {
		return fmt.Errorf("enqueueing job for document %s: %w", documentID, err)
	}
	return nil
}

// Claim atomically takes the oldest QUEUED job and transitions it to
// RUNNING with a fresh lease. Returns nil when no QUEUED job exists, or
// when another worker won the race for the candidate row.
func (q *Queue) Claim(ctx context.Context) (*Job, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		"SELECT id FROM jobs WHERE status = ? ORDER BY id LIMIT 1", StatusQueued).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting queued job: %w", err)
	}

	// The status condition makes this a compare-and-swap: zero rows
	// affected means another worker claimed the job first.
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = ?, lease_expires_at = datetime('now', ?), updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		StatusRunning, leaseModifier(q.lease), id, StatusQueued)
	if err != nil {
		return nil, fmt.Errorf("claiming job %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	return q.Get(ctx, id)
}

// Complete marks a RUNNING job DONE. Terminal; the row is never reused.
func (q *Queue) Complete(ctx context.Context, jobID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, lease_expires_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		StatusDone, jobID, StatusRunning)
	if err != nil {
		return fmt.Errorf("completing job %d: %w", jobID, err)
	}
	return nil
}

// Fail marks a RUNNING job FAILED with the captured error, truncated to a
// bounded length. Terminal.
func (q *Queue) Fail(ctx context.Context, jobID int64, msg string) error {
	if runes := []rune(msg); len(runes) > maxErrorLen {
		msg = string(runes[:maxErrorLen])
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, lease_expires_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		StatusFailed, msg, jobID, StatusRunning)
	if err != nil {
		return fmt.Errorf("failing job %d: %w", jobID, err)
	}
	return nil
}

// ReclaimExpired returns RUNNING jobs with a lapsed lease to QUEUED and
// reports how many were reclaimed. This is the recovery path for jobs
// whose worker died mid-run.
func (q *Queue) ReclaimExpired(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, lease_expires_at = NULL, updated_at = datetime('now')
		 WHERE status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < datetime('now')`,
		StatusQueued, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("reclaiming expired jobs: %w", err)
	}
	return res.RowsAffected()
}

// Get returns the job with the given id.
func (q *Queue) Get(ctx context.Context, jobID int64) (*Job, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, document_id, content_hash, job_type, status,
		        COALESCE(error_message, ''), lease_expires_at, created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d not found", jobID)
	}
	return j, err
}

// List returns the most recent jobs, newest first, up to limit.
func (q *Queue) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, document_id, content_hash, job_type, status,
		        COALESCE(error_message, ''), lease_expires_at, created_at, updated_at
		 FROM jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*Job, error) {
	var (
		j                    Job
		lease                sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(&j.ID, &j.DocumentID, &j.ContentHash, &j.JobType, &j.Status,
		&j.ErrorMessage, &lease, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	if lease.Valid {
		if t := parseSQLiteTime(lease.String); !t.IsZero() {
			j.LeaseExpires = &t
		}
	}
	j.CreatedAt = parseSQLiteTime(createdAt)
	j.UpdatedAt = parseSQLiteTime(updatedAt)
	return &j, nil
}

func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// leaseModifier renders a duration as a SQLite datetime modifier.
func leaseModifier(d time.Duration) string {
	return fmt.Sprintf("%+d seconds", int64(d.Seconds()))
}
