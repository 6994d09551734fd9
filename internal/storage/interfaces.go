package storage

import (
	"context"
	"time"

	"coinclarity/internal/domain"
)

// ReportStore provides access to analysis_reports storage.
// Reports are append-only; re-analysis inserts a superseding report and
// earlier history is retained.
type ReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if report_id exists.
	Insert(ctx context.Context, r *domain.AnalysisReport) error

	// GetLatest retrieves the most recent report for a token.
	// Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, chain domain.Chain, address string) (*domain.AnalysisReport, error)

	// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, reportID string) (*domain.AnalysisReport, error)

	// History retrieves up to limit reports for a token, newest first.
	History(ctx context.Context, chain domain.Chain, address string, limit int) ([]*domain.AnalysisReport, error)
}

// JobStore provides access to analysis_jobs storage.
// CreateIfAbsent must be atomic: under concurrent calls for one fingerprint,
// exactly one insert wins and every other caller observes the winner.
type JobStore interface {
	// CreateIfAbsent inserts the job unless a non-terminal job already exists
	// for its fingerprint. Returns the surviving job, plus true when the
	// insert won or false when an existing job was returned instead.
	CreateIfAbsent(ctx context.Context, job *domain.AnalysisJob) (*domain.AnalysisJob, bool, error)

	// GetByID retrieves a job by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, jobID string) (*domain.AnalysisJob, error)

	// GetActive retrieves the non-terminal job for a fingerprint.
	// Returns ErrNotFound if none exists.
	GetActive(ctx context.Context, fingerprint string) (*domain.AnalysisJob, error)

	// SetState transitions a job and stamps updated_at. jobErr is recorded
	// alongside failed states. Returns ErrNotFound for unknown job IDs.
	SetState(ctx context.Context, jobID string, state domain.JobState, jobErr *string) error

	// FailStale marks non-terminal jobs last updated before cutoff as failed
	// with the given reason. Returns the number of jobs failed.
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error)

	// DeleteTerminalBefore removes completed and failed jobs last updated
	// before cutoff. Returns the number of jobs removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ReportCache is the TTL cache sitting in front of the report store.
type ReportCache interface {
	// Get retrieves a cached report. Returns ErrNotFound on miss or expiry.
	Get(ctx context.Context, fingerprint string) (*domain.AnalysisReport, error)

	// Set stores a report under fingerprint for ttl.
	Set(ctx context.Context, fingerprint string, report *domain.AnalysisReport, ttl time.Duration) error

	// Delete evicts a cached report. Evicting a missing key is not an error.
	Delete(ctx context.Context, fingerprint string) error
}

// ScoreHistoryStore provides access to score_history analytics storage.
type ScoreHistoryStore interface {
	// Insert appends a score point for a completed analysis.
	Insert(ctx context.Context, p *domain.ScorePoint) error

	// GetByFingerprint retrieves up to limit points for a token, oldest first.
	GetByFingerprint(ctx context.Context, fingerprint string, limit int) ([]*domain.ScorePoint, error)
}
