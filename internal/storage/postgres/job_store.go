package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// JobStore implements storage.JobStore using PostgreSQL. The
// one-active-job-per-fingerprint guarantee rides on a partial unique
// index over non-terminal states; concurrent creates race on that index
// and exactly one insert wins.
type JobStore struct {
	pool *Pool
}

// NewJobStore creates a new JobStore.
func NewJobStore(pool *Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.JobStore = (*JobStore)(nil)

const jobColumns = `
	job_id, fingerprint, chain, address, state, error, created_at, updated_at
`

// CreateIfAbsent inserts the job unless a non-terminal job already exists
// for its fingerprint, in which case the existing job is returned instead.
func (s *JobStore) CreateIfAbsent(ctx context.Context, job *domain.AnalysisJob) (*domain.AnalysisJob, bool, error) {
	if job == nil || job.JobID == "" || job.Fingerprint == "" {
		return nil, false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO analysis_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) WHERE state IN ('queued', 'running') DO NOTHING
	`

	// A lost insert and a finishing winner can interleave, so retry the
	// insert-or-observe pair a few times before giving up.
	for attempt := 0; attempt < 3; attempt++ {
		tag, err := s.pool.Exec(ctx, query,
			job.JobID, job.Fingerprint, string(job.Chain), job.Address,
			string(job.State), job.Error, job.CreatedAt, job.UpdatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return nil, false, storage.ErrDuplicateKey
			}
			return nil, false, fmt.Errorf("create job: %w", err)
		}
		if tag.RowsAffected() == 1 {
			jobCopy := *job
			return &jobCopy, true, nil
		}

		existing, err := s.GetActive(ctx, job.Fingerprint)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, false, err
		}
	}

	return nil, false, fmt.Errorf("create job: lost insert race and no active job for %s", job.Fingerprint)
}

// GetByID retrieves a job by its ID. Returns ErrNotFound if not exists.
func (s *JobStore) GetByID(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM analysis_jobs
		WHERE job_id = $1
	`

	row := s.pool.QueryRow(ctx, query, jobID)
	j, err := scanJob(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return j, nil
}

// GetActive retrieves the non-terminal job for a fingerprint.
func (s *JobStore) GetActive(ctx context.Context, fingerprint string) (*domain.AnalysisJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM analysis_jobs
		WHERE fingerprint = $1 AND state IN ('queued', 'running')
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, fingerprint)
	j, err := scanJob(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active job: %w", err)
	}
	return j, nil
}

// SetState transitions a job and stamps updated_at.
func (s *JobStore) SetState(ctx context.Context, jobID string, state domain.JobState, jobErr *string) error {
	query := `
		UPDATE analysis_jobs
		SET state = $2, error = COALESCE($3, error), updated_at = $4
		WHERE job_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, jobID, string(state), jobErr, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set job state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FailStale marks non-terminal jobs last updated before cutoff as failed.
func (s *JobStore) FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error) {
	query := `
		UPDATE analysis_jobs
		SET state = 'failed', error = $2, updated_at = $3
		WHERE state IN ('queued', 'running') AND updated_at < $1
	`

	tag, err := s.pool.Exec(ctx, query, cutoff, reason, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteTerminalBefore removes completed and failed jobs last updated
// before cutoff.
func (s *JobStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM analysis_jobs
		WHERE state IN ('completed', 'failed') AND updated_at < $1
	`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanJob scans a single row into an AnalysisJob.
func scanJob(row pgx.Row) (*domain.AnalysisJob, error) {
	var j domain.AnalysisJob
	var chainStr, stateStr string

	err := row.Scan(
		&j.JobID, &j.Fingerprint, &chainStr, &j.Address,
		&stateStr, &j.Error, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Chain = domain.Chain(chainStr)
	j.State = domain.JobState(stateStr)
	return &j, nil
}
