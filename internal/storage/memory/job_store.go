package memory

import (
	"context"
	"sync"
	"time"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// JobStore is an in-memory implementation of storage.JobStore. One mutex
// guards both maps, which makes CreateIfAbsent a true check-and-insert:
// concurrent callers for the same fingerprint serialize and exactly one wins.
type JobStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.AnalysisJob // keyed by job_id
	active map[string]string              // fingerprint -> non-terminal job_id
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		data:   make(map[string]*domain.AnalysisJob),
		active: make(map[string]string),
	}
}

// CreateIfAbsent inserts the job unless a non-terminal job already exists
// for its fingerprint, in which case the existing job is returned instead.
func (s *JobStore) CreateIfAbsent(_ context.Context, job *domain.AnalysisJob) (*domain.AnalysisJob, bool, error) {
	if job == nil || job.JobID == "" || job.Fingerprint == "" {
		return nil, false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.active[job.Fingerprint]; ok {
		existing := s.data[existingID]
		jobCopy := *existing
		return &jobCopy, false, nil
	}
	if _, exists := s.data[job.JobID]; exists {
		return nil, false, storage.ErrDuplicateKey
	}

	jobCopy := *job
	s.data[job.JobID] = &jobCopy
	if !jobCopy.State.Terminal() {
		s.active[jobCopy.Fingerprint] = jobCopy.JobID
	}

	created := jobCopy
	return &created, true, nil
}

// GetByID retrieves a job by its ID. Returns ErrNotFound if not exists.
func (s *JobStore) GetByID(_ context.Context, jobID string) (*domain.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, exists := s.data[jobID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	jobCopy := *j
	return &jobCopy, nil
}

// GetActive retrieves the non-terminal job for a fingerprint.
func (s *JobStore) GetActive(_ context.Context, fingerprint string) (*domain.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobID, ok := s.active[fingerprint]
	if !ok {
		return nil, storage.ErrNotFound
	}

	jobCopy := *s.data[jobID]
	return &jobCopy, nil
}

// SetState transitions a job and stamps updated_at.
func (s *JobStore) SetState(_ context.Context, jobID string, state domain.JobState, jobErr *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}

	j.State = state
	j.UpdatedAt = time.Now().UTC()
	if jobErr != nil {
		errCopy := *jobErr
		j.Error = &errCopy
	}
	if state.Terminal() && s.active[j.Fingerprint] == jobID {
		delete(s.active, j.Fingerprint)
	}
	return nil
}

// FailStale marks non-terminal jobs last updated before cutoff as failed.
func (s *JobStore) FailStale(_ context.Context, cutoff time.Time, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed := 0
	for _, j := range s.data {
		if j.State.Terminal() || !j.UpdatedAt.Before(cutoff) {
			continue
		}
		j.State = domain.JobFailed
		j.UpdatedAt = time.Now().UTC()
		reasonCopy := reason
		j.Error = &reasonCopy
		if s.active[j.Fingerprint] == j.JobID {
			delete(s.active, j.Fingerprint)
		}
		failed++
	}
	return failed, nil
}

// DeleteTerminalBefore removes completed and failed jobs last updated
// before cutoff.
func (s *JobStore) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, j := range s.data {
		if j.State.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

// Verify interface compliance at compile time.
var _ storage.JobStore = (*JobStore)(nil)
