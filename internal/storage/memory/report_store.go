package memory

import (
	"context"
	"sort"
	"sync"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AnalysisReport // keyed by report_id
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.AnalysisReport),
	}
}

// Insert adds a new report. Returns ErrDuplicateKey if report_id exists.
func (s *ReportStore) Insert(_ context.Context, r *domain.AnalysisReport) error {
	if r == nil || r.ReportID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ReportID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	reportCopy := *r
	s.data[r.ReportID] = &reportCopy
	return nil
}

// GetLatest retrieves the most recent report for a token.
func (s *ReportStore) GetLatest(_ context.Context, chain domain.Chain, address string) (*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.AnalysisReport
	for _, r := range s.data {
		if r.Chain != chain || r.Address != address {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	reportCopy := *latest
	return &reportCopy, nil
}

// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByID(_ context.Context, reportID string) (*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[reportID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	reportCopy := *r
	return &reportCopy, nil
}

// History retrieves up to limit reports for a token, newest first.
func (s *ReportStore) History(_ context.Context, chain domain.Chain, address string, limit int) ([]*domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnalysisReport
	for _, r := range s.data {
		if r.Chain == chain && r.Address == address {
			reportCopy := *r
			result = append(result, &reportCopy)
		}
	}

	// Sort by created_at DESC
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ReportStore = (*ReportStore)(nil)
