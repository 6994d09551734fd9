package memory

import (
	"context"
	"sort"
	"sync"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// ScoreHistoryStore is an in-memory implementation of storage.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.ScorePoint // keyed by fingerprint
}

// NewScoreHistoryStore creates a new in-memory score history store.
func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{
		data: make(map[string][]*domain.ScorePoint),
	}
}

// Insert appends a score point for a completed analysis.
func (s *ScoreHistoryStore) Insert(_ context.Context, p *domain.ScorePoint) error {
	if p == nil || p.Fingerprint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pointCopy := *p
	s.data[p.Fingerprint] = append(s.data[p.Fingerprint], &pointCopy)
	return nil
}

// GetByFingerprint retrieves up to limit points for a token, oldest first.
func (s *ScoreHistoryStore) GetByFingerprint(_ context.Context, fingerprint string, limit int) ([]*domain.ScorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[fingerprint]
	result := make([]*domain.ScorePoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	// Sort by scored_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScoredAt.Before(result[j].ScoredAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)
