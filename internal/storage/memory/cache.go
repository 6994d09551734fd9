package memory

import (
	"context"
	"sync"
	"time"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

type cacheEntry struct {
	report    *domain.AnalysisReport
	expiresAt time.Time
}

// ReportCache is an in-memory TTL implementation of storage.ReportCache.
// Expired entries are evicted lazily on read.
type ReportCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

// NewReportCache creates a new in-memory report cache.
func NewReportCache() *ReportCache {
	return &ReportCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get retrieves a cached report. Returns ErrNotFound on miss or expiry.
func (c *ReportCache) Get(_ context.Context, fingerprint string) (*domain.AnalysisReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[fingerprint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.data, fingerprint)
		return nil, storage.ErrNotFound
	}

	reportCopy := *entry.report
	return &reportCopy, nil
}

// Set stores a report under fingerprint for ttl.
func (c *ReportCache) Set(_ context.Context, fingerprint string, report *domain.AnalysisReport, ttl time.Duration) error {
	if fingerprint == "" || report == nil || ttl <= 0 {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reportCopy := *report
	c.data[fingerprint] = cacheEntry{
		report:    &reportCopy,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Delete evicts a cached report. Evicting a missing key is not an error.
func (c *ReportCache) Delete(_ context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, fingerprint)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ReportCache = (*ReportCache)(nil)
