package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// keyPrefix namespaces report cache entries so the same Redis can host
// other keyspaces later.
const keyPrefix = "report:"

// Cache implements storage.ReportCache using Redis. Expiry is delegated
// to Redis TTLs, so entries vanish on their own and restarts of this
// service do not reset the clock.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func NewCache(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Compile-time interface check.
var _ storage.ReportCache = (*Cache)(nil)

// Get retrieves a cached report. Returns ErrNotFound on miss or expiry.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*domain.AnalysisReport, error) {
	payload, err := c.client.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cached report: %w", err)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

// Set stores a report under fingerprint for ttl.
func (c *Cache) Set(ctx context.Context, fingerprint string, report *domain.AnalysisReport, ttl time.Duration) error {
	if fingerprint == "" || report == nil || ttl <= 0 {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+fingerprint, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached report: %w", err)
	}
	return nil
}

// Delete evicts a cached report. Evicting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, fingerprint string) error {
	if err := c.client.Del(ctx, keyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("delete cached report: %w", err)
	}
	return nil
}
