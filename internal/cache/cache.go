package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Client wraps Redis operations with caching patterns including cache-aside,
// singleflight for stampede protection, and TTL jitter to prevent thundering herd.
type Client struct {
	Redis  *redis.Client // Exported for direct access (e.g., CLI operations)
	sf     singleflight.Group
	config Config
}

// Stats summarizes the keys matched by a pattern scan, used by CLI inspection.
type Stats struct {
	Count int
	TTLs  []time.Duration
}

// Config defines cache behavior and TTL durations for different cache types.
type Config struct {
	App     string // Application namespace (e.g., "rankcore")
	Env     string
	Version string    // Cache schema version for invalidation via version bumping
	Enabled bool      // Controls whether caching is active
	TTLs    TTLConfig // TTLs for different cache types
}

// TTLConfig defines time-to-live durations for different cache categories.
// All durations use jitter to prevent simultaneous expiration (thundering herd).
type TTLConfig struct {
	Entity   time.Duration // Caches for single resource lookups (e.g., GET /v1/teams/{master_id})
	List     time.Duration // Caches for collection queries (e.g., GET /v1/rankings/{age}/{gender})
	Search   time.Duration // Search result caches for high-cardinality queries
	Upstream time.Duration // Caches for third-party API proxying
	Negative time.Duration // Caches for "not found" responses to reduce DB load
}

// DefaultTTLConfig returns the recommended TTL values from the caching strategy doc.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Entity:   30 * time.Minute,
		List:     60 * time.Second,
		Search:   45 * time.Second,
		Upstream: 120 * time.Second,
		Negative: 30 * time.Second,
	}
}

// NewClient creates a cache client with singleflight support for stampede protection.
func NewClient(redisClient *redis.Client, config Config) *Client {
	return &Client{
		Redis:  redisClient,
		config: config,
	}
}

// buildKey constructs a cache key following the pattern:
// {app}:{env}:{version}:{type}:{identifier}
//
// Example: rankcore:prod:v1:entity:master_team:mt_0f3a...
func (c *Client) buildKey(keyType, identifier string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		c.config.App,
		c.config.Env,
		c.config.Version,
		keyType,
		identifier,
	)
}

// HashParams generates a stable SHA-256 hash from query parameters for cache keys.
// It normalizes parameters by sorting keys lexicographically to ensure consistent hashing.
func HashParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if v := params[k]; v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}

	normalized := strings.Join(parts, "&")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// addJitter adds random jitter (±10%) to TTL to prevent simultaneous expiration.
// This implements the stampede protection strategy from the caching doc.
func addJitter(ttl time.Duration) time.Duration {
	jitterPercent := 0.1
	jitter := time.Duration(float64(ttl) * jitterPercent * (rand.Float64()*2 - 1))
	return ttl + jitter
}

// Get retrieves a value from cache and unmarshals it into dest.
// Returns true if found, false if miss or error (cache failures are non-fatal).
func (c *Client) Get(ctx context.Context, key string, dest any) bool {
	if !c.config.Enabled || c.Redis == nil {
		return false
	}

	data, err := c.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false
	}

	return true
}

// Set stores a value in cache with the specified TTL.
// Adds jitter to TTL to prevent thundering herd.
// Cache write failures are logged but non-fatal.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.config.Enabled || c.Redis == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	ttlWithJitter := addJitter(ttl)
	return c.Redis.Set(ctx, key, data, ttlWithJitter).Err()
}

// Delete removes a key from cache (used for explicit invalidation).
func (c *Client) Delete(ctx context.Context, key string) error {
	if !c.config.Enabled || c.Redis == nil {
		return nil
	}
	return c.Redis.Del(ctx, key).Err()
}

// GetOrCompute implements cache-aside pattern with singleflight.
// If cache miss, calls compute function and stores result.
// Singleflight ensures only one concurrent request computes the value.
func (c *Client) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	if !c.config.Enabled || c.Redis == nil {
		return compute()
	}

	var result any
	if c.Get(ctx, key, &result) {
		return result, nil
	}

	val, err, _ := c.sf.Do(key, func() (any, error) {
		if c.Get(ctx, key, &result) {
			return result, nil
		}

		computed, err := compute()
		if err != nil {
			return nil, err
		}

		_ = c.Set(ctx, key, computed, ttl)

		return computed, nil
	})

	return val, err
}

// ParsePattern returns every key matching the given Redis glob pattern using
// a non-blocking SCAN cursor walk rather than the O(N) KEYS command.
func (c *Client) ParsePattern(ctx context.Context, pattern string) ([]string, error) {
	if c.Redis == nil {
		return nil, nil
	}

	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.Redis.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return nil, fmt.Errorf("scan cache keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// GetStats scans keys matching pattern and reports their count and TTLs.
func (c *Client) GetStats(ctx context.Context, pattern string) (Stats, error) {
	keys, err := c.ParsePattern(ctx, pattern)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Count: len(keys), TTLs: make([]time.Duration, 0, len(keys))}
	for _, key := range keys {
		ttl, err := c.Redis.TTL(ctx, key).Result()
		if err != nil {
			continue
		}
		stats.TTLs = append(stats.TTLs, ttl)
	}
	return stats, nil
}

// InvalidateByPrefix deletes every key matching pattern and returns the count removed.
func (c *Client) InvalidateByPrefix(ctx context.Context, pattern string) (int64, error) {
	keys, err := c.ParsePattern(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return c.Redis.Del(ctx, keys...).Result()
}
