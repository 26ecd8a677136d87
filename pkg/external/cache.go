package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clearhealth/trialmatch/internal/domain"
)

// CacheClient wraps Redis with caching for model completions. Completions are
// deterministic enough at low temperature that replaying a cached answer for
// an identical prompt pair is safe, and it spares both latency and quota.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client and verifies the connection.
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// cachedCompletion is the stored envelope for one completion.
type cachedCompletion struct {
	Content   string    `json:"content"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GetCompletion retrieves a cached completion for the prompt pair.
func (c *CacheClient) GetCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, bool, error) {
	key := completionKey(systemPrompt, userPrompt)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get completion cache: %w", err)
	}

	var cached cachedCompletion
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Corrupted entry, drop it.
		c.redis.Del(ctx, key)
		return "", false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return "", false, nil
	}

	return cached.Content, true, nil
}

// SetCompletion caches a completion for the prompt pair. A zero ttl uses the
// configured default.
func (c *CacheClient) SetCompletion(ctx context.Context, systemPrompt, userPrompt, content string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := cachedCompletion{
		Content:   content,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal completion cache data: %w", err)
	}

	return c.redis.Set(ctx, completionKey(systemPrompt, userPrompt), jsonData, ttl).Err()
}

// InvalidatePattern removes all cached entries matching a pattern.
func (c *CacheClient) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks if the Redis connection is alive.
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

// completionKey hashes the prompt pair into a bounded cache key. Prompts
// embed whole patient summaries and criteria passages, so raw keys would be
// both oversized and PHI-bearing.
func completionKey(systemPrompt, userPrompt string) string {
	hash := sha256.Sum256([]byte(systemPrompt + "\x00" + userPrompt))
	return fmt.Sprintf("completion:%x", hash[:12])
}
