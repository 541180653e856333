package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"token-settlement-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// APIKeyCache caches merchant records by API key so the auth middleware does
// not hit PostgreSQL on every request.
type APIKeyCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewAPIKeyCache creates a new Redis-backed API key cache.
func NewAPIKeyCache(client *goredis.Client) *APIKeyCache {
	return &APIKeyCache{
		client: client,
		prefix: "apikey:",
		ttl:    5 * time.Minute,
	}
}

// Get retrieves a cached merchant by API key.
// Returns nil, nil on a cache miss.
func (c *APIKeyCache) Get(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	val, err := c.client.Get(ctx, c.prefix+apiKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis apikey get: %w", err)
	}

	var m cachedMerchant
	if err := json.Unmarshal(val, &m); err != nil {
		return nil, fmt.Errorf("redis apikey decode: %w", err)
	}
	return m.toDomain(), nil
}

// Set stores a merchant in the cache.
func (c *APIKeyCache) Set(ctx context.Context, apiKey string, m *domain.Merchant) error {
	val, err := json.Marshal(fromDomain(m))
	if err != nil {
		return fmt.Errorf("redis apikey encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+apiKey, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis apikey set: %w", err)
	}
	return nil
}

// Invalidate drops a cached entry, e.g. after a merchant status change.
func (c *APIKeyCache) Invalidate(ctx context.Context, apiKey string) error {
	if err := c.client.Del(ctx, c.prefix+apiKey).Err(); err != nil {
		return fmt.Errorf("redis apikey del: %w", err)
	}
	return nil
}

// cachedMerchant mirrors domain.Merchant with the API key included.
// The domain struct hides the key from JSON, but the cache entry must carry
// it so cached merchants round-trip intact.
type cachedMerchant struct {
	domain.Merchant
	APIKey string `json:"api_key"`
}

func fromDomain(m *domain.Merchant) cachedMerchant {
	return cachedMerchant{Merchant: *m, APIKey: m.APIKey}
}

func (c cachedMerchant) toDomain() *domain.Merchant {
	m := c.Merchant
	m.APIKey = c.APIKey
	return &m
}
