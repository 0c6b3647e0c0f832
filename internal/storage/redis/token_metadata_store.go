// Package redis caches resolved token metadata in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/observability"
	"rugal-dominion/internal/storage"
)

// KeyTokenMetadata is the key template for cached metadata, by mint.
const KeyTokenMetadata = "#token#metadata#%s"

// DefaultTTL bounds how long a resolved name stays cached.
const DefaultTTL = 24 * time.Hour

// TokenMetadataStore implements storage.TokenMetadataStore on a Redis client.
type TokenMetadataStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewTokenMetadataStore creates a store. A non-positive ttl uses DefaultTTL.
func NewTokenMetadataStore(client *redis.Client, ttl time.Duration) *TokenMetadataStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenMetadataStore{client: client, ttl: ttl}
}

var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Put stores metadata, replacing any previous value for the mint.
func (s *TokenMetadataStore) Put(ctx context.Context, m *domain.TokenMetadata) (err error) {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer observe("token_metadata_put", time.Now(), &err)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal token metadata: %w", err)
	}
	if err = s.client.Set(ctx, fmt.Sprintf(KeyTokenMetadata, m.Mint), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound on a cache miss.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (m *domain.TokenMetadata, err error) {
	defer observe("token_metadata_get", time.Now(), &err)

	data, err := s.client.Get(ctx, fmt.Sprintf(KeyTokenMetadata, mint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata: %w", err)
	}

	m = &domain.TokenMetadata{}
	if err = json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("unmarshal token metadata: %w", err)
	}
	return m, nil
}

func observe(operation string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("redis", operation, time.Since(start).Seconds(), err)
}
