package adminkit

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTableConfigStore keeps table configs in Redis as JSON strings.
type RedisTableConfigStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStoreOption configures a RedisTableConfigStore.
type RedisStoreOption func(*RedisTableConfigStore)

// WithKeyPrefix sets the prefix of every Redis key (default "adminkit:table:").
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisTableConfigStore) {
		s.prefix = prefix
	}
}

// WithTTL expires stored configs after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisTableConfigStore) {
		s.ttl = ttl
	}
}

// NewRedisTableConfigStore creates a store on client.
func NewRedisTableConfigStore(client *redis.Client, opts ...RedisStoreOption) *RedisTableConfigStore {
	s := &RedisTableConfigStore{client: client, prefix: "adminkit:table:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisTableConfigStore) key(entityKey string) string {
	return s.prefix + entityKey
}

// Load implements TableConfigStore.
func (s *RedisTableConfigStore) Load(ctx context.Context, entityKey string) (*TableConfig, error) {
	val, err := s.client.Get(ctx, s.key(entityKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	cfg, err := decodeTableConfig(val)
	if err != nil {
		return nil, NewError(ErrDatabaseError, "corrupt table config: "+err.Error()).WithEntity(entityKey)
	}
	return &cfg, nil
}

// Save implements TableConfigStore.
func (s *RedisTableConfigStore) Save(ctx context.Context, entityKey string, cfg TableConfig) error {
	val, err := encodeTableConfig(cfg)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(entityKey), val, s.ttl).Err()
}

// Delete removes the stored config of entityKey.
func (s *RedisTableConfigStore) Delete(ctx context.Context, entityKey string) error {
	return s.client.Del(ctx, s.key(entityKey)).Err()
}
