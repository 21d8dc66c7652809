package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the cursor under "<key>:cursor".
type RedisStore struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisStore returns a store writing to rdb.
func NewRedisStore(rdb redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key + ":cursor"}
}

// Load returns nil when the key does not exist.
func (s *RedisStore) Load(ctx context.Context) (*string, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	if val == "" {
		return nil, nil
	}
	return &val, nil
}

// Save overwrites the key without expiry. SET is atomic on the server.
func (s *RedisStore) Save(ctx context.Context, cursor string) error {
	if err := s.rdb.Set(ctx, s.key, cursor, 0).Err(); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
