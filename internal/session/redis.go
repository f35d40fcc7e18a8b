package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisMarker keeps the marker as a plain redis string without expiry.
type RedisMarker struct {
	client *redis.Client
	key    string
}

func NewRedisMarker(client *redis.Client) *RedisMarker {
	return &RedisMarker{client: client, key: Key}
}

func (m *RedisMarker) Load(ctx context.Context) (uuid.UUID, bool, error) {
	raw, err := m.client.Get(ctx, m.key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %w", ErrMarkerStorage, err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: malformed marker %q: %w", ErrMarkerStorage, raw, err)
	}
	return id, true, nil
}

func (m *RedisMarker) Save(ctx context.Context, id uuid.UUID) error {
	if err := m.client.Set(ctx, m.key, id.String(), 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerStorage, err)
	}
	return nil
}
