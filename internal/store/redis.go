package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the production Store implementation. Expiry is handled by redis
// itself, so no sweep goroutine is needed.
type Redis struct {
	rdb *redis.Client
}

// OpenRedis connects to the redis instance at redisURL and verifies it with a
// short ping.
func OpenRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("store: redis unreachable: %w", err)
	}

	slog.Info("store: redis connected", slog.String("addr", opts.Addr))
	return &Redis{rdb: rdb}, nil
}

func (s *Redis) Create(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return fmt.Errorf("store: setnx %s: %w", key, err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return data, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: del %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Close() error { return s.rdb.Close() }
