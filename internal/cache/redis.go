package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore backs the Store interface with redis, for deployments with
// more than one API instance where a per-process cache would go stale.
type RedisStore struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}

	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisStore{redisdb: redisdb, ttl: cfg.TTL}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redisdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.redisdb.Close()
}

// cache misses and redis failures look the same to callers; the list
// endpoint just falls back to the repository
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.redisdb.Get(ctx, key).Bytes()

	if err != nil {
		return nil, false
	}

	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte) {
	_ = s.redisdb.Set(ctx, key, val, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	_ = s.redisdb.Del(ctx, key).Err()
}
