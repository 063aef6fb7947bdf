package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisStore keeps text embeddings in Redis so that several tagger
// processes share one warm cache.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl stores keys without expiry.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "tagger:text:", ttl: ttl}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

// Get fetches all keys with one MGET. Undecodable values count as misses.
func (s *RedisStore) Get(ctx context.Context, keys []string) ([][]float32, error) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	values, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: mget: %w", err)
	}

	out := make([][]float32, len(keys))
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // miss
		}
		var vec []float32
		if err := msgpack.Unmarshal([]byte(str), &vec); err != nil {
			continue
		}
		out[i] = vec
	}
	return out, nil
}

// Set writes all entries in one pipeline.
func (s *RedisStore) Set(ctx context.Context, entries map[string][]float32) error {
	pipe := s.client.Pipeline()
	for k, vec := range entries {
		data, err := msgpack.Marshal(vec)
		if err != nil {
			return fmt.Errorf("redis: encode %s: %w", k, err)
		}
		pipe.Set(ctx, s.prefix+k, data, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: pipeline: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
