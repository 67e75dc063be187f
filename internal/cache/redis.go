package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deepscan/internal/types"
)

const keyPrefix = "deepscan:analysis:"

// redisStore is the shared backing store. Expiry is delegated to Redis via
// SET with TTL, so Get never has to reason about staleness itself.
type redisStore struct {
	client *redis.Client
}

// newRedisStore connects and probes the server. An unreachable server is an
// error here; the caller decides how to degrade.
func newRedisStore(addr string) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}

	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (*types.AdaptiveAnalysisResult, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result types.AdaptiveAnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is a miss; the fresh result will overwrite it.
		return nil, false, fmt.Errorf("decoding cached result: %w", err)
	}
	return &result, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, result *types.AdaptiveAnalysisResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result for cache: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
