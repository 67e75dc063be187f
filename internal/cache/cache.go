// Package cache wraps analysis runs with result caching keyed by a
// deterministic fingerprint of (repository URL, branch, prompt variant).
// A Redis backing store is preferred when reachable at construction;
// otherwise a bounded in-process map with FIFO eviction takes over.
//
// The cache is the only component with state shared across concurrent runs.
// It is constructed explicitly and injected; the caller owns its lifecycle.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"deepscan/internal/orchestrator"
	"deepscan/internal/types"
)

// PromptVariant identifies the prompt set baked into this build. It is part
// of the fingerprint so a prompt change invalidates prior entries.
const PromptVariant = "adaptive-v1"

// DefaultTTL is how long a cached result stays fresh.
const DefaultTTL = 30 * time.Minute

// DefaultCapacity bounds the in-process fallback store.
const DefaultCapacity = 100

// Store is a key-value backend with expiry semantics.
type Store interface {
	// Get returns the cached result for key, or ok=false on a miss.
	// Expired entries are misses even if still physically present.
	Get(ctx context.Context, key string) (result *types.AdaptiveAnalysisResult, ok bool, err error)

	// Set stores the result under key with the given TTL.
	Set(ctx context.Context, key string, result *types.AdaptiveAnalysisResult, ttl time.Duration) error

	Close() error
}

// Stats is a snapshot of the hit/miss counters.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Backend string `json:"backend"`
}

// Cache wraps an orchestrator-style compute function with a Store.
type Cache struct {
	store   Store
	backend string
	ttl     time.Duration
	sink    orchestrator.MetricsSink
	log     *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Options configures cache construction.
type Options struct {
	// RedisAddr enables the Redis backend when non-empty. An unreachable
	// Redis degrades to the in-process store; it never fails construction.
	RedisAddr string

	TTL      time.Duration // default DefaultTTL
	Capacity int           // in-process store bound, default DefaultCapacity

	// Sink receives a run record for every cache hit, mirroring what the
	// orchestrator emits for computed runs. Misses are not recorded here;
	// the computed run's own record covers them. Optional.
	Sink orchestrator.MetricsSink

	Logger *slog.Logger
}

// New builds a cache, probing the Redis backend once at construction.
func New(opts Options) *Cache {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	var store Store
	backend := "memory"
	if opts.RedisAddr != "" {
		redisStore, err := newRedisStore(opts.RedisAddr)
		if err != nil {
			log.Warn("redis unreachable, falling back to in-process cache",
				"addr", opts.RedisAddr, "error", err)
		} else {
			store = redisStore
			backend = "redis"
		}
	}
	if store == nil {
		store = newMemoryStore(capacity, log)
	}

	return &Cache{store: store, backend: backend, ttl: ttl, sink: opts.Sink, log: log}
}

// Fingerprint derives the deterministic cache key. Identical inputs always
// produce identical keys; result contents never participate.
func Fingerprint(repoURL, branch, promptVariant string) string {
	h := sha256.New()
	h.Write([]byte(repoURL))
	h.Write([]byte{0})
	h.Write([]byte(branch))
	h.Write([]byte{0})
	h.Write([]byte(promptVariant))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached result for (repoURL, branch) or runs
// computeFn and caches its result. A hit short-circuits all round execution.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	repoURL, branch string,
	computeFn func(ctx context.Context) (*types.AdaptiveAnalysisResult, error),
) (*types.AdaptiveAnalysisResult, error) {
	key := Fingerprint(repoURL, branch, PromptVariant)
	start := time.Now()

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// Store trouble is a degradation, not a failure.
		c.log.Warn("cache get failed", "key", key, "error", err)
	}
	if ok {
		c.hits.Add(1)
		c.log.Debug("cache hit", "repo", repoURL, "branch", branch)
		c.emitHit(ctx, repoURL, branch, cached, time.Since(start))
		return cached, nil
	}
	c.misses.Add(1)

	result, err := computeFn(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, result, c.ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
	return result, nil
}

// emitHit records a cache hit with the sink. The served result keeps its
// original RunID; the hit record gets a fresh one so the journal's primary
// key holds. Fire and forget, same as the orchestrator's emission.
func (c *Cache) emitHit(ctx context.Context, repoURL, branch string, cached *types.AdaptiveAnalysisResult, lookup time.Duration) {
	if c.sink == nil {
		return
	}
	m := orchestrator.RunMetrics{
		RunID:        uuid.New().String(),
		Repository:   repoURL,
		Branch:       branch,
		Rounds:       0,
		Duration:     lookup,
		Completeness: cached.Completeness,
		CacheHit:     true,
	}
	if err := c.sink.RecordRun(ctx, m); err != nil {
		c.log.Warn("metrics sink failed for cache hit", "repo", repoURL, "error", err)
	}
}

// Stats returns the monotonically increasing hit/miss counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Backend: c.backend,
	}
}

// Close releases the backing store.
func (c *Cache) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("closing cache store: %w", err)
	}
	return nil
}
