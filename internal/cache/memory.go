package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"deepscan/internal/types"
)

// entry is one stored result with its expiry bookkeeping.
type entry struct {
	key      string
	value    *types.AdaptiveAnalysisResult
	storedAt time.Time
	ttl      time.Duration
	hitCount int
}

// memoryStore is the in-process fallback: a bounded map evicting the single
// oldest-inserted entry when insertion would exceed capacity. Eviction is
// FIFO by insertion time, not LRU by access; a hit does not extend an
// entry's life.
type memoryStore struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    []string // insertion order, oldest first
	capacity int
	now      func() time.Time
	log      *slog.Logger
}

func newMemoryStore(capacity int, log *slog.Logger) *memoryStore {
	return &memoryStore{
		entries:  make(map[string]*entry, capacity),
		capacity: capacity,
		now:      time.Now,
		log:      log,
	}
}

func (s *memoryStore) Get(_ context.Context, key string) (*types.AdaptiveAnalysisResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(e.storedAt.Add(e.ttl)) {
		// Expired entries are misses; physical removal can wait for
		// eviction so the FIFO order stays intact.
		return nil, false, nil
	}
	e.hitCount++
	return e.value, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, result *types.AdaptiveAnalysisResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok {
		// Refresh in place; insertion order is unchanged.
		existing.value = result
		existing.storedAt = s.now()
		existing.ttl = ttl
		return nil
	}

	// Insert-and-evict is a single atomic step under the lock so
	// interleaved writers cannot corrupt the FIFO order.
	if len(s.entries) >= s.capacity && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		if evicted := s.entries[oldest]; evicted != nil {
			s.log.Debug("evicting cache entry",
				"key", oldest, "hits", evicted.hitCount, "age", s.now().Sub(evicted.storedAt))
		}
		delete(s.entries, oldest)
	}

	s.entries[key] = &entry{
		key:      key,
		value:    result,
		storedAt: s.now(),
		ttl:      ttl,
	}
	s.order = append(s.order, key)
	return nil
}

func (s *memoryStore) Close() error { return nil }
