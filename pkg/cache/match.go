package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/regraft/regraft/pkg/homomorphism"
)

// MatchCache stores match results keyed by content hashes of the host
// graph, the pattern and the typing constraints. Lookups and stores are
// best-effort: a backend failure degrades to a cache miss rather than
// failing the matching call.
type MatchCache struct {
	cache Cache
	keyer Keyer
	ttl   time.Duration
}

// NewMatchCache creates a match cache on top of a backend.
// If keyer is nil, a DefaultKeyer is used. A zero ttl uses DefaultTTL.
func NewMatchCache(c Cache, keyer Keyer, ttl time.Duration) *MatchCache {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MatchCache{cache: c, keyer: keyer, ttl: ttl}
}

// Get returns cached match results, or false on a miss.
func (m *MatchCache) Get(ctx context.Context, graphHash, patternHash string, opts MatchKeyOpts) ([]homomorphism.Mapping, bool) {
	key := m.keyer.MatchKey(graphHash, patternHash, opts)
	data, hit, err := m.cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var matches []homomorphism.Mapping
	if err := json.Unmarshal(data, &matches); err != nil {
		// Corrupt entry - drop it and treat as miss.
		_ = m.cache.Delete(ctx, key)
		return nil, false
	}
	return matches, true
}

// Put stores match results. Transient backend failures are retried.
func (m *MatchCache) Put(ctx context.Context, graphHash, patternHash string, opts MatchKeyOpts, matches []homomorphism.Mapping) error {
	data, err := json.Marshal(matches)
	if err != nil {
		return err
	}
	key := m.keyer.MatchKey(graphHash, patternHash, opts)
	return RetryWithBackoff(ctx, func() error {
		return m.cache.Set(ctx, key, data, m.ttl)
	})
}
