package homology

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cached memoizes a Searcher by (db, params, query). Concurrent identical
// searches share one call; failures are not cached.
type Cached struct {
	inner Searcher

	mu    sync.Mutex
	cache *lru[string, []Hit]
	group singleflight.Group

	calls int
}

// NewCached wraps s with an LRU of the given capacity (<= 0 picks a default).
func NewCached(s Searcher, capacity int) *Cached {
	return &Cached{inner: s, cache: newLRU[string, []Hit](capacity)}
}

func cacheKey(query []byte, db string, p Params) string {
	sum := sha256.Sum256(query)
	return fmt.Sprintf("%s|%d|%g|%d|%d|%x", db, p.WordSize, p.PercIdentity, p.MinAlignLength, p.MaxHits, sum)
}

func (c *Cached) Search(ctx context.Context, query []byte, db string, p Params) ([]Hit, error) {
	key := cacheKey(query, db, p)
	c.mu.Lock()
	if hits, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return hits, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		c.calls++
		c.mu.Unlock()
		hits, err := c.inner.Search(ctx, query, db, p)
		if err != nil {
			return nil, Failed(err)
		}
		c.mu.Lock()
		c.cache.Put(key, hits)
		c.mu.Unlock()
		return hits, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Hit), nil
}

// Calls reports how many searches reached the wrapped Searcher.
func (c *Cached) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
