package homology

import "container/list"

// lru is a size-bounded map with O(1) get/put and least-recently-used
// eviction. It is not safe for concurrent use.
type lru[K comparable, V any] struct {
	cap int
	ll  *list.List
	m   map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	k K
	v V
}

func newLRU[K comparable, V any](capacity int) *lru[K, V] {
	if capacity <= 0 {
		capacity = 4096
	}
	return &lru[K, V]{cap: capacity, ll: list.New(), m: make(map[K]*list.Element, capacity)}
}

func (c *lru[K, V]) Get(k K) (V, bool) {
	if e, ok := c.m[k]; ok {
		c.ll.MoveToFront(e)
		return e.Value.(*lruEntry[K, V]).v, true
	}
	var zero V
	return zero, false
}

func (c *lru[K, V]) Put(k K, v V) {
	if e, ok := c.m[k]; ok {
		e.Value.(*lruEntry[K, V]).v = v
		c.ll.MoveToFront(e)
		return
	}
	c.m[k] = c.ll.PushFront(&lruEntry[K, V]{k: k, v: v})
	if c.ll.Len() > c.cap {
		if tail := c.ll.Back(); tail != nil {
			c.ll.Remove(tail)
			delete(c.m, tail.Value.(*lruEntry[K, V]).k)
		}
	}
}

func (c *lru[K, V]) Len() int { return c.ll.Len() }
