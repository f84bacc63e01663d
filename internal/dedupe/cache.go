// ABOUTME: Thread-safe TTL cache for suppressing duplicate change deliveries.
// ABOUTME: The store marks every change ID it publishes so a change seen twice is dropped.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key    string
	marked time.Time
}

// Cache remembers keys for a fixed TTL, bounded by maxSize. Expired entries
// are pruned lazily from the front of the insertion-ordered list on every
// mark, so no background goroutine is needed.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache with the given TTL and maximum number of keys.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether key was marked within the TTL without marking it.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.seen[key]
	if !ok {
		return false
	}
	return c.now().Sub(elem.Value.(*entry).marked) < c.ttl
}

// CheckAndMark returns true when key is a duplicate. Otherwise it records key
// and returns false. Check and mark happen under one lock.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	if elem, ok := c.seen[key]; ok {
		if now.Sub(elem.Value.(*entry).marked) < c.ttl {
			return true
		}
		c.order.Remove(elem)
		delete(c.seen, key)
	}

	for len(c.seen) >= c.maxSize {
		c.removeLocked(c.order.Front())
	}

	c.seen[key] = c.order.PushBack(&entry{key: key, marked: now})
	return false
}

// Len returns the number of keys currently remembered.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// pruneLocked drops expired entries. Entries are appended in mark order, so
// scanning stops at the first live one.
func (c *Cache) pruneLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if now.Sub(front.Value.(*entry).marked) < c.ttl {
			return
		}
		c.removeLocked(front)
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.seen, elem.Value.(*entry).key)
}
