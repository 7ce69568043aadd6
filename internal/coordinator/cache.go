package coordinator

import (
	"container/list"
	"sync"

	"github.com/Aidin1998/tradewatch/internal/model"
	"github.com/Aidin1998/tradewatch/pkg/metrics"
)

// ResultCache is the coordinator's idempotency cache: it maps a
// (detector, request id, batch fingerprint) key to a previously computed
// detection list. Capacity is a hard entry limit; once reached the least
// recently used entry is evicted. The cache is local to one coordinator
// instance and makes no cross-process consistency guarantee.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lruList  *list.List
}

type cacheEntry struct {
	key    string
	result []model.SuspiciousSequence
}

// NewResultCache creates a cache holding at most capacity entries
func NewResultCache(capacity int) *ResultCache {
	return &ResultCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lruList:  list.New(),
	}
}

// Get returns the cached detection list for key, marking it most recently
// used. The second return is false on a miss.
func (c *ResultCache) Get(key string) ([]model.SuspiciousSequence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	c.lruList.MoveToFront(elem)
	metrics.CacheHits.Inc()
	return elem.Value.(*cacheEntry).result, true
}

// Put stores a detection list under key, evicting from the LRU end if the
// capacity is exceeded.
func (c *ResultCache) Put(key string, result []model.SuspiciousSequence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry).result = result
		c.lruList.MoveToFront(elem)
		return
	}

	elem := c.lruList.PushFront(&cacheEntry{key: key, result: result})
	c.items[key] = elem

	for len(c.items) > c.capacity {
		back := c.lruList.Back()
		if back == nil {
			break
		}
		entry := back.Value.(*cacheEntry)
		c.lruList.Remove(back)
		delete(c.items, entry.key)
		metrics.CacheEvictions.Inc()
	}
}

// Len returns the number of cached entries
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
