package galleryindex

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// nodeKey identifies a cached node. The version is part of the key because
// the index artifact is regenerated under a new version token and node
// addresses are only meaningful within one generation.
type nodeKey struct {
	address uint64
	version string
}

// NodeCache is a bounded LRU cache of decoded nodes.
//
// It is safe for concurrent use. Two racing lookups may decode the same
// node redundantly; decoding is pure, so the second Set simply refreshes
// the entry.
type NodeCache struct {
	mu        sync.Mutex
	capacity  int
	items     map[nodeKey]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key  nodeKey
	node *Node
}

// NewNodeCache creates a cache holding at most capacity nodes.
func NewNodeCache(capacity int) *NodeCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &NodeCache{
		capacity:  capacity,
		items:     make(map[nodeKey]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached node.
func (c *NodeCache) Get(address uint64, version string) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[nodeKey{address, version}]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry).node, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a node, evicting the least recently used entry when full.
func (c *NodeCache) Set(address uint64, version string, node *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := nodeKey{address, version}
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*cacheEntry).node = node
		return
	}

	for c.evictList.Len() >= c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}

	c.items[key] = c.evictList.PushFront(&cacheEntry{key: key, node: node})
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cache hit/miss counters.
func (c *NodeCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
