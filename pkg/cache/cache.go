package cache

import (
	"container/list"
	"sync"

	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/metric"
)

// DefaultMaxSize bounds a cache built without an explicit size. Term names
// are small, so the default is generous.
const DefaultMaxSize = 10000

// EvictCallback is invoked with the key and value of every evicted entry.
type EvictCallback[V any] func(key string, value V)

// Cache is a bounded key/value cache with LRU eviction.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V) error
	Delete(key string) bool
	Len() int
	Clear()
	Stats() Statistics
}

type entry[V any] struct {
	key   string
	value V
}

// lru is the single Cache implementation. It is safe for concurrent use.
type lru[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	stats   statistics
	metrics *metric.Metrics
	evictFn EvictCallback[V]
}

// Option configures a cache.
type Option[V any] func(*lru[V])

// WithMetrics mirrors hit/miss counts into the shared metrics set.
func WithMetrics[V any](m *metric.Metrics) Option[V] {
	return func(c *lru[V]) { c.metrics = m }
}

// WithEvictCallback registers a callback for evicted entries.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(c *lru[V]) { c.evictFn = fn }
}

// New creates an LRU cache holding at most maxSize entries. A maxSize of
// zero or less selects DefaultMaxSize.
func New[V any](maxSize int, opts ...Option[V]) Cache[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &lru[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *lru[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		var zero V
		c.stats.miss()
		if c.metrics != nil {
			c.metrics.RecordCacheLookup(false)
		}
		return zero, false
	}
	c.order.MoveToFront(element)
	c.stats.hit()
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(true)
	}
	return element.Value.(*entry[V]).value, true
}

func (c *lru[V]) Set(key string, value V) error {
	if key == "" {
		return errors.Invalidf("cache", "Set", "empty key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		element.Value.(*entry[V]).value = value
		c.order.MoveToFront(element)
		return nil
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	if len(c.items) > c.maxSize {
		c.evictOldest()
	}
	return nil
}

func (c *lru[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(element)
	return true
}

func (c *lru[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear drops every entry without firing eviction callbacks.
func (c *lru[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *lru[V]) Stats() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot()
}

func (c *lru[V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	e := oldest.Value.(*entry[V])
	c.remove(oldest)
	c.stats.evictions++
	if c.evictFn != nil {
		c.evictFn(e.key, e.value)
	}
}

func (c *lru[V]) remove(element *list.Element) {
	c.order.Remove(element)
	delete(c.items, element.Value.(*entry[V]).key)
}
