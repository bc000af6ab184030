// Package cache provides a small fixed-capacity LRU with TTL expiry, used
// to memoize query results between index rebuilds.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type Cache[V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	ll   *list.List
	data map[string]*list.Element
}

type entry[V any] struct {
	key   string
	value V
	exp   time.Time
}

func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache[V]{
		cap:  capacity,
		ttl:  ttl,
		ll:   list.New(),
		data: make(map[string]*list.Element),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	ele, ok := c.data[key]
	if !ok {
		return zero, false
	}
	e := ele.Value.(*entry[V])
	if c.ttl > 0 && time.Now().After(e.exp) {
		c.ll.Remove(ele)
		delete(c.data, key)
		return zero, false
	}
	c.ll.MoveToFront(ele)
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.data[key]; ok {
		c.ll.MoveToFront(ele)
		e := ele.Value.(*entry[V])
		e.value = value
		e.exp = c.expiry()
		return
	}
	ele := c.ll.PushFront(&entry[V]{key: key, value: value, exp: c.expiry()})
	c.data[key] = ele
	if c.ll.Len() > c.cap {
		if last := c.ll.Back(); last != nil {
			c.ll.Remove(last)
			delete(c.data, last.Value.(*entry[V]).key)
		}
	}
}

// Purge drops every cached value. Called after a rebuild makes cached
// results stale.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.data = make(map[string]*list.Element)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache[V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.ttl)
}
