// Package cache provides thread-safe generic caching functionality and the rendered entry cache.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

func (c *Cache[K, V]) SetTo(items map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// renderedEntryCache keys on bodyHash + ":" + syntaxTheme so a theme switch
// never serves stale highlighting.
var renderedEntryCache = NewCache[string, []byte]()

func GetRenderedEntry(bodyHash, syntaxTheme string) ([]byte, bool) {
	key := bodyHash + ":" + syntaxTheme
	return renderedEntryCache.Get(key)
}

func SetRenderedEntry(bodyHash, syntaxTheme string, html []byte) {
	key := bodyHash + ":" + syntaxTheme
	renderedEntryCache.Set(key, html)
}

func ClearRenderedEntryCache() {
	renderedEntryCache.Clear()
}
