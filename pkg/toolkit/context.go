package toolkit

import (
	"sort"
	"sync"
)

// Context is the mutable key-value store handlers use to pass state
// between calls. It lives as long as its server and is shared by
// reference with every invocation. The store enforces no key
// namespacing; handlers avoid collisions by prefixing keys with a
// domain tag ("bafu_", "memory_").
type Context struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewContext creates an empty context store.
func NewContext() *Context {
	return &Context{values: make(map[string]interface{})}
}

// Set stores value under key, overwriting any previous value.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Get returns the value stored under key and whether it was present.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[key]
	return value, ok
}

// GetDefault returns the value stored under key, or def if the key is
// absent. An absent key is not inserted.
func (c *Context) GetDefault(key string, def interface{}) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if value, ok := c.values[key]; ok {
		return value
	}
	return def
}

// Clear removes all keys from the store.
func (c *Context) Clear() {
	c.mu.Lock()
	c.values = make(map[string]interface{})
	c.mu.Unlock()
}

// Keys returns the stored keys in lexicographic order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
