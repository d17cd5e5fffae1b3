package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache provides thread-safe in-memory caching with TTL. Entries are built
// fully before being swapped in under the lock, so a concurrent reader never
// observes a partially constructed value.
type Cache struct {
	entries map[string]*Entry
	mutex   sync.RWMutex
}

// Entry represents a cached item with metadata
type Entry struct {
	Key       string        `json:"key"`
	Data      []byte        `json:"data"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	TTL       time.Duration `json:"ttl"`
	Source    string        `json:"source"`
}

// NewCache creates a new in-memory cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
	}
}

// Set stores data in cache with the given TTL, replacing any previous entry
// wholesale.
func (c *Cache) Set(key string, data interface{}, ttl time.Duration, source string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data for cache: %w", err)
	}

	now := time.Now()
	entry := &Entry{
		Key:       key,
		Data:      jsonData,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		TTL:       ttl,
		Source:    source,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry
	return nil
}

// Get retrieves data from cache if not stale
func (c *Cache) Get(key string, result interface{}) (bool, error) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || time.Now().After(entry.ExpiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return true, nil
}

// GetStale retrieves data and metadata regardless of staleness. Callers that
// failed to refresh use this to serve the last good copy.
func (c *Cache) GetStale(key string, result interface{}) (*Entry, bool, error) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if result != nil {
		if err := json.Unmarshal(entry.Data, result); err != nil {
			return entry, true, fmt.Errorf("failed to unmarshal cached data: %w", err)
		}
	}

	return entry, true, nil
}

// IsStale checks if cache entry is stale (past expiration)
func (c *Cache) IsStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}

	return time.Now().After(entry.ExpiresAt)
}

// Delete removes an entry from cache
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries from cache
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*Entry)
}

// Keys returns all cache keys
func (c *Cache) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}
