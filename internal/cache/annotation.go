// Package cache provides the in-memory lookups the recorder needs on its hot
// path: resolving overlay annotation ids to database rows without a read.
package cache

import "sync"

// AnnotationCache maps overlay annotation ids to their database row ids for
// the current session. Overlay ids restart per video; the cache is reset
// whenever a new video loads.
type AnnotationCache struct {
	mu   sync.RWMutex
	rows map[uint]uint
}

// NewAnnotationCache creates an empty AnnotationCache.
func NewAnnotationCache() *AnnotationCache {
	return &AnnotationCache{
		rows: make(map[uint]uint),
	}
}

// Get retrieves the database row id for an overlay annotation id.
func (c *AnnotationCache) Get(overlayID uint) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.rows[overlayID]
	return id, ok
}

// Set stores the database row id for an overlay annotation id.
func (c *AnnotationCache) Set(overlayID, rowID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[overlayID] = rowID
}

// Delete removes a mapping. Unknown ids are a no-op.
func (c *AnnotationCache) Delete(overlayID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, overlayID)
}

// Len returns the number of cached mappings.
func (c *AnnotationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Reset clears all mappings for a new session.
func (c *AnnotationCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = make(map[uint]uint)
}
