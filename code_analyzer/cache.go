package code_analyzer

import (
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"
)

// OutlineCache keeps tree-sitter outlines keyed by path and content hash, so an edited file is parsed again.
// It lives as long as the analyzer, which the watch command keeps across commits.
type OutlineCache struct {
	mutex   sync.RWMutex
	entries map[string][]string
}

// NewOutlineCache creates an empty cache.
func NewOutlineCache() *OutlineCache {
	return &OutlineCache{entries: make(map[string][]string)}
}

func outlineKey(relativePath string, source []byte) string {
	return fmt.Sprintf("%x:%x", xxh3.HashString(relativePath), xxh3.Hash(source))
}

// Get returns the cached outline of a file version.
func (c *OutlineCache) Get(relativePath string, source []byte) ([]string, bool) {
	key := outlineKey(relativePath, source)

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	outline, ok := c.entries[key]
	return outline, ok
}

// Set stores the outline of a file version.
func (c *OutlineCache) Set(relativePath string, source []byte, outline []string) {
	key := outlineKey(relativePath, source)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = outline
}
