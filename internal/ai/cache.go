package ai

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type cacheEntry struct {
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Cache is a keyed answer store so repeat classifications of the same field
// never hit the remote model twice within the max-age window.
type Cache struct {
	mu      sync.Mutex
	path    string
	maxAge  time.Duration
	entries map[string]cacheEntry
	log     *zap.Logger
	now     func() time.Time
}

// NewCache loads the cache file at path, starting empty if it is missing or
// unreadable.
func NewCache(path string, maxAge time.Duration, logger *zap.Logger) *Cache {
	c := &Cache{
		path:    path,
		maxAge:  maxAge,
		entries: map[string]cacheEntry{},
		log:     logger.Named("ai.cache"),
		now:     time.Now,
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("cache file unreadable, starting empty", zap.String("path", path), zap.Error(err))
		}
		return c
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		c.log.Warn("cache file corrupt, starting empty", zap.String("path", path), zap.Error(err))
		c.entries = map[string]cacheEntry{}
	}
	return c
}

// Key derives the stable cache key for a prompt.
func Key(prompt string) string {
	sum := md5.Sum([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached answer for key if one exists and is fresh.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.Timestamp) > c.maxAge {
		delete(c.entries, key)
		return "", false
	}
	return e.Answer, true
}

// Put records an answer and flushes to disk.
func (c *Cache) Put(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{Answer: answer, Timestamp: c.now()}
	if err := c.flushLocked(); err != nil {
		c.log.Warn("cache flush failed", zap.Error(err))
	}
}

// Sweep drops every entry older than the max age and flushes if any were
// removed. It returns the number of entries dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.maxAge)
	dropped := 0
	for k, e := range c.entries {
		if e.Timestamp.Before(cutoff) {
			delete(c.entries, k)
			dropped++
		}
	}
	if dropped > 0 {
		if err := c.flushLocked(); err != nil {
			c.log.Warn("cache flush failed", zap.Error(err))
		}
	}
	return dropped
}

func (c *Cache) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	raw, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	return os.WriteFile(c.path, raw, 0o644)
}
