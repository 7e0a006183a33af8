// Package cache keeps recently fetched notes and reply lists so that
// repeated widget loads do not hit the instance.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"misskey-comments/internal/domain"
)

// MemoryCache is an in-memory cache with TTL support. A TTL of zero or
// less disables it: nothing is stored.
type MemoryCache struct {
	entries sync.Map
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// cacheEntry holds a cached value with expiration metadata.
type cacheEntry struct {
	note      *domain.Note
	replies   []domain.Note
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the specified TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{ttl: ttl, stop: make(chan struct{})}
	go cache.cleanup()
	return cache
}

// NormalizedKey returns the cache key of a resource of a note:
// {kind}/{host}/{noteId}. The host is case-insensitive.
func NormalizedKey(kind, host, noteID string) string {
	return fmt.Sprintf("%s/%s/%s", kind, strings.ToLower(host), noteID)
}

// GetNote retrieves a note from the cache.
func (c *MemoryCache) GetNote(_ context.Context, host, noteID string) (*domain.Note, bool) {
	entry, ok := c.load(NormalizedKey("note", host, noteID))
	if !ok {
		return nil, false
	}
	return entry.note, true
}

// SetNote stores a note in the cache with the configured TTL.
func (c *MemoryCache) SetNote(_ context.Context, host, noteID string, note *domain.Note) {
	if c.ttl <= 0 {
		return
	}
	c.entries.Store(NormalizedKey("note", host, noteID), &cacheEntry{
		note:      note,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// GetReplies retrieves the flat reply list of a note from the cache.
func (c *MemoryCache) GetReplies(_ context.Context, host, noteID string) ([]domain.Note, bool) {
	entry, ok := c.load(NormalizedKey("replies", host, noteID))
	if !ok {
		return nil, false
	}
	return entry.replies, true
}

// SetReplies stores the reply list of a note. An empty list is cached too.
func (c *MemoryCache) SetReplies(_ context.Context, host, noteID string, replies []domain.Note) {
	if c.ttl <= 0 {
		return
	}
	c.entries.Store(NormalizedKey("replies", host, noteID), &cacheEntry{
		replies:   replies,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) load(key string) (*cacheEntry, bool) {
	value, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}

	entry := value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry, true
}

// cleanup periodically removes expired entries from the cache.
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.entries.Range(func(key, value any) bool {
				if now.After(value.(*cacheEntry).expiresAt) {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}
