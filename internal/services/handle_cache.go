package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

// HandleCache is the in-memory view of the handle cache for one pipeline run.
// It is not safe for concurrent use.
type HandleCache struct {
	entries map[string]models.HandleCacheEntry
	dirty   bool
	// loaded is false when the backing document could not be read. Such a
	// cache is never written back.
	loaded bool
}

// NewHandleCache copies entries into a fresh, clean cache.
func NewHandleCache(entries map[string]models.HandleCacheEntry) *HandleCache {
	c := &HandleCache{entries: make(map[string]models.HandleCacheEntry, len(entries)), loaded: true}
	for k, v := range entries {
		c.entries[k] = v
	}
	return c
}

// LoadHandleCache reads the cache document. On failure it logs and returns an
// empty cache that will not be saved.
func LoadHandleCache(ctx context.Context, s store.HandleCacheStore) *HandleCache {
	if s == nil {
		c := NewHandleCache(nil)
		c.loaded = false
		return c
	}
	entries, err := s.Load(ctx)
	if err != nil {
		log.Warnf("Failed to load handle cache, resolving against an empty one: %v", err)
		c := NewHandleCache(nil)
		c.loaded = false
		return c
	}
	return NewHandleCache(entries)
}

func (c *HandleCache) Get(handle string) (models.HandleCacheEntry, bool) {
	e, ok := c.entries[handle]
	return e, ok
}

// Put stores entry for handle. Writing an identical entry leaves the cache clean.
func (c *HandleCache) Put(handle string, entry models.HandleCacheEntry) {
	if old, ok := c.entries[handle]; ok && old.Equal(entry) {
		return
	}
	c.entries[handle] = entry
	c.dirty = true
}

func (c *HandleCache) Dirty() bool { return c.dirty }

func (c *HandleCache) Len() int { return len(c.entries) }

// Snapshot returns a copy of the entries.
func (c *HandleCache) Snapshot() map[string]models.HandleCacheEntry {
	out := make(map[string]models.HandleCacheEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Flush writes the cache back when it changed and was loaded successfully.
func (c *HandleCache) Flush(ctx context.Context, s store.HandleCacheStore) error {
	if s == nil || !c.dirty {
		return nil
	}
	if !c.loaded {
		log.Warn("Handle cache was not loaded; skipping save to avoid overwriting the stored document")
		return nil
	}
	if err := s.Save(ctx, c.Snapshot()); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
