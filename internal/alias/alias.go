// Package alias implements the preloaded in-memory alias cache (C4): a
// process-wide map from provider team ids to master team ids, read by
// matchers and written under per-master serialization.
package alias

import (
	"context"
	"fmt"
	"sync"

	"stormlightlabs.org/rankcore/internal/core"
)

// key identifies one cache entry: a single provider's team id.
type key struct {
	provider core.ProviderID
	teamID   string
}

// Cache is the process-wide alias lookup table. A fresh instance is
// constructed per process; all writes go through upsert, which also persists
// to the repository, so recovery reseeds the cache from storage.
type Cache struct {
	store core.AliasRepository

	mu      sync.RWMutex
	entries map[key]core.MasterID

	writeMu sync.Mutex
	writers map[core.MasterID]*sync.Mutex

	refreshEvery int
	ops          int
	onRefresh    func(ctx context.Context) error

	confidenceCeiling float64
}

// New creates an alias cache backed by store. refreshEvery configures how
// many upsert operations elapse between storage-handle refreshes (0 disables
// periodic refresh); onRefresh is called to rebind the underlying client.
func New(store core.AliasRepository, refreshEvery int, onRefresh func(ctx context.Context) error) *Cache {
	return &Cache{
		store:             store,
		entries:           make(map[key]core.MasterID),
		writers:           make(map[core.MasterID]*sync.Mutex),
		refreshEvery:      refreshEvery,
		onRefresh:         onRefresh,
		confidenceCeiling: 0.99,
	}
}

// SetConfidenceCeiling overrides the fuzzy-match confidence cap (default
// 0.99); callers wire this from config.MatchingConfig.FuzzyConfidenceCeiling
// at startup.
func (c *Cache) SetConfidenceCeiling(v float64) {
	c.confidenceCeiling = v
}

// Preload scans the alias table (approved entries only) in pages and
// populates the in-memory map, expanding semicolon-joined sub-ids into
// multiple cache keys pointing at the same master.
func (c *Cache) Preload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	page := core.Page{Limit: 1000, Offset: 0}
	for {
		batch, err := c.store.PageApproved(ctx, page)
		if err != nil {
			return fmt.Errorf("preload alias cache: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			for _, sub := range a.SubIDs() {
				c.entries[key{provider: a.ProviderID, teamID: sub}] = a.MasterID
			}
		}
		if len(batch) < page.Limit {
			break
		}
		page.Offset += page.Limit
	}
	return nil
}

// Lookup returns the master id for a provider team id, or ("", false) on miss.
func (c *Cache) Lookup(provider core.ProviderID, providerTeamID string) (core.MasterID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[key{provider: provider, teamID: providerTeamID}]
	return id, ok
}

// lockFor returns the serialization mutex for a given master, creating one if needed.
func (c *Cache) lockFor(master core.MasterID) *sync.Mutex {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	m, ok := c.writers[master]
	if !ok {
		m = &sync.Mutex{}
		c.writers[master] = m
	}
	return m
}

// Upsert writes an alias idempotently. Writers serialize per master so
// concurrent arrivals of the same team do not create duplicate masters.
// Confidence for fuzzy matches is capped at confidenceCeiling (1.0 is
// reserved for direct provider-id matches).
func (c *Cache) Upsert(ctx context.Context, a core.Alias) error {
	if a.MatchMethod != core.MatchMethodDirectID && a.Confidence > c.confidenceCeiling {
		a.Confidence = c.confidenceCeiling
	}

	lock := c.lockFor(a.MasterID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.Upsert(ctx, a); err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}

	c.mu.Lock()
	for _, sub := range a.SubIDs() {
		c.entries[key{provider: a.ProviderID, teamID: sub}] = a.MasterID
	}
	c.mu.Unlock()

	c.maybeRefresh(ctx)
	return nil
}

// Invalidate removes every cache entry pointing at master (called on merge;
// callers are expected to re-upsert surviving aliases under the new master).
func (c *Cache) Invalidate(ctx context.Context, master core.MasterID) error {
	if err := c.store.Invalidate(ctx, master); err != nil {
		return fmt.Errorf("invalidate alias: %w", err)
	}

	c.mu.Lock()
	for k, v := range c.entries {
		if v == master {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// maybeRefresh re-binds the underlying storage client every refreshEvery
// operations to avoid long-lived connection degradation.
func (c *Cache) maybeRefresh(ctx context.Context) {
	if c.refreshEvery <= 0 || c.onRefresh == nil {
		return
	}
	c.writeMu.Lock()
	c.ops++
	due := c.ops%c.refreshEvery == 0
	c.writeMu.Unlock()

	if due {
		_ = c.onRefresh(ctx)
	}
}
