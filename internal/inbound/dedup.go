// Package inbound implements the two-layer duplicate/stale-delivery guard
// that sits in front of TaskCoordinator (component C, spec.md §4.3): an
// in-memory LRU+TTL cache absorbing provider reconnect re-delivery bursts,
// and a persistent per-(accountId, chatId) watermark+ring guarding against
// stale out-of-order deliveries across process restarts.
package inbound

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	dedupCacheSize = 1000
	dedupTTL       = 30 * time.Minute
	sweepInterval  = 5 * time.Minute
)

// Dedup is the in-memory layer: messageId -> receivedAt with TTL and an LRU
// cap, grounded on the teacher's Gateway.isDuplicateMessage
// (internal/channels/lark/gateway.go), generalized from a single mutex+map
// pair into hashicorp/golang-lru/v2's generic Cache and given an explicit
// throttled sweep instead of relying purely on lazy eviction.
type Dedup struct {
	mu    sync.Mutex
	cache *lru.Cache[string, time.Time]
	now   func() time.Time

	lastSweep time.Time
}

// NewDedup creates an empty in-memory dedup cache.
func NewDedup() *Dedup {
	cache, err := lru.New[string, time.Time](dedupCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens with the constant above.
		panic("inbound: dedup cache init: " + err.Error())
	}
	return &Dedup{cache: cache, now: time.Now}
}

// TryRecord reports whether id is new: it returns false if id was already
// seen within the TTL, and otherwise records id as seen and returns true.
// Empty ids are never deduped.
func (d *Dedup) TryRecord(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweepLocked(now)

	if ts, ok := d.cache.Get(id); ok {
		if now.Sub(ts) <= dedupTTL {
			return false
		}
		d.cache.Remove(id)
	}
	d.cache.Add(id, now)
	return true
}

// sweepLocked evicts expired entries, throttled to at most once per
// sweepInterval so a hot path doesn't pay a full-cache scan every call.
func (d *Dedup) sweepLocked(now time.Time) {
	if !d.lastSweep.IsZero() && now.Sub(d.lastSweep) < sweepInterval {
		return
	}
	d.lastSweep = now
	for _, key := range d.cache.Keys() {
		ts, ok := d.cache.Peek(key)
		if ok && now.Sub(ts) > dedupTTL {
			d.cache.Remove(key)
		}
	}
}
