package coordinator

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

const permissionErrorCode = "99991672"

var grantURLPattern = regexp.MustCompile(`https?://\S+`)

// ExtractPermissionError recognizes the provider's permission-error shape
// (code 99991672) in an error message and extracts the grant URL the user
// needs to visit, per spec.md §7.
func ExtractPermissionError(errText string) (grantURL string, ok bool) {
	if !strings.Contains(errText, permissionErrorCode) {
		return "", false
	}
	match := grantURLPattern.FindString(errText)
	if match == "" {
		return "", false
	}
	return strings.TrimRight(match, `.,)"'`), true
}

// permissionCache is the per-Coordinator (not package-global) cache of
// recently seen permission errors, resolving spec.md §9's open question:
// scope is per-Coordinator instance since each Coordinator owns exactly one
// provider account's credentials and cooldown.
type permissionCache struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	entries  map[string]permissionCacheEntry
}

type permissionCacheEntry struct {
	grantURL string
	cachedAt time.Time
}

func newPermissionCache(cooldown time.Duration) *permissionCache {
	return &permissionCache{cooldown: cooldown, now: time.Now, entries: make(map[string]permissionCacheEntry)}
}

// Observe records appID's permission error and reports whether it should be
// surfaced now (i.e. the cooldown for this appID has elapsed).
func (c *permissionCache) Observe(appID, grantURL string) (shouldSurface bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if entry, ok := c.entries[appID]; ok && now.Sub(entry.cachedAt) < c.cooldown {
		return false
	}
	c.entries[appID] = permissionCacheEntry{grantURL: grantURL, cachedAt: now}
	return true
}

// SystemObservableMessage renders the synthesized system message shown to
// the agent so the user is informed of the missing grant, per spec.md §7.
func SystemObservableMessage(grantURL string) string {
	return "⚠️ This action requires additional permissions. Please visit " + grantURL + " to grant access, then try again."
}
