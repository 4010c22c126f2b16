package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// RenderCache memoizes chart markup. Keys are "<widget id>:<size>"; version
// identifies the view the markup was drawn from, so a new frame replaces the
// entry instead of adding one.
type RenderCache interface {
	GetOrRender(key, version string, render func() (string, error)) (string, error)
}

// ChartCache keeps rendered markup for ttl. A zero ttl disables caching.
type ChartCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	entries   map[string]chartEntry
	nextSweep time.Time
}

type chartEntry struct {
	version string
	markup  string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{ttl: ttl, now: time.Now, entries: map[string]chartEntry{}}
}

// GetOrRender returns the live entry for key when it was drawn from version,
// otherwise renders and replaces it. Failed renders are not cached.
func (c *ChartCache) GetOrRender(key, version string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	now := c.now()
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.version == version && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.markup, nil
	}
	c.mu.Unlock()

	markup, err := render()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[key] = chartEntry{version: version, markup: markup, expires: now.Add(c.ttl)}
	c.sweepLocked(now)
	c.mu.Unlock()
	return markup, nil
}

// sweepLocked drops expired entries at most once per ttl.
func (c *ChartCache) sweepLocked(now time.Time) {
	if now.Before(c.nextSweep) {
		return
	}
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
		}
	}
	c.nextSweep = now.Add(c.ttl)
}

// Forget drops every entry rendered for widgetID.
func (c *ChartCache) Forget(widgetID string) {
	if c == nil || widgetID == "" {
		return
	}
	prefix := widgetID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *ChartCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func viewHash(view any) string {
	if view == nil {
		return "empty"
	}
	b, err := json.Marshal(view)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:8])
}
