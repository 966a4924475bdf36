package geocode

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gooze-fr/event-planner/internal/model"
)

type place struct {
	center   *Center
	resolved atomic.Bool
	at       time.Time
}

// Cache remembers the map centre of each address so repeated summary
// renders share one lookup. Views that arrive while the first lookup is
// still running see the default centre instead of waiting for it.
type Cache struct {
	client *Client
	def    model.LatLng
	ttl    time.Duration

	mu     sync.Mutex
	places map[string]*place
	now    func() time.Time
}

// NewCache wraps client. Entries older than ttl are looked up again.
func NewCache(client *Client, def model.LatLng, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		client: client,
		def:    def,
		ttl:    ttl,
		places: make(map[string]*place),
		now:    time.Now,
	}
}

// Default returns the centre used before or without a lookup.
func (c *Cache) Default() model.LatLng {
	return c.def
}

// Enabled reports whether lookups can run at all.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.client.Enabled()
}

// Locate returns the centre for address and whether it came from a
// successful lookup. Failed lookups are cached too and keep the default.
func (c *Cache) Locate(ctx context.Context, address string) (model.LatLng, bool) {
	key := strings.TrimSpace(address)
	if key == "" || !c.Enabled() {
		return c.def, false
	}

	c.mu.Lock()
	p, ok := c.places[key]
	if ok && c.now().Sub(p.at) < c.ttl {
		c.mu.Unlock()
		return p.center.Get(), p.resolved.Load()
	}
	p = &place{center: NewCenter(c.def), at: c.now()}
	c.places[key] = p
	c.mu.Unlock()

	if err := c.client.Resolve(ctx, p.center, key); err == nil {
		p.resolved.Store(true)
	}
	return p.center.Get(), p.resolved.Load()
}

// Lookup resolves address without caching.
func (c *Cache) Lookup(ctx context.Context, address string) (model.LatLng, error) {
	if c == nil || c.client == nil {
		return model.LatLng{}, ErrUnavailable
	}
	return c.client.Lookup(ctx, address)
}

// Sweep drops entries older than maxIdle and returns how many went.
func (c *Cache) Sweep(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-maxIdle)
	n := 0
	for key, p := range c.places {
		if p.at.Before(cutoff) {
			delete(c.places, key)
			n++
		}
	}
	return n
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.places)
}
