package quotes

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Source is the upstream quote fetch the cache wraps.
type Source interface {
	PricePerKg(ctx context.Context, commodity string) (decimal.Decimal, error)
}

type cacheEntry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Cache serves quotes from memory while they are fresh and refreshes them from
// the source when the TTL lapses. The clock is injectable so expiry is testable.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps a quote source with a TTL cache.
func NewCache(source Source, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// PricePerKg returns the cached per-kg price when fresh, otherwise refreshes
// from the source. A failed refresh does not evict a stale entry, but the
// stale value is never served; the caller gets the fetch error.
func (c *Cache) PricePerKg(ctx context.Context, commodity string) (decimal.Decimal, error) {
	c.mu.Lock()
	entry, ok := c.entries[commodity]
	fresh := ok && c.now().Sub(entry.fetchedAt) < c.ttl
	c.mu.Unlock()

	if fresh {
		return entry.price, nil
	}

	price, err := c.source.PricePerKg(ctx, commodity)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.entries[commodity] = cacheEntry{price: price, fetchedAt: c.now()}
	c.mu.Unlock()

	return price, nil
}
