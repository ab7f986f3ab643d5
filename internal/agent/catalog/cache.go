package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// CachedAmenityCatalog memoises amenity counts for a short TTL. Errors are
// never cached so a recovering catalog is picked up on the next call.
type CachedAmenityCatalog struct {
	next  model.AmenityCatalog
	cache *cache.Cache
}

func NewCachedAmenityCatalog(next model.AmenityCatalog, ttl time.Duration) *CachedAmenityCatalog {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedAmenityCatalog{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedAmenityCatalog) CountListingsWithAmenity(ctx context.Context, name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if cached, found := c.cache.Get(key); found {
		return cached.(int), nil
	}

	n, err := c.next.CountListingsWithAmenity(ctx, name)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, n, cache.DefaultExpiration)
	logx.Debug().Str("amenity", key).Int("count", n).Msg("Amenity count cached")
	return n, nil
}

// Flush drops every cached count.
func (c *CachedAmenityCatalog) Flush() {
	c.cache.Flush()
}
