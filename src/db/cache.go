package db

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// deliveryCapacity is the number of transaction ids ristretto holds per TTL
// before claims start spilling into the overflow map.
const deliveryCapacity = 100000

type deliveryClaim struct {
	key     string
	expires time.Time
}

// DeliveryCache remembers which transactions have already been handled so a
// webhook delivered more than once only acts once within the TTL.
//
// Ristretto may drop a write, refuse admission or evict early. Any live claim
// it lets go of is moved to overflow until it expires.
type DeliveryCache struct {
	mu    sync.Mutex
	cache *ristretto.Cache
	ttl   time.Duration

	overflowMu sync.Mutex
	overflow   map[string]time.Time
}

func NewDeliveryCache(ttl time.Duration) (*DeliveryCache, error) {
	return newDeliveryCache(ttl, deliveryCapacity)
}

func newDeliveryCache(ttl time.Duration, capacity int64) (*DeliveryCache, error) {
	c := &DeliveryCache{ttl: ttl, overflow: map[string]time.Time{}}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        capacity * 10, // number of keys to track frequency of
		MaxCost:            capacity,
		BufferItems:        64, // number of keys per Get buffer
		IgnoreInternalCost: true,
		OnEvict:            c.spill,
		OnReject:           c.spill,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing delivery cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// spill runs on ristretto's goroutine, so it must not take c.mu.
func (c *DeliveryCache) spill(item *ristretto.Item) {
	claim, ok := item.Value.(deliveryClaim)
	if !ok {
		return
	}
	c.keepOverflow(claim)
}

func (c *DeliveryCache) keepOverflow(claim deliveryClaim) {
	c.overflowMu.Lock()
	defer c.overflowMu.Unlock()
	if time.Now().Before(claim.expires) {
		c.overflow[claim.key] = claim.expires
	}
}

// Claim marks key as handled and reports whether this caller got it first.
func (c *DeliveryCache) Claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.claimed(key) {
		return false
	}

	claim := deliveryClaim{key: key, expires: time.Now().Add(c.ttl)}
	if c.cache.SetWithTTL(key, claim, 1, c.ttl) {
		c.cache.Wait()
		if _, ok := c.cache.Get(key); ok {
			return true
		}
	}
	c.keepOverflow(claim)
	return true
}

func (c *DeliveryCache) claimed(key string) bool {
	if _, ok := c.cache.Get(key); ok {
		return true
	}

	c.overflowMu.Lock()
	defer c.overflowMu.Unlock()
	now := time.Now()
	for k, expires := range c.overflow {
		if !now.Before(expires) {
			delete(c.overflow, k)
		}
	}
	_, ok := c.overflow[key]
	return ok
}

func (c *DeliveryCache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Del(key)
	c.cache.Wait()

	c.overflowMu.Lock()
	delete(c.overflow, key)
	c.overflowMu.Unlock()
}

func (c *DeliveryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()

	c.overflowMu.Lock()
	c.overflow = map[string]time.Time{}
	c.overflowMu.Unlock()
}

func (c *DeliveryCache) Close() {
	c.cache.Close()
}
