// Package cache fronts slower stores with an in-process TTL cache.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/brightly-app/brightly/backend/internal/model/profile"
)

// ProfileCache is a read-through, write-through cache over a profile.Store.
// Absent profiles are not cached so a concurrent registration is seen at once.
type ProfileCache struct {
	next  profile.Store
	cache *gocache.Cache
}

// NewProfileCache wraps next with entries that expire after ttl.
func NewProfileCache(next profile.Store, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *ProfileCache) Get(ctx context.Context, ownerID string) (profile.Profile, bool, error) {
	if x, found := c.cache.Get(ownerID); found {
		return clone(x.(profile.Profile)), true, nil
	}

	p, ok, err := c.next.Get(ctx, ownerID)
	if err != nil || !ok {
		return p, ok, err
	}
	c.cache.Set(ownerID, clone(p), gocache.DefaultExpiration)
	return p, true, nil
}

func (c *ProfileCache) Put(ctx context.Context, p profile.Profile) error {
	if err := c.next.Put(ctx, p); err != nil {
		c.cache.Delete(p.OwnerID)
		return err
	}
	c.cache.Set(p.OwnerID, clone(p), gocache.DefaultExpiration)
	return nil
}

// Invalidate drops the cached profile of ownerID.
func (c *ProfileCache) Invalidate(ownerID string) {
	c.cache.Delete(ownerID)
}

func clone(p profile.Profile) profile.Profile {
	if p.HiddenTabs != nil {
		p.HiddenTabs = append([]string{}, p.HiddenTabs...)
	}
	return p
}
