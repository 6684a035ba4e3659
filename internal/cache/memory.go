package cache

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/careslot/booking-api/internal/model"
)

// MemoryCache is an in-process SlotCache backed by go-cache. It serves as
// the test double and as a local fallback when Redis is not configured.
type MemoryCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *MemoryCache) Init(ctx context.Context) error {
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.TimeSlot, error) {
	v, ok := c.store.Get(Key(providerID, date))
	if !ok {
		return nil, ErrMiss
	}
	slots, ok := v.([]model.TimeSlot)
	if !ok {
		return nil, ErrMiss
	}
	return slots, nil
}

func (c *MemoryCache) Put(ctx context.Context, providerID uuid.UUID, date time.Time, slots []model.TimeSlot) error {
	c.store.Set(Key(providerID, date), slots, c.ttl)
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, providerID uuid.UUID) error {
	prefix := KeyPrefix(providerID)
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return nil
}

func (c *MemoryCache) Teardown(ctx context.Context) error {
	c.store.Flush()
	return nil
}
