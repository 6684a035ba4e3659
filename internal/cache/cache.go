package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/model"
)

// ErrMiss is returned by Get when no fresh entry exists for the key.
var ErrMiss = errors.New("cache miss")

// SlotCache is the best-effort store of generated slots per provider/date.
// It is never authoritative: every entry can be regenerated from durable
// state, so callers treat any error as a miss.
type SlotCache interface {
	// Init connects the backing store.
	Init(ctx context.Context) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	Get(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.TimeSlot, error)
	Put(ctx context.Context, providerID uuid.UUID, date time.Time, slots []model.TimeSlot) error
	// Invalidate removes every date-keyed entry for the provider.
	Invalidate(ctx context.Context, providerID uuid.UUID) error
	// Teardown flushes and disconnects.
	Teardown(ctx context.Context) error
}

// Key builds the canonical cache key for a provider's slots on a date.
func Key(providerID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("provider:%s:timeslots:%s", providerID, date.Format("2006-01-02"))
}

// KeyPrefix is the invalidation prefix covering all dates of a provider.
func KeyPrefix(providerID uuid.UUID) string {
	return fmt.Sprintf("provider:%s:timeslots:", providerID)
}
