package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/booking-api/internal/model"
)

func TestMemoryCache_PutGet(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	providerID := uuid.New()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots := []model.TimeSlot{
		{ProviderID: providerID, Start: date.Add(9 * time.Hour), End: date.Add(9*time.Hour + model.SlotDuration)},
	}

	_, err := c.Get(context.Background(), providerID, date)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Put(context.Background(), providerID, date, slots))

	got, err := c.Get(context.Background(), providerID, date)
	require.NoError(t, err)
	assert.Equal(t, slots, got)
}

func TestMemoryCache_InvalidateCoversAllDates(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	providerID := uuid.New()
	other := uuid.New()
	day1 := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, c.Put(context.Background(), providerID, day1, nil))
	require.NoError(t, c.Put(context.Background(), providerID, day2, nil))
	require.NoError(t, c.Put(context.Background(), other, day1, nil))

	require.NoError(t, c.Invalidate(context.Background(), providerID))

	_, err := c.Get(context.Background(), providerID, day1)
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(context.Background(), providerID, day2)
	assert.ErrorIs(t, err, ErrMiss)

	// Other providers keep their entries.
	_, err = c.Get(context.Background(), other, day1)
	assert.NoError(t, err)
}

func TestKey(t *testing.T) {
	providerID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	date := time.Date(2026, 9, 7, 13, 45, 0, 0, time.UTC)

	// The time component never leaks into the key.
	assert.Equal(t,
		"provider:6ba7b810-9dad-11d1-80b4-00c04fd430c8:timeslots:2026-09-07",
		Key(providerID, date))
	assert.Equal(t,
		"provider:6ba7b810-9dad-11d1-80b4-00c04fd430c8:timeslots:",
		KeyPrefix(providerID))
}
