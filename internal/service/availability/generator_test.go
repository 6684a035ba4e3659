package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/booking-api/internal/model"
)

func monday(hour, minute int) time.Time {
	// 2026-09-07 is a Monday.
	return time.Date(2026, 9, 7, hour, minute, 0, 0, time.UTC)
}

func TestGenerateSlots_OneHourWindow(t *testing.T) {
	providerID := uuid.New()
	intervals := []model.Interval{
		{Start: monday(9, 0), End: monday(10, 0)},
	}

	slots := GenerateSlots(providerID, intervals, nil)

	require.Len(t, slots, 4)
	assert.Equal(t, monday(9, 0), slots[0].Start)
	assert.Equal(t, monday(9, 15), slots[0].End)
	assert.Equal(t, monday(9, 15), slots[1].Start)
	assert.Equal(t, monday(9, 30), slots[2].Start)
	assert.Equal(t, monday(9, 45), slots[3].Start)
	assert.Equal(t, monday(10, 0), slots[3].End)
	for _, slot := range slots {
		assert.Equal(t, providerID, slot.ProviderID)
	}
}

func TestGenerateSlots_UnalignedWindowRoundsUp(t *testing.T) {
	intervals := []model.Interval{
		{Start: monday(9, 5), End: monday(10, 0)},
	}

	slots := GenerateSlots(uuid.New(), intervals, nil)

	// 09:05 rounds up to 09:15; the partial trailing window is dropped.
	require.Len(t, slots, 3)
	assert.Equal(t, monday(9, 15), slots[0].Start)
	assert.Equal(t, monday(9, 45), slots[2].Start)
}

func TestGenerateSlots_WindowShorterThanSlot(t *testing.T) {
	intervals := []model.Interval{
		{Start: monday(9, 0), End: monday(9, 10)},
	}

	slots := GenerateSlots(uuid.New(), intervals, nil)
	assert.Empty(t, slots)
}

func TestGenerateSlots_SubtractsActiveAppointments(t *testing.T) {
	providerID := uuid.New()
	intervals := []model.Interval{
		{Start: monday(9, 0), End: monday(10, 0)},
	}
	booked := []*model.Appointment{
		{StartTime: monday(9, 15), Status: model.AppointmentStatusReserved},
		{StartTime: monday(9, 30), Status: model.AppointmentStatusConfirmed},
	}

	slots := GenerateSlots(providerID, intervals, booked)

	require.Len(t, slots, 2)
	assert.Equal(t, monday(9, 0), slots[0].Start)
	assert.Equal(t, monday(9, 45), slots[1].Start)
}

func TestGenerateSlots_TerminalAppointmentsFreeTheSlot(t *testing.T) {
	intervals := []model.Interval{
		{Start: monday(9, 0), End: monday(9, 30)},
	}
	booked := []*model.Appointment{
		{StartTime: monday(9, 0), Status: model.AppointmentStatusCancelled},
		{StartTime: monday(9, 15), Status: model.AppointmentStatusExpired},
	}

	slots := GenerateSlots(uuid.New(), intervals, booked)
	assert.Len(t, slots, 2)
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	providerID := uuid.New()
	intervals := []model.Interval{
		{Start: monday(14, 0), End: monday(15, 0)},
		{Start: monday(9, 0), End: monday(9, 30)},
	}

	first := GenerateSlots(providerID, intervals, nil)
	second := GenerateSlots(providerID, intervals, nil)

	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Start.Before(first[i].Start))
	}
}

func TestAligned(t *testing.T) {
	assert.True(t, Aligned(monday(9, 0)))
	assert.True(t, Aligned(monday(9, 45)))
	assert.False(t, Aligned(monday(9, 50)))
	assert.False(t, Aligned(monday(9, 0).Add(30*time.Second)))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, monday(9, 0), alignUp(monday(9, 0)))
	assert.Equal(t, monday(9, 15), alignUp(monday(9, 1)))
	assert.Equal(t, monday(9, 15), alignUp(monday(9, 14).Add(59*time.Second)))
}
