package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/model"
)

// alignUp rounds t up to the next 15-minute boundary.
func alignUp(t time.Time) time.Time {
	rem := time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
	rem %= model.SlotDuration
	if rem == 0 {
		return t
	}
	return t.Add(model.SlotDuration - rem)
}

// Aligned reports whether t sits exactly on a 15-minute boundary.
func Aligned(t time.Time) bool {
	return alignUp(t).Equal(t)
}

// GenerateSlots expands candidate intervals into discrete 15-minute slots
// and subtracts slots claimed by the given active appointments. It is pure:
// the same inputs always yield the same ordered output, which is what lets
// cache entries be regenerated at any time.
func GenerateSlots(providerID uuid.UUID, intervals []model.Interval, booked []*model.Appointment) []model.TimeSlot {
	taken := make(map[int64]struct{}, len(booked))
	for _, appt := range booked {
		if appt.Status.Active() {
			taken[appt.StartTime.Unix()] = struct{}{}
		}
	}

	var slots []model.TimeSlot
	for _, iv := range intervals {
		start := alignUp(iv.Start)
		for !start.Add(model.SlotDuration).After(iv.End) {
			end := start.Add(model.SlotDuration)
			if _, ok := taken[start.Unix()]; !ok {
				slots = append(slots, model.TimeSlot{
					ProviderID: providerID,
					Start:      start,
					End:        end,
				})
			}
			start = end
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}
