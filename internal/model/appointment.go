package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = 15 * time.Minute

type AppointmentStatus string

const (
	AppointmentStatusReserved  AppointmentStatus = "reserved"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusExpired   AppointmentStatus = "expired"
)

// Active reports whether the status still occupies its slot.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusReserved || s == AppointmentStatusConfirmed
}

// Terminal reports whether no further transition except cancellation of a
// confirmed appointment is possible.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusExpired
}

// Appointment is the reservable unit. At most one active appointment may
// occupy a given (provider, start, end) interval.
type Appointment struct {
	Base
	ProviderID  uuid.UUID         `json:"provider_id" db:"provider_id"`
	PatientID   uuid.UUID         `json:"patient_id" db:"patient_id"`
	StartTime   time.Time         `json:"start_time" db:"start_time"`
	EndTime     time.Time         `json:"end_time" db:"end_time"`
	Status      AppointmentStatus `json:"status" db:"status"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// TimeSlot is a derived, never persisted, bookable interval.
type TimeSlot struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type ReserveAppointmentRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
}

type ConfirmAppointmentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
}

type CancelAppointmentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
}
