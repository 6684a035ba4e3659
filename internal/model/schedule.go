package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is minutes since midnight. It marshals as "HH:MM" and stores
// as an integer column.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On anchors the time of day to a calendar date in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = TimeOfDay(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// WeeklyInterval is one recurring availability window in a provider's week.
type WeeklyInterval struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	ProviderID uuid.UUID    `json:"provider_id" db:"provider_id"`
	Weekday    time.Weekday `json:"weekday" db:"weekday"`
	Start      TimeOfDay    `json:"start" db:"start_minute"`
	End        TimeOfDay    `json:"end" db:"end_minute"`
}

// ExceptionKind distinguishes date-scoped overrides.
type ExceptionKind string

const (
	// ExceptionBlock removes availability on the date. A zero Start/End
	// blocks the whole day.
	ExceptionBlock ExceptionKind = "block"
	// ExceptionAdd appends an ad-hoc window on the date.
	ExceptionAdd ExceptionKind = "add"
)

// ScheduleException is a date-scoped override of the weekly pattern.
type ScheduleException struct {
	Base
	ProviderID uuid.UUID     `json:"provider_id" db:"provider_id"`
	Date       time.Time     `json:"date" db:"date"`
	Kind       ExceptionKind `json:"kind" db:"kind"`
	Start      TimeOfDay     `json:"start" db:"start_minute"`
	End        TimeOfDay     `json:"end" db:"end_minute"`
}

// WholeDay reports whether a block exception covers the entire date.
func (e *ScheduleException) WholeDay() bool {
	return e.Kind == ExceptionBlock && e.Start == 0 && e.End == 0
}

// Interval is a concrete half-open [Start, End) window on a calendar date.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Request payloads for schedule mutation.

type WeeklyIntervalRequest struct {
	Weekday int    `json:"weekday" binding:"min=0,max=6"`
	Start   string `json:"start" binding:"required,timeofday"`
	End     string `json:"end" binding:"required,timeofday"`
}

type ExceptionRequest struct {
	Date  string `json:"date" binding:"required,dateonly"`
	Kind  string `json:"kind" binding:"required,oneof=block add"`
	Start string `json:"start" binding:"omitempty,timeofday"`
	End   string `json:"end" binding:"omitempty,timeofday"`
}

type SetAvailabilityRequest struct {
	Weekly     []WeeklyIntervalRequest `json:"weekly" binding:"required,dive"`
	Exceptions []ExceptionRequest      `json:"exceptions" binding:"dive"`
}
