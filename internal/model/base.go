package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateRange represents an inclusive calendar date range
type DateRange struct {
	Start time.Time `json:"start_date" form:"start_date" time_format:"2006-01-02"`
	End   time.Time `json:"end_date" form:"end_date" time_format:"2006-01-02"`
}
