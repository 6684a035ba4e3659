package repository

import "errors"

// Storage-level sentinels. Services translate these into the application
// error taxonomy.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrSlotTaken    = errors.New("slot already claimed")
	ErrNoTransition = errors.New("status transition precondition failed")
)
