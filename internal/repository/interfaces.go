package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles account storage
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	}

	// ScheduleRepository stores weekly patterns and date-scoped exceptions
	ScheduleRepository interface {
		ReplaceWeekly(ctx context.Context, providerID uuid.UUID, intervals []*model.WeeklyInterval) error
		ListWeekly(ctx context.Context, providerID uuid.UUID) ([]*model.WeeklyInterval, error)
		ReplaceExceptions(ctx context.Context, providerID uuid.UUID, exceptions []*model.ScheduleException) error
		ListExceptions(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*model.ScheduleException, error)
		// TouchedProviders returns providers whose schedule or appointments
		// changed at or after the cutoff; drives cache reconciliation.
		TouchedProviders(ctx context.Context, since time.Time) ([]uuid.UUID, error)
	}

	// AppointmentRepository stores reservations. Create must enforce slot
	// exclusivity atomically against the active-status partial unique index.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// TransitionStatus performs a compare-and-set on status and
		// returns the updated row, or ErrNoTransition when the current
		// status no longer matches from.
		TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, confirmedAt *time.Time) (*model.Appointment, error)
		ListActiveForDay(ctx context.Context, providerID uuid.UUID, day time.Time) ([]*model.Appointment, error)
		ListBooked(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		// ListOverdueReserved returns reserved appointments created at or
		// before the cutoff, i.e. whose grace period has elapsed.
		ListOverdueReserved(ctx context.Context, createdBefore time.Time) ([]*model.Appointment, error)
	}

	// TokenRepository stores one-shot password reset tokens
	TokenRepository interface {
		StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
		ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error)
	}
)
