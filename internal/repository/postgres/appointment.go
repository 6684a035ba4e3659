package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository"
)

// Create inserts a reservation. The appointments table carries a partial
// unique index on (provider_id, start_time) restricted to active statuses,
// so the insert itself is the atomic slot claim.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, provider_id, patient_id, start_time, end_time, status,
			confirmed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.ProviderID,
		appointment.PatientID,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.ConfirmedAt,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, provider_id, patient_id, start_time, end_time, status,
			   confirmed_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

// TransitionStatus is a compare-and-set: the row only changes when its
// current status matches from, which makes retries and the sweeps idempotent.
func (r *appointmentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, confirmedAt *time.Time) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $1, confirmed_at = COALESCE($2, confirmed_at), updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING id, provider_id, patient_id, start_time, end_time, status,
				  confirmed_at, created_at, updated_at
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, to, confirmedAt, id, from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoTransition
		}
		return nil, fmt.Errorf("failed to transition appointment status: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListActiveForDay(ctx context.Context, providerID uuid.UUID, day time.Time) ([]*model.Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, provider_id, patient_id, start_time, end_time, status,
			   confirmed_at, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND status IN ('reserved', 'confirmed')
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, providerID, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to list active appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListBooked(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT id, provider_id, patient_id, start_time, end_time, status,
			   confirmed_at, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND status IN ('reserved', 'confirmed')
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, providerID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list booked appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListOverdueReserved(ctx context.Context, createdBefore time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT id, provider_id, patient_id, start_time, end_time, status,
			   confirmed_at, created_at, updated_at
		FROM appointments
		WHERE status = 'reserved'
		  AND created_at <= $1
		ORDER BY created_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, createdBefore); err != nil {
		return nil, fmt.Errorf("failed to list overdue reservations: %w", err)
	}
	return appointments, nil
}
