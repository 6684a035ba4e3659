package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/booking-api/internal/model"
)

func (r *scheduleRepository) ReplaceWeekly(ctx context.Context, providerID uuid.UUID, intervals []*model.WeeklyInterval) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM weekly_intervals WHERE provider_id = $1`, providerID); err != nil {
			return fmt.Errorf("failed to clear weekly intervals: %w", err)
		}

		query := `
			INSERT INTO weekly_intervals (
				id, provider_id, weekday, start_minute, end_minute, updated_at
			) VALUES ($1, $2, $3, $4, $5, NOW())
		`
		for _, iv := range intervals {
			iv.ID = uuid.New()
			iv.ProviderID = providerID
			if _, err := tx.ExecContext(ctx, query,
				iv.ID, iv.ProviderID, iv.Weekday, iv.Start, iv.End); err != nil {
				return fmt.Errorf("failed to insert weekly interval: %w", err)
			}
		}
		return nil
	})
}

func (r *scheduleRepository) ListWeekly(ctx context.Context, providerID uuid.UUID) ([]*model.WeeklyInterval, error) {
	query := `
		SELECT id, provider_id, weekday, start_minute, end_minute
		FROM weekly_intervals
		WHERE provider_id = $1
		ORDER BY weekday, start_minute
	`
	var intervals []*model.WeeklyInterval
	if err := r.GetDB().SelectContext(ctx, &intervals, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list weekly intervals: %w", err)
	}
	return intervals, nil
}

func (r *scheduleRepository) ReplaceExceptions(ctx context.Context, providerID uuid.UUID, exceptions []*model.ScheduleException) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM schedule_exceptions WHERE provider_id = $1`, providerID); err != nil {
			return fmt.Errorf("failed to clear schedule exceptions: %w", err)
		}

		query := `
			INSERT INTO schedule_exceptions (
				id, provider_id, date, kind, start_minute, end_minute,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		`
		for _, ex := range exceptions {
			ex.ID = uuid.New()
			ex.ProviderID = providerID
			if _, err := tx.ExecContext(ctx, query,
				ex.ID, ex.ProviderID, ex.Date, ex.Kind, ex.Start, ex.End); err != nil {
				return fmt.Errorf("failed to insert schedule exception: %w", err)
			}
		}
		return nil
	})
}

func (r *scheduleRepository) ListExceptions(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*model.ScheduleException, error) {
	query := `
		SELECT id, provider_id, date, kind, start_minute, end_minute,
			   created_at, updated_at
		FROM schedule_exceptions
		WHERE provider_id = $1 AND date = $2::date
		ORDER BY start_minute
	`
	var exceptions []*model.ScheduleException
	if err := r.GetDB().SelectContext(ctx, &exceptions, query, providerID, date.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to list schedule exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *scheduleRepository) TouchedProviders(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT provider_id FROM weekly_intervals WHERE updated_at >= $1
		UNION
		SELECT provider_id FROM schedule_exceptions WHERE updated_at >= $1
		UNION
		SELECT provider_id FROM appointments WHERE updated_at >= $1
	`
	var ids []uuid.UUID
	if err := r.GetDB().SelectContext(ctx, &ids, query, since); err != nil {
		return nil, fmt.Errorf("failed to list touched providers: %w", err)
	}
	return ids, nil
}
