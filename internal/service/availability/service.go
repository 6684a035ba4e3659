package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository"
	"github.com/careslot/booking-api/internal/service/schedule"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/metrics"
)

// MaxRangeDays bounds a single time-slot query.
const MaxRangeDays = 31

// Service answers slot listings through the cache and re-derives entries
// from durable state on a miss. The cache is an optimization only; every
// answer can be computed without it.
type Service struct {
	schedule     *schedule.Service
	appointments repository.AppointmentRepository
	cache        cache.SlotCache
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(scheduleSvc *schedule.Service, appointments repository.AppointmentRepository, slotCache cache.SlotCache, m *metrics.Metrics, logger *logger.Logger) *Service {
	return &Service{
		schedule:     scheduleSvc,
		appointments: appointments,
		cache:        slotCache,
		metrics:      m,
		logger:       logger,
	}
}

// GetTimeSlots lists available slots per day over the inclusive date range,
// serving from cache when possible.
func (s *Service) GetTimeSlots(ctx context.Context, providerID uuid.UUID, dateRange model.DateRange) ([]model.TimeSlot, error) {
	start := truncateToDay(dateRange.Start)
	end := truncateToDay(dateRange.End)
	if end.Before(start) {
		return nil, apperrors.Validation("end date before start date", nil)
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return nil, apperrors.Validation(fmt.Sprintf("date range exceeds %d days", MaxRangeDays), nil)
	}

	var all []model.TimeSlot
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		slots, err := s.dayWithCache(ctx, providerID, day)
		if err != nil {
			return nil, err
		}
		all = append(all, slots...)
	}
	return all, nil
}

// DeriveDay computes a day's slots directly from durable state, bypassing
// the cache. The reservation path uses this at claim time.
func (s *Service) DeriveDay(ctx context.Context, providerID uuid.UUID, day time.Time) ([]model.TimeSlot, error) {
	intervals, err := s.schedule.CandidateIntervals(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	booked, err := s.appointments.ListActiveForDay(ctx, providerID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	return GenerateSlots(providerID, intervals, booked), nil
}

// RefreshDay re-derives a day's slots and overwrites the cache entry. The
// reconciliation sweep uses it to repair divergence.
func (s *Service) RefreshDay(ctx context.Context, providerID uuid.UUID, day time.Time) error {
	slots, err := s.DeriveDay(ctx, providerID, day)
	if err != nil {
		return err
	}
	if err := s.cache.Put(ctx, providerID, day, slots); err != nil {
		return fmt.Errorf("failed to refresh cache entry: %w", err)
	}
	return nil
}

func (s *Service) dayWithCache(ctx context.Context, providerID uuid.UUID, day time.Time) ([]model.TimeSlot, error) {
	slots, err := s.cache.Get(ctx, providerID, day)
	if err == nil {
		s.metrics.CacheHits.Inc()
		return slots, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// Cache unavailability degrades to durable computation.
		s.metrics.CacheErrors.Inc()
		s.logger.Warn("slot cache unavailable, falling back to database",
			"provider_id", providerID.String(), "error", err.Error())
	} else {
		s.metrics.CacheMisses.Inc()
	}

	slots, err = s.DeriveDay(ctx, providerID, day)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, providerID, day, slots); err != nil {
		s.metrics.CacheErrors.Inc()
		s.logger.Warn("failed to populate slot cache",
			"provider_id", providerID.String(), "error", err.Error())
	}
	return slots, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
