package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
)

// Service owns the provider schedule: the recurring weekly pattern plus
// date-scoped exceptions, and the derivation of candidate intervals for a
// date.
type Service struct {
	users  repository.UserRepository
	repo   repository.ScheduleRepository
	cache  cache.SlotCache
	logger *logger.Logger
}

func NewService(users repository.UserRepository, repo repository.ScheduleRepository, slotCache cache.SlotCache, logger *logger.Logger) *Service {
	return &Service{
		users:  users,
		repo:   repo,
		cache:  slotCache,
		logger: logger,
	}
}

// SetAvailability replaces the provider's weekly pattern and exceptions.
// Only the provider themselves or an admin may mutate a schedule. All
// cached slot entries for the provider are invalidated afterwards;
// correctness over cache hit rate.
func (s *Service) SetAvailability(ctx context.Context, principal model.Principal, providerID uuid.UUID, req *model.SetAvailabilityRequest) error {
	switch principal.Role {
	case model.RoleProvider:
		if principal.UserID != providerID {
			return apperrors.Forbidden("cannot set availability for another provider", nil)
		}
	case model.RoleAdmin:
		// admins may manage any provider's schedule
	case model.RolePatient:
		return apperrors.Forbidden("patients cannot set availability", nil)
	default:
		return apperrors.Forbidden("unknown role", nil)
	}

	if _, err := s.requireProvider(ctx, providerID); err != nil {
		return err
	}

	weekly, exceptions, err := parseAvailability(req)
	if err != nil {
		return err
	}

	if err := s.repo.ReplaceWeekly(ctx, providerID, weekly); err != nil {
		return fmt.Errorf("failed to replace weekly pattern: %w", err)
	}
	if err := s.repo.ReplaceExceptions(ctx, providerID, exceptions); err != nil {
		return fmt.Errorf("failed to replace exceptions: %w", err)
	}

	if err := s.cache.Invalidate(ctx, providerID); err != nil {
		// Best-effort; the reconciliation sweep repairs missed invalidations.
		s.logger.Error(err, "cache invalidation failed after schedule change",
			"provider_id", providerID.String())
	}

	return nil
}

// CandidateIntervals merges the weekly pattern with the date's exceptions:
// block exceptions carve availability out, add exceptions append windows,
// overlapping results coalesce into a union.
func (s *Service) CandidateIntervals(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.Interval, error) {
	if _, err := s.requireProvider(ctx, providerID); err != nil {
		return nil, err
	}

	weekly, err := s.repo.ListWeekly(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly pattern: %w", err)
	}
	exceptions, err := s.repo.ListExceptions(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load exceptions: %w", err)
	}

	var intervals []model.Interval
	for _, iv := range weekly {
		if iv.Weekday != date.Weekday() {
			continue
		}
		intervals = append(intervals, model.Interval{
			Start: iv.Start.On(date),
			End:   iv.End.On(date),
		})
	}

	for _, ex := range exceptions {
		if ex.Kind != model.ExceptionBlock {
			continue
		}
		if ex.WholeDay() {
			intervals = intervals[:0]
			continue
		}
		blocked := model.Interval{Start: ex.Start.On(date), End: ex.End.On(date)}
		intervals = subtract(intervals, blocked)
	}

	for _, ex := range exceptions {
		if ex.Kind != model.ExceptionAdd {
			continue
		}
		intervals = append(intervals, model.Interval{
			Start: ex.Start.On(date),
			End:   ex.End.On(date),
		})
	}

	return merge(intervals), nil
}

// TouchedProviders exposes providers with recent schedule or appointment
// writes for the reconciliation sweep.
func (s *Service) TouchedProviders(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return s.repo.TouchedProviders(ctx, since)
}

func (s *Service) requireProvider(ctx context.Context, providerID uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("provider", err)
		}
		return nil, fmt.Errorf("failed to load provider: %w", err)
	}
	if user.Role != model.RoleProvider {
		return nil, apperrors.NotFound("provider", nil)
	}
	return user, nil
}

func parseAvailability(req *model.SetAvailabilityRequest) ([]*model.WeeklyInterval, []*model.ScheduleException, error) {
	weekly := make([]*model.WeeklyInterval, 0, len(req.Weekly))
	for _, w := range req.Weekly {
		start, err := model.ParseTimeOfDay(w.Start)
		if err != nil {
			return nil, nil, apperrors.Validation("invalid weekly interval start", err)
		}
		end, err := model.ParseTimeOfDay(w.End)
		if err != nil {
			return nil, nil, apperrors.Validation("invalid weekly interval end", err)
		}
		if end <= start {
			return nil, nil, apperrors.Validation("weekly interval end must be after start", nil)
		}
		weekly = append(weekly, &model.WeeklyInterval{
			Weekday: time.Weekday(w.Weekday),
			Start:   start,
			End:     end,
		})
	}

	exceptions := make([]*model.ScheduleException, 0, len(req.Exceptions))
	addsByDate := make(map[string][]*model.ScheduleException)
	for _, e := range req.Exceptions {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return nil, nil, apperrors.Validation("invalid exception date", err)
		}
		ex := &model.ScheduleException{
			Date: date,
			Kind: model.ExceptionKind(e.Kind),
		}
		if e.Start != "" || e.End != "" {
			start, err := model.ParseTimeOfDay(e.Start)
			if err != nil {
				return nil, nil, apperrors.Validation("invalid exception start", err)
			}
			end, err := model.ParseTimeOfDay(e.End)
			if err != nil {
				return nil, nil, apperrors.Validation("invalid exception end", err)
			}
			if end <= start {
				return nil, nil, apperrors.Validation("exception end must be after start", nil)
			}
			ex.Start, ex.End = start, end
		} else if ex.Kind == model.ExceptionAdd {
			return nil, nil, apperrors.Validation("add exception requires start and end", nil)
		}
		if ex.Kind == model.ExceptionAdd {
			key := e.Date
			for _, prev := range addsByDate[key] {
				if ex.Start < prev.End && prev.Start < ex.End {
					return nil, nil, apperrors.Validation("overlapping manual intervals on "+key, nil)
				}
			}
			addsByDate[key] = append(addsByDate[key], ex)
		}
		exceptions = append(exceptions, ex)
	}

	return weekly, exceptions, nil
}

// subtract removes the blocked window from every interval, splitting when
// the block lands in the middle.
func subtract(intervals []model.Interval, blocked model.Interval) []model.Interval {
	var out []model.Interval
	for _, iv := range intervals {
		if !iv.Overlaps(blocked) {
			out = append(out, iv)
			continue
		}
		if iv.Start.Before(blocked.Start) {
			out = append(out, model.Interval{Start: iv.Start, End: blocked.Start})
		}
		if blocked.End.Before(iv.End) {
			out = append(out, model.Interval{Start: blocked.End, End: iv.End})
		}
	}
	return out
}

// merge sorts intervals and coalesces overlapping or touching ones so the
// union is idempotent regardless of how windows were declared.
func merge(intervals []model.Interval) []model.Interval {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	out := []model.Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
