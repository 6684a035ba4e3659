package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository/memory"
	"github.com/careslot/booking-api/pkg/clock"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
)

func testProvider() *model.User {
	return &model.User{
		Base: model.Base{ID: uuid.New()},
		Role: model.RoleProvider,
	}
}

func newTestService(provider *model.User) (*Service, *memory.ScheduleRepository, *cache.MemoryCache) {
	users := memory.NewUserRepository()
	users.Seed(provider)
	repo := memory.NewScheduleRepository(clock.New())
	slotCache := cache.NewMemoryCache(time.Hour)
	svc := NewService(users, repo, slotCache, logger.NewLogger(nil))
	return svc, repo, slotCache
}

func tod(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func setWeekly(t *testing.T, repo *memory.ScheduleRepository, providerID uuid.UUID, intervals ...*model.WeeklyInterval) {
	t.Helper()
	require.NoError(t, repo.ReplaceWeekly(context.Background(), providerID, intervals))
}

func setExceptions(t *testing.T, repo *memory.ScheduleRepository, providerID uuid.UUID, exceptions ...*model.ScheduleException) {
	t.Helper()
	require.NoError(t, repo.ReplaceExceptions(context.Background(), providerID, exceptions))
}

func TestSetAvailability_RoleChecks(t *testing.T) {
	provider := testProvider()
	svc, _, _ := newTestService(provider)
	req := &model.SetAvailabilityRequest{
		Weekly: []model.WeeklyIntervalRequest{{Weekday: 1, Start: "09:00", End: "17:00"}},
	}

	err := svc.SetAvailability(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RolePatient}, provider.ID, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	err = svc.SetAvailability(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RoleProvider}, provider.ID, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	err = svc.SetAvailability(context.Background(),
		model.Principal{UserID: provider.ID, Role: model.RoleProvider}, provider.ID, req)
	assert.NoError(t, err)

	err = svc.SetAvailability(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}, provider.ID, req)
	assert.NoError(t, err)
}

func TestSetAvailability_UnknownProvider(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	err := svc.SetAvailability(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}, uuid.New(),
		&model.SetAvailabilityRequest{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSetAvailability_RejectsInvertedInterval(t *testing.T) {
	provider := testProvider()
	svc, _, _ := newTestService(provider)

	err := svc.SetAvailability(context.Background(),
		model.Principal{UserID: provider.ID, Role: model.RoleProvider}, provider.ID,
		&model.SetAvailabilityRequest{
			Weekly: []model.WeeklyIntervalRequest{{Weekday: 1, Start: "17:00", End: "09:00"}},
		})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestSetAvailability_RejectsOverlappingManualAdds(t *testing.T) {
	provider := testProvider()
	svc, _, _ := newTestService(provider)

	err := svc.SetAvailability(context.Background(),
		model.Principal{UserID: provider.ID, Role: model.RoleProvider}, provider.ID,
		&model.SetAvailabilityRequest{
			Weekly: []model.WeeklyIntervalRequest{},
			Exceptions: []model.ExceptionRequest{
				{Date: "2026-09-07", Kind: "add", Start: "09:00", End: "10:00"},
				{Date: "2026-09-07", Kind: "add", Start: "09:30", End: "11:00"},
			},
		})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestSetAvailability_InvalidatesCache(t *testing.T) {
	provider := testProvider()
	svc, _, slotCache := newTestService(provider)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	require.NoError(t, slotCache.Put(context.Background(), provider.ID, date, []model.TimeSlot{
		{ProviderID: provider.ID, Start: date, End: date.Add(model.SlotDuration)},
	}))

	err := svc.SetAvailability(context.Background(),
		model.Principal{UserID: provider.ID, Role: model.RoleProvider}, provider.ID,
		&model.SetAvailabilityRequest{
			Weekly: []model.WeeklyIntervalRequest{{Weekday: 1, Start: "09:00", End: "12:00"}},
		})
	require.NoError(t, err)

	_, err = slotCache.Get(context.Background(), provider.ID, date)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCandidateIntervals_WeeklyPattern(t *testing.T) {
	provider := testProvider()
	svc, repo, _ := newTestService(provider)

	setWeekly(t, repo, provider.ID,
		&model.WeeklyInterval{Weekday: time.Monday, Start: tod(t, "09:00"), End: tod(t, "12:00")},
		&model.WeeklyInterval{Weekday: time.Tuesday, Start: tod(t, "14:00"), End: tod(t, "16:00")},
	)

	mon := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	intervals, err := svc.CandidateIntervals(context.Background(), provider.ID, mon)
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), intervals[0].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC), intervals[0].End)

	// No pattern for Sunday.
	sun, err := svc.CandidateIntervals(context.Background(), provider.ID, mon.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, sun)
}

func TestCandidateIntervals_BlockCarvesWindow(t *testing.T) {
	provider := testProvider()
	svc, repo, _ := newTestService(provider)
	mon := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	setWeekly(t, repo, provider.ID,
		&model.WeeklyInterval{Weekday: time.Monday, Start: tod(t, "09:00"), End: tod(t, "17:00")},
	)
	setExceptions(t, repo, provider.ID,
		&model.ScheduleException{Date: mon, Kind: model.ExceptionBlock, Start: tod(t, "12:00"), End: tod(t, "13:00")},
	)

	intervals, err := svc.CandidateIntervals(context.Background(), provider.ID, mon)
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC), intervals[0].End)
	assert.Equal(t, time.Date(2026, 9, 7, 13, 0, 0, 0, time.UTC), intervals[1].Start)
}

func TestCandidateIntervals_WholeDayBlock(t *testing.T) {
	provider := testProvider()
	svc, repo, _ := newTestService(provider)
	mon := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	setWeekly(t, repo, provider.ID,
		&model.WeeklyInterval{Weekday: time.Monday, Start: tod(t, "09:00"), End: tod(t, "17:00")},
	)
	setExceptions(t, repo, provider.ID,
		&model.ScheduleException{Date: mon, Kind: model.ExceptionBlock},
	)

	intervals, err := svc.CandidateIntervals(context.Background(), provider.ID, mon)
	require.NoError(t, err)
	assert.Empty(t, intervals)
}

func TestCandidateIntervals_AddMergesWithWeekly(t *testing.T) {
	provider := testProvider()
	svc, repo, _ := newTestService(provider)
	mon := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	setWeekly(t, repo, provider.ID,
		&model.WeeklyInterval{Weekday: time.Monday, Start: tod(t, "09:00"), End: tod(t, "11:00")},
	)
	setExceptions(t, repo, provider.ID,
		// Touches the weekly window; the union coalesces.
		&model.ScheduleException{Date: mon, Kind: model.ExceptionAdd, Start: tod(t, "11:00"), End: tod(t, "12:00")},
		&model.ScheduleException{Date: mon, Kind: model.ExceptionAdd, Start: tod(t, "18:00"), End: tod(t, "19:00")},
	)

	intervals, err := svc.CandidateIntervals(context.Background(), provider.ID, mon)
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), intervals[0].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC), intervals[0].End)
	assert.Equal(t, time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC), intervals[1].Start)
}

func TestCandidateIntervals_AddSurvivesWholeDayBlock(t *testing.T) {
	provider := testProvider()
	svc, repo, _ := newTestService(provider)
	mon := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	setWeekly(t, repo, provider.ID,
		&model.WeeklyInterval{Weekday: time.Monday, Start: tod(t, "09:00"), End: tod(t, "17:00")},
	)
	setExceptions(t, repo, provider.ID,
		&model.ScheduleException{Date: mon, Kind: model.ExceptionBlock},
		&model.ScheduleException{Date: mon, Kind: model.ExceptionAdd, Start: tod(t, "18:00"), End: tod(t, "19:00")},
	)

	intervals, err := svc.CandidateIntervals(context.Background(), provider.ID, mon)
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC), intervals[0].Start)
}

func TestMergeCoalescesOverlaps(t *testing.T) {
	mon := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return mon.Add(time.Duration(h) * time.Hour) }

	out := merge([]model.Interval{
		{Start: at(14), End: at(16)},
		{Start: at(9), End: at(11)},
		{Start: at(10), End: at(12)},
	})

	require.Len(t, out, 2)
	assert.Equal(t, at(9), out[0].Start)
	assert.Equal(t, at(12), out[0].End)
	assert.Equal(t, at(14), out[1].Start)
}
