package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository/memory"
	"github.com/careslot/booking-api/internal/service/schedule"
	"github.com/careslot/booking-api/pkg/clock"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/metrics"
)

// brokenCache fails every operation, standing in for an unreachable Redis.
type brokenCache struct{}

func (brokenCache) Init(ctx context.Context) error { return nil }
func (brokenCache) Ping(ctx context.Context) error { return errors.New("cache down") }
func (brokenCache) Get(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.TimeSlot, error) {
	return nil, errors.New("cache down")
}
func (brokenCache) Put(ctx context.Context, providerID uuid.UUID, date time.Time, slots []model.TimeSlot) error {
	return errors.New("cache down")
}
func (brokenCache) Invalidate(ctx context.Context, providerID uuid.UUID) error {
	return errors.New("cache down")
}
func (brokenCache) Teardown(ctx context.Context) error { return nil }

type fixture struct {
	svc          *Service
	provider     *model.User
	appointments *memory.AppointmentRepository
	cache        cache.SlotCache
	metrics      *metrics.Metrics
}

func newFixture(t *testing.T, slotCache cache.SlotCache) *fixture {
	t.Helper()

	provider := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleProvider}
	users := memory.NewUserRepository()
	users.Seed(provider)

	clk := clock.New()
	scheduleRepo := memory.NewScheduleRepository(clk)
	require.NoError(t, scheduleRepo.ReplaceWeekly(context.Background(), provider.ID, []*model.WeeklyInterval{
		{Weekday: time.Monday, Start: mustTod(t, "09:00"), End: mustTod(t, "10:00")},
	}))

	log := logger.NewLogger(nil)
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	scheduleSvc := schedule.NewService(users, scheduleRepo, slotCache, log)
	appointments := memory.NewAppointmentRepository(clk)

	return &fixture{
		svc:          NewService(scheduleSvc, appointments, slotCache, m, log),
		provider:     provider,
		appointments: appointments,
		cache:        slotCache,
		metrics:      m,
	}
}

func mustTod(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

var testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func TestGetTimeSlots_MissThenHit(t *testing.T) {
	f := newFixture(t, cache.NewMemoryCache(time.Hour))
	dateRange := model.DateRange{Start: testMonday, End: testMonday}

	first, err := f.svc.GetTimeSlots(context.Background(), f.provider.ID, dateRange)
	require.NoError(t, err)
	require.Len(t, first, 4)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheMisses))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.CacheHits))

	second, err := f.svc.GetTimeSlots(context.Background(), f.provider.ID, dateRange)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheHits))
}

func TestGetTimeSlots_CacheFailureDegradesToDatabase(t *testing.T) {
	f := newFixture(t, brokenCache{})

	slots, err := f.svc.GetTimeSlots(context.Background(), f.provider.ID,
		model.DateRange{Start: testMonday, End: testMonday})
	require.NoError(t, err)
	assert.Len(t, slots, 4)
	assert.Greater(t, testutil.ToFloat64(f.metrics.CacheErrors), float64(0))
}

func TestGetTimeSlots_RangeValidation(t *testing.T) {
	f := newFixture(t, cache.NewMemoryCache(time.Hour))

	_, err := f.svc.GetTimeSlots(context.Background(), f.provider.ID,
		model.DateRange{Start: testMonday, End: testMonday.AddDate(0, 0, -1)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.svc.GetTimeSlots(context.Background(), f.provider.ID,
		model.DateRange{Start: testMonday, End: testMonday.AddDate(0, 0, MaxRangeDays+1)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestGetTimeSlots_UnknownProvider(t *testing.T) {
	f := newFixture(t, cache.NewMemoryCache(time.Hour))

	_, err := f.svc.GetTimeSlots(context.Background(), uuid.New(),
		model.DateRange{Start: testMonday, End: testMonday})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestDeriveDay_ExcludesActiveAppointments(t *testing.T) {
	f := newFixture(t, cache.NewMemoryCache(time.Hour))

	require.NoError(t, f.appointments.Create(context.Background(), &model.Appointment{
		ProviderID: f.provider.ID,
		PatientID:  uuid.New(),
		StartTime:  testMonday.Add(9 * time.Hour),
		EndTime:    testMonday.Add(9*time.Hour + model.SlotDuration),
		Status:     model.AppointmentStatusReserved,
	}))

	slots, err := f.svc.DeriveDay(context.Background(), f.provider.ID, testMonday)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, testMonday.Add(9*time.Hour+15*time.Minute), slots[0].Start)
}

func TestRefreshDay_RepairsDivergentEntry(t *testing.T) {
	slotCache := cache.NewMemoryCache(time.Hour)
	f := newFixture(t, slotCache)

	// Simulate a stale entry that still advertises a taken slot.
	stale := []model.TimeSlot{
		{ProviderID: f.provider.ID, Start: testMonday.Add(9 * time.Hour), End: testMonday.Add(9*time.Hour + model.SlotDuration)},
	}
	require.NoError(t, slotCache.Put(context.Background(), f.provider.ID, testMonday, stale))

	require.NoError(t, f.appointments.Create(context.Background(), &model.Appointment{
		ProviderID: f.provider.ID,
		PatientID:  uuid.New(),
		StartTime:  testMonday.Add(9 * time.Hour),
		EndTime:    testMonday.Add(9*time.Hour + model.SlotDuration),
		Status:     model.AppointmentStatusConfirmed,
	}))

	require.NoError(t, f.svc.RefreshDay(context.Background(), f.provider.ID, testMonday))

	repaired, err := slotCache.Get(context.Background(), f.provider.ID, testMonday)
	require.NoError(t, err)
	require.Len(t, repaired, 3)
	for _, slot := range repaired {
		assert.False(t, slot.Start.Equal(testMonday.Add(9*time.Hour)))
	}
}
