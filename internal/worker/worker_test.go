package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/config"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository/memory"
	"github.com/careslot/booking-api/internal/service/appointment"
	"github.com/careslot/booking-api/internal/service/availability"
	"github.com/careslot/booking-api/internal/service/schedule"
	"github.com/careslot/booking-api/pkg/clock"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/metrics"
)

var (
	testNow    = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slotStart  = testMonday.Add(9 * time.Hour)
)

type fixture struct {
	clock          *clock.Fake
	cache          *cache.MemoryCache
	metrics        *metrics.Metrics
	provider       *model.User
	patient        model.Principal
	appointments   *memory.AppointmentRepository
	scheduleSvc    *schedule.Service
	availability   *availability.Service
	appointmentSvc *appointment.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	provider := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleProvider}
	patient := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RolePatient}
	users := memory.NewUserRepository()
	users.Seed(provider)
	users.Seed(patient)

	clk := clock.NewFake(testNow)
	scheduleRepo := memory.NewScheduleRepository(clk)
	start, err := model.ParseTimeOfDay("09:00")
	require.NoError(t, err)
	end, err := model.ParseTimeOfDay("10:00")
	require.NoError(t, err)
	require.NoError(t, scheduleRepo.ReplaceWeekly(context.Background(), provider.ID, []*model.WeeklyInterval{
		{Weekday: time.Monday, Start: start, End: end},
	}))

	slotCache := cache.NewMemoryCache(time.Hour)
	log := logger.NewLogger(nil)
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	cfg := config.BookingConfig{GracePeriodMins: 30, MinLeadHours: 24}

	scheduleSvc := schedule.NewService(users, scheduleRepo, slotCache, log)
	appointments := memory.NewAppointmentRepository(clk)
	availabilitySvc := availability.NewService(scheduleSvc, appointments, slotCache, m, log)
	appointmentSvc := appointment.NewService(users, appointments, availabilitySvc, slotCache, nil, clk, cfg, m, log)

	return &fixture{
		clock:          clk,
		cache:          slotCache,
		metrics:        m,
		provider:       provider,
		patient:        model.Principal{UserID: patient.ID, Role: model.RolePatient},
		appointments:   appointments,
		scheduleSvc:    scheduleSvc,
		availability:   availabilitySvc,
		appointmentSvc: appointmentSvc,
	}
}

func TestExpirySweeper_Run(t *testing.T) {
	f := newFixture(t)

	appt, err := f.appointmentSvc.Reserve(context.Background(), f.patient,
		&model.ReserveAppointmentRequest{
			ProviderID: f.provider.ID,
			StartTime:  slotStart,
			EndTime:    slotStart.Add(model.SlotDuration),
		})
	require.NoError(t, err)

	sweeper := NewExpirySweeper(f.appointmentSvc, time.Minute, f.metrics, logger.NewLogger(nil))

	// Within the grace period the sweep leaves the reservation alone.
	sweeper.Run(context.Background())
	stored, err := f.appointments.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusReserved, stored.Status)

	f.clock.Advance(31 * time.Minute)
	sweeper.Run(context.Background())

	stored, err = f.appointments.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusExpired, stored.Status)
}

func TestReconciler_RepairsCorruptedEntry(t *testing.T) {
	f := newFixture(t)

	// A stale entry claims the 09:00 slot is free although it is booked.
	_, err := f.appointmentSvc.Reserve(context.Background(), f.patient,
		&model.ReserveAppointmentRequest{
			ProviderID: f.provider.ID,
			StartTime:  slotStart,
			EndTime:    slotStart.Add(model.SlotDuration),
		})
	require.NoError(t, err)

	stale := []model.TimeSlot{
		{ProviderID: f.provider.ID, Start: slotStart, End: slotStart.Add(model.SlotDuration)},
	}
	require.NoError(t, f.cache.Put(context.Background(), f.provider.ID, testMonday, stale))

	reconciler := NewReconciler(f.scheduleSvc, f.availability,
		5*time.Minute, 7, f.clock, f.metrics, logger.NewLogger(nil))
	reconciler.Run(context.Background())

	repaired, err := f.cache.Get(context.Background(), f.provider.ID, testMonday)
	require.NoError(t, err)
	require.Len(t, repaired, 3)
	for _, slot := range repaired {
		assert.False(t, slot.Start.Equal(slotStart))
	}
}
