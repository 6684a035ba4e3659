package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/config"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository"
	"github.com/careslot/booking-api/internal/service/availability"
	"github.com/careslot/booking-api/pkg/clock"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/messaging"
	"github.com/careslot/booking-api/pkg/metrics"
)

// Lifecycle events published on the appointments channel.
const (
	EventChannel              = "appointments"
	EventAppointmentReserved  = "APPOINTMENT_RESERVED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
)

// Service is the reservation state machine:
// reserved -> {confirmed, cancelled, expired}; confirmed -> {cancelled}.
// The durable store's partial unique index is the single serialization
// point for slot claims; the cache is never consulted at claim time.
type Service struct {
	users        repository.UserRepository
	repo         repository.AppointmentRepository
	availability *availability.Service
	cache        cache.SlotCache
	broker       messaging.Broker
	clock        clock.Clock
	cfg          config.BookingConfig
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(
	users repository.UserRepository,
	repo repository.AppointmentRepository,
	availabilitySvc *availability.Service,
	slotCache cache.SlotCache,
	broker messaging.Broker,
	clk clock.Clock,
	cfg config.BookingConfig,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	return &Service{
		users:        users,
		repo:         repo,
		availability: availabilitySvc,
		cache:        slotCache,
		broker:       broker,
		clock:        clk,
		cfg:          cfg,
		metrics:      m,
		logger:       logger,
	}
}

// Reserve claims a slot for a patient. Availability is re-derived from
// durable state, never from cache, and the insert itself enforces
// exclusivity: under concurrent calls for the same slot exactly one
// succeeds.
func (s *Service) Reserve(ctx context.Context, principal model.Principal, req *model.ReserveAppointmentRequest) (*model.Appointment, error) {
	switch principal.Role {
	case model.RolePatient:
		// only patients hold reservations
	case model.RoleProvider, model.RoleAdmin:
		return nil, apperrors.Forbidden("only patients can reserve appointments", nil)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	if err := s.validateInterval(req.StartTime, req.EndTime); err != nil {
		s.metrics.Reservations.WithLabelValues("reserve", "invalid").Inc()
		return nil, err
	}

	// DeriveDay checks provider existence and reflects every active
	// appointment, so a stale cache can never admit a taken slot here.
	slots, err := s.availability.DeriveDay(ctx, req.ProviderID, req.StartTime)
	if err != nil {
		return nil, err
	}
	if !containsSlot(slots, req.StartTime) {
		s.metrics.Reservations.WithLabelValues("reserve", "unavailable").Inc()
		return nil, apperrors.SlotUnavailable("slot is not available", nil)
	}

	appt := &model.Appointment{
		ProviderID: req.ProviderID,
		PatientID:  principal.UserID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Status:     model.AppointmentStatusReserved,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.Reservations.WithLabelValues("reserve", "conflict").Inc()
			return nil, apperrors.SlotUnavailable("slot was claimed concurrently", err)
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.metrics.Reservations.WithLabelValues("reserve", "success").Inc()
	s.invalidateCache(ctx, appt.ProviderID)
	s.publishEvent(ctx, EventAppointmentReserved, appt)

	return appt, nil
}

// Confirm transitions a reservation to confirmed within the grace period.
// At the boundary it expires the record lazily so the caller gets an
// immediate, correct answer instead of waiting for the sweep.
func (s *Service) Confirm(ctx context.Context, principal model.Principal, appointmentID uuid.UUID) (*model.Appointment, error) {
	if principal.Role != model.RolePatient {
		return nil, apperrors.Forbidden("only patients can confirm appointments", nil)
	}

	appt, err := s.getOwned(ctx, appointmentID, principal.UserID)
	if err != nil {
		return nil, err
	}

	if appt.Status != model.AppointmentStatusReserved {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("cannot confirm appointment in status %q", appt.Status), nil)
	}

	now := s.clock.Now()
	deadline := appt.CreatedAt.Add(s.cfg.GracePeriod())
	if now.After(deadline) {
		s.expireNow(ctx, appt)
		s.metrics.Reservations.WithLabelValues("confirm", "expired").Inc()
		return nil, apperrors.Expired("confirmation grace period elapsed", nil)
	}

	updated, err := s.repo.TransitionStatus(ctx, appt.ID,
		model.AppointmentStatusReserved, model.AppointmentStatusConfirmed, &now)
	if err != nil {
		if errors.Is(err, repository.ErrNoTransition) {
			// Lost a race with the sweep or a concurrent cancel.
			return nil, s.transitionConflict(ctx, appt.ID)
		}
		return nil, fmt.Errorf("failed to confirm appointment: %w", err)
	}

	s.metrics.Reservations.WithLabelValues("confirm", "success").Inc()
	s.publishEvent(ctx, EventAppointmentConfirmed, updated)

	return updated, nil
}

// Cancel transitions a reservation or confirmed appointment to cancelled.
// Only the owning patient or the owning provider may cancel.
func (s *Service) Cancel(ctx context.Context, principal model.Principal, appointmentID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}

	switch principal.Role {
	case model.RolePatient:
		if appt.PatientID != principal.UserID {
			return nil, apperrors.NotFound("appointment", nil)
		}
	case model.RoleProvider:
		if appt.ProviderID != principal.UserID {
			return nil, apperrors.NotFound("appointment", nil)
		}
		if appt.Status == model.AppointmentStatusConfirmed && !s.cfg.AllowProviderCancelConfirmed {
			return nil, apperrors.InvalidState("provider cancellation of confirmed appointments is disabled", nil)
		}
	case model.RoleAdmin:
		return nil, apperrors.Forbidden("only the owning patient or provider can cancel", nil)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	if appt.Status.Terminal() {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("cannot cancel appointment in status %q", appt.Status), nil)
	}

	updated, err := s.repo.TransitionStatus(ctx, appt.ID,
		appt.Status, model.AppointmentStatusCancelled, nil)
	if err != nil {
		if errors.Is(err, repository.ErrNoTransition) {
			return nil, s.transitionConflict(ctx, appt.ID)
		}
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.metrics.Reservations.WithLabelValues("cancel", "success").Inc()
	s.invalidateCache(ctx, appt.ProviderID)
	s.publishEvent(ctx, EventAppointmentCancelled, updated)

	return updated, nil
}

// GetBookedAppointments lists active appointments for a provider over a
// date range. Only the owning provider or an admin sees them.
func (s *Service) GetBookedAppointments(ctx context.Context, principal model.Principal, providerID uuid.UUID, dateRange model.DateRange) ([]*model.Appointment, error) {
	switch principal.Role {
	case model.RoleProvider:
		if principal.UserID != providerID {
			return nil, apperrors.Forbidden("cannot list another provider's appointments", nil)
		}
	case model.RoleAdmin:
		// admins may inspect any provider
	case model.RolePatient:
		return nil, apperrors.Forbidden("patients cannot list booked appointments", nil)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	appts, err := s.repo.ListBooked(ctx, providerID, dateRange.Start, dateRange.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list booked appointments: %w", err)
	}
	return appts, nil
}

// ExpireSweep transitions every overdue reservation to expired. It is
// idempotent and isolates per-record failures so one bad row cannot block
// the batch. Returns the number of appointments expired.
func (s *Service) ExpireSweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.cfg.GracePeriod())
	overdue, err := s.repo.ListOverdueReserved(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue reservations: %w", err)
	}

	expired := 0
	touched := make(map[uuid.UUID]struct{})
	for _, appt := range overdue {
		updated, err := s.repo.TransitionStatus(ctx, appt.ID,
			model.AppointmentStatusReserved, model.AppointmentStatusExpired, nil)
		if err != nil {
			if errors.Is(err, repository.ErrNoTransition) {
				// Confirmed or cancelled since listing; nothing to do.
				continue
			}
			s.metrics.SweepFailures.WithLabelValues("expiry").Inc()
			s.logger.Error(err, "failed to expire reservation",
				"appointment_id", appt.ID.String())
			continue
		}
		expired++
		touched[appt.ProviderID] = struct{}{}
		s.publishEvent(ctx, EventAppointmentExpired, updated)
	}

	for providerID := range touched {
		s.invalidateCache(ctx, providerID)
	}
	return expired, nil
}

func (s *Service) validateInterval(start, end time.Time) error {
	if !availability.Aligned(start) {
		return apperrors.Validation("start time is not aligned to a 15-minute boundary", nil)
	}
	if !end.Equal(start.Add(model.SlotDuration)) {
		return apperrors.Validation("interval must be exactly 15 minutes", nil)
	}
	if lead := start.Sub(s.clock.Now()); lead < s.cfg.MinLead() {
		return apperrors.Validation(
			fmt.Sprintf("reservations require at least %s notice", s.cfg.MinLead()), nil)
	}
	return nil
}

// expireNow performs the lazy expiry on the confirm path.
func (s *Service) expireNow(ctx context.Context, appt *model.Appointment) {
	updated, err := s.repo.TransitionStatus(ctx, appt.ID,
		model.AppointmentStatusReserved, model.AppointmentStatusExpired, nil)
	if err != nil {
		if !errors.Is(err, repository.ErrNoTransition) {
			s.logger.Error(err, "failed to expire reservation during confirm",
				"appointment_id", appt.ID.String())
		}
		return
	}
	s.invalidateCache(ctx, appt.ProviderID)
	s.publishEvent(ctx, EventAppointmentExpired, updated)
}

// transitionConflict reports the right error after a lost compare-and-set.
func (s *Service) transitionConflict(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NotFound("appointment", err)
	}
	if current.Status == model.AppointmentStatusExpired {
		return apperrors.Expired("confirmation grace period elapsed", nil)
	}
	return apperrors.InvalidState(
		fmt.Sprintf("appointment is in status %q", current.Status), nil)
}

func (s *Service) getOwned(ctx context.Context, id, patientID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}
	// Ownership failures are indistinguishable from absence to the caller.
	if appt.PatientID != patientID {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return appt, nil
}

func (s *Service) invalidateCache(ctx context.Context, providerID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, providerID); err != nil {
		s.logger.Warn("cache invalidation failed",
			"provider_id", providerID.String(), "error", err.Error())
	}
}

func (s *Service) publishEvent(ctx context.Context, eventType string, appt *model.Appointment) {
	if s.broker == nil {
		return
	}
	payload := map[string]interface{}{
		"event":          eventType,
		"appointment_id": appt.ID.String(),
		"provider_id":    appt.ProviderID.String(),
		"patient_id":     appt.PatientID.String(),
		"start_time":     appt.StartTime,
		"status":         appt.Status,
	}
	if err := s.broker.Publish(ctx, EventChannel, payload); err != nil {
		s.logger.Warn("failed to publish appointment event",
			"event", eventType, "error", err.Error())
	}
}

func containsSlot(slots []model.TimeSlot, start time.Time) bool {
	for _, slot := range slots {
		if slot.Start.Equal(start) {
			return true
		}
	}
	return false
}
