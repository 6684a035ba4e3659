// Package memory provides in-memory repository implementations with the
// same semantics as the postgres package, including the atomic slot claim
// and compare-and-set transitions. They back tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository"
	"github.com/careslot/booking-api/pkg/clock"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]model.User)}
}

// Seed inserts a user as-is, keeping the caller's ID.
func (r *UserRepository) Seed(user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, user := range r.users {
		if user.Role == role {
			u := user
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type ScheduleRepository struct {
	mu         sync.Mutex
	clock      clock.Clock
	weekly     map[uuid.UUID][]model.WeeklyInterval
	exceptions map[uuid.UUID][]model.ScheduleException
	touched    map[uuid.UUID]time.Time
}

func NewScheduleRepository(clk clock.Clock) *ScheduleRepository {
	return &ScheduleRepository{
		clock:      clk,
		weekly:     make(map[uuid.UUID][]model.WeeklyInterval),
		exceptions: make(map[uuid.UUID][]model.ScheduleException),
		touched:    make(map[uuid.UUID]time.Time),
	}
}

func (r *ScheduleRepository) ReplaceWeekly(ctx context.Context, providerID uuid.UUID, intervals []*model.WeeklyInterval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.WeeklyInterval, 0, len(intervals))
	for _, iv := range intervals {
		iv.ID = uuid.New()
		iv.ProviderID = providerID
		out = append(out, *iv)
	}
	r.weekly[providerID] = out
	r.touched[providerID] = r.clock.Now()
	return nil
}

func (r *ScheduleRepository) ListWeekly(ctx context.Context, providerID uuid.UUID) ([]*model.WeeklyInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WeeklyInterval
	for i := range r.weekly[providerID] {
		iv := r.weekly[providerID][i]
		out = append(out, &iv)
	}
	return out, nil
}

func (r *ScheduleRepository) ReplaceExceptions(ctx context.Context, providerID uuid.UUID, exceptions []*model.ScheduleException) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ScheduleException, 0, len(exceptions))
	for _, ex := range exceptions {
		ex.ID = uuid.New()
		ex.ProviderID = providerID
		out = append(out, *ex)
	}
	r.exceptions[providerID] = out
	r.touched[providerID] = r.clock.Now()
	return nil
}

func (r *ScheduleRepository) ListExceptions(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*model.ScheduleException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ScheduleException
	for i := range r.exceptions[providerID] {
		ex := r.exceptions[providerID][i]
		if sameDate(ex.Date, date) {
			out = append(out, &ex)
		}
	}
	return out, nil
}

func (r *ScheduleRepository) TouchedProviders(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for id, at := range r.touched {
		if !at.Before(since) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Touch records provider activity, mirroring the appointment-write case
// the SQL implementation covers with its UNION.
func (r *ScheduleRepository) Touch(providerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[providerID] = r.clock.Now()
}

type AppointmentRepository struct {
	mu           sync.Mutex
	clock        clock.Clock
	appointments map[uuid.UUID]model.Appointment
}

func NewAppointmentRepository(clk clock.Clock) *AppointmentRepository {
	return &AppointmentRepository{
		clock:        clk,
		appointments: make(map[uuid.UUID]model.Appointment),
	}
}

// Create enforces the active-slot exclusivity the postgres partial unique
// index provides.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appointments {
		if existing.ProviderID == appointment.ProviderID &&
			existing.StartTime.Equal(appointment.StartTime) &&
			existing.Status.Active() {
			return repository.ErrSlotTaken
		}
	}
	appointment.ID = uuid.New()
	appointment.CreatedAt = r.clock.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	r.appointments[appointment.ID] = *appointment
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &appt, nil
}

func (r *AppointmentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, confirmedAt *time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok || appt.Status != from {
		return nil, repository.ErrNoTransition
	}
	appt.Status = to
	if confirmedAt != nil {
		appt.ConfirmedAt = confirmedAt
	}
	appt.UpdatedAt = r.clock.Now()
	r.appointments[id] = appt
	return &appt, nil
}

func (r *AppointmentRepository) ListActiveForDay(ctx context.Context, providerID uuid.UUID, day time.Time) ([]*model.Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return r.listActive(providerID, dayStart, dayStart.AddDate(0, 0, 1)), nil
}

func (r *AppointmentRepository) ListBooked(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	return r.listActive(providerID, from, to), nil
}

func (r *AppointmentRepository) ListOverdueReserved(ctx context.Context, createdBefore time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, appt := range r.appointments {
		if appt.Status == model.AppointmentStatusReserved && !appt.CreatedAt.After(createdBefore) {
			a := appt
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *AppointmentRepository) listActive(providerID uuid.UUID, from, to time.Time) []*model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, appt := range r.appointments {
		if appt.ProviderID != providerID || !appt.Status.Active() {
			continue
		}
		if appt.StartTime.Before(from) || !appt.StartTime.Before(to) {
			continue
		}
		a := appt
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

type resetToken struct {
	userID  uuid.UUID
	expires time.Time
	used    bool
}

type TokenRepository struct {
	mu     sync.Mutex
	clock  clock.Clock
	tokens map[string]resetToken
}

func NewTokenRepository(clk clock.Clock) *TokenRepository {
	return &TokenRepository{
		clock:  clk,
		tokens: make(map[string]resetToken),
	}
}

func (r *TokenRepository) StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for existing, record := range r.tokens {
		if record.userID == userID {
			delete(r.tokens, existing)
		}
	}
	r.tokens[token] = resetToken{userID: userID, expires: expiry}
	return nil
}

func (r *TokenRepository) ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.tokens[token]
	if !ok || record.used || !r.clock.Now().Before(record.expires) {
		return uuid.Nil, repository.ErrNotFound
	}
	record.used = true
	r.tokens[token] = record
	return record.userID, nil
}

var (
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.ScheduleRepository    = (*ScheduleRepository)(nil)
	_ repository.AppointmentRepository = (*AppointmentRepository)(nil)
	_ repository.TokenRepository       = (*TokenRepository)(nil)
)

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
