package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/careslot/booking-api/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

type scheduleRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	db *sqlx.DB
}

type tokenRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewTokenRepository(db *sqlx.DB) repository.TokenRepository {
	return &tokenRepository{NewBaseRepository(db)}
}
