package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/careslot/booking-api/internal/config"
	"github.com/careslot/booking-api/pkg/logger"
)

type Service interface {
	SendPasswordReset(ctx context.Context, to string, token string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

// NewService returns an SMTP-backed sender, or a logging no-op when no
// SMTP host is configured.
func NewService(cfg config.EmailConfig, logger *logger.Logger) Service {
	if cfg.Host == "" {
		return &NoopService{Logger: logger}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to string, token string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Password reset request")
	m.SetBody("text/plain", fmt.Sprintf(
		"A password reset was requested for your account.\n\nReset token: %s\n\nIf you did not request this, ignore this message.", token))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// NoopService logs instead of sending. Used in development and tests.
type NoopService struct {
	Logger *logger.Logger
}

func (s *NoopService) SendPasswordReset(ctx context.Context, to string, token string) error {
	if s.Logger != nil {
		s.Logger.Info("password reset email suppressed", "to", to)
	}
	return nil
}
