package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/careslot/booking-api/internal/email"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository"
	"github.com/careslot/booking-api/pkg/auth"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/security"
)

const bcryptCost = 12

// Service is the identity collaborator: registration, token issuance and
// validation, password reset. The scheduling core trusts the principal it
// produces.
type Service struct {
	users       repository.UserRepository
	tokens      repository.TokenRepository
	jwtSvc      auth.JWTService
	emailSvc    email.Service
	hasher      security.PasswordHasher
	resetExpiry time.Duration
	logger      *logger.Logger
}

func NewService(users repository.UserRepository, tokens repository.TokenRepository, jwtSvc auth.JWTService, emailSvc email.Service, resetExpiry time.Duration, logger *logger.Logger) *Service {
	return &Service{
		users:       users,
		tokens:      tokens,
		jwtSvc:      jwtSvc,
		emailSvc:    emailSvc,
		hasher:      security.NewBcryptHasher(bcryptCost),
		resetExpiry: resetExpiry,
		logger:      logger,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	role := model.Role(req.Role)
	if !role.Valid() {
		return nil, apperrors.Validation("invalid role", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("invalid password", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("email already registered", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn("failed to update login timestamp", "user_id", user.ID.String())
	}

	token, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// ValidateToken turns a bearer token into a principal for the middleware.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.Principal, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !claims.Role.Valid() {
		return nil, apperrors.Unauthorized(fmt.Errorf("unknown role %q", claims.Role))
	}
	return &model.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// ForgotPassword issues a reset token. It reports success regardless of
// whether the email exists, to avoid account enumeration.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.tokens.StoreResetToken(ctx, user.ID, token, time.Now().Add(s.resetExpiry)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if err := s.emailSvc.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error(err, "failed to send password reset email", "user_id", user.ID.String())
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	userID, err := s.tokens.ConsumeResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Unauthorized(fmt.Errorf("invalid or expired reset token"))
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return apperrors.NotFound("user", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.Validation("invalid password", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ListProviders is the admin directory listing.
func (s *Service) ListProviders(ctx context.Context, principal model.Principal) ([]*model.User, error) {
	switch principal.Role {
	case model.RoleAdmin:
		// listing is admin-only
	case model.RolePatient, model.RoleProvider:
		return nil, apperrors.Forbidden("provider listing is admin-only", nil)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}
	return s.users.ListByRole(ctx, model.RoleProvider)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
