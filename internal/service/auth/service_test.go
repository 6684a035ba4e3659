package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/booking-api/internal/email"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/repository/memory"
	pkgauth "github.com/careslot/booking-api/pkg/auth"
	"github.com/careslot/booking-api/pkg/clock"
	apperrors "github.com/careslot/booking-api/pkg/errors"
	"github.com/careslot/booking-api/pkg/logger"
)

// capturingEmail records reset tokens instead of sending mail.
type capturingEmail struct {
	to    string
	token string
}

func (c *capturingEmail) SendPasswordReset(ctx context.Context, to string, token string) error {
	c.to = to
	c.token = token
	return nil
}

func newTestService(t *testing.T) (*Service, *memory.UserRepository, *capturingEmail) {
	t.Helper()
	users := memory.NewUserRepository()
	tokens := memory.NewTokenRepository(clock.New())
	jwtSvc := pkgauth.NewJWTService("test-secret", 30*time.Minute)
	mail := &capturingEmail{}
	svc := NewService(users, tokens, jwtSvc, mail, time.Hour, logger.NewLogger(nil))
	return svc, users, mail
}

func registerReq(emailAddr, role string) *model.RegisterRequest {
	return &model.RegisterRequest{
		Email:    emailAddr,
		Name:     "Test User",
		Password: "correct-horse",
		Role:     role,
	}
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.Register(context.Background(), registerReq("pat@example.com", "patient"))
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, user.Role)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	_, err = svc.Register(context.Background(), registerReq("pat@example.com", "patient"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "duplicate email")

	_, err = svc.Register(context.Background(), registerReq("other@example.com", "superuser"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "unknown role")
}

func TestLoginAndValidateToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.Register(context.Background(), registerReq("doc@example.com", "provider"))
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "doc@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)

	principal, err := svc.ValidateToken(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, model.RoleProvider, principal.Role)

	_, err = svc.Login(context.Background(), &model.LoginRequest{
		Email:    "doc@example.com",
		Password: "wrong",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.ValidateToken(context.Background(), "not-a-token")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, mail := newTestService(t)

	_, err := svc.Register(context.Background(), registerReq("pat@example.com", "patient"))
	require.NoError(t, err)

	// Unknown email reports success to prevent account enumeration.
	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, mail.token)

	require.NoError(t, svc.ForgotPassword(context.Background(), "pat@example.com"))
	require.NotEmpty(t, mail.token)
	assert.Equal(t, "pat@example.com", mail.to)

	err = svc.ResetPassword(context.Background(), &model.ResetPasswordRequest{
		Token:       mail.token,
		NewPassword: "new-password-1",
	})
	require.NoError(t, err)

	// Token is one-shot.
	err = svc.ResetPassword(context.Background(), &model.ResetPasswordRequest{
		Token:       mail.token,
		NewPassword: "another-password",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), &model.LoginRequest{
		Email:    "pat@example.com",
		Password: "correct-horse",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), &model.LoginRequest{
		Email:    "pat@example.com",
		Password: "new-password-1",
	})
	assert.NoError(t, err)
}

func TestListProviders(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), registerReq("doc@example.com", "provider"))
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), registerReq("pat@example.com", "patient"))
	require.NoError(t, err)

	providers, err := svc.ListProviders(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "doc@example.com", providers[0].Email)

	_, err = svc.ListProviders(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RolePatient})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.ListProviders(context.Background(),
		model.Principal{UserID: uuid.New(), Role: model.RoleProvider})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

var _ email.Service = (*capturingEmail)(nil)
