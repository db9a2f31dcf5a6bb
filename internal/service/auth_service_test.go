package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

func newAuthFixture() (*AuthService, *fakeAccounts, *fakeNotifier) {
	accounts := newFakeAccounts()
	notifier := &fakeNotifier{}
	svc := NewAuthService(accounts, notifier, NewValidator(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "drive-admin-api",
	})
	return svc, accounts, notifier
}

func TestAuthServiceSignupAndLogin(t *testing.T) {
	svc, accounts, notifier := newAuthFixture()
	ctx := context.Background()

	info, err := svc.Signup(ctx, models.SignupRequest{Email: " Asha@Example.com ", Password: "secret1", FullName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", info.Email)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.NotEqual(t, "secret1", accounts.items[info.ID].PasswordHash)
	assert.Equal(t, []NotificationEvent{EventStudentRegistered}, notifier.names())

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, info.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceSignupRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.SignupRequest{Email: "a@example.com", Password: "secret1", FullName: "A"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, models.SignupRequest{Email: "A@example.com", Password: "secret2", FullName: "B"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Signup(ctx, models.SignupRequest{Email: "a@example.com", Password: "secret1", FullName: "A"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "a@example.com", Password: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "missing@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _, _ := newAuthFixture()
	other := NewAuthService(newFakeAccounts(), nil, nil, nil, AuthConfig{AccessTokenSecret: "other"})

	token, err := other.generateAccessToken(&models.Account{ID: "u1", Role: models.RoleAdmin}, time.Now())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
