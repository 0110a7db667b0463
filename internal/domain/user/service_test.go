package user

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}))

	cfg := &config.Config{
		App: config.AppConfig{Name: "test"},
		JWT: config.JWTConfig{
			Secret:               "test-secret-that-is-long-enough-0123456789",
			AccessTokenExpiry:    time.Hour,
			RefreshTokenExpiry:   24 * time.Hour,
			RefreshTokenRotation: true,
		},
		Security: config.SecurityConfig{BcryptCost: 4}, // Cheap hashing for tests
	}
	return NewService(db, cfg)
}

func registerRequest() *RegisterRequest {
	return &RegisterRequest{
		Email:           "Shopper@Example.com",
		Password:        "Sunlight1",
		ConfirmPassword: "Sunlight1",
		FirstName:       "Sol",
		LastName:        "Shopper",
	}
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Register(registerRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "shopper@example.com", resp.User.Email) // Normalized
	assert.Empty(t, resp.User.Password)
	assert.False(t, resp.User.IsAdmin)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(registerRequest())
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc := newTestService(t)

	req := registerRequest()
	req.ConfirmPassword = "Different1"
	_, err := svc.Register(req)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := newTestService(t)

	req := registerRequest()
	req.Password = "short"
	req.ConfirmPassword = "short"
	_, err := svc.Register(req)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(&LoginRequest{Email: "shopper@example.com", Password: "Sunlight1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, resp.User.LastLoginAt)
}

func TestLoginBadCredentials(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(&LoginRequest{Email: "shopper@example.com", Password: "Wrong1234"})
	assert.True(t, errs.IsCode(err, errs.CodeUnauthenticated))

	_, err = svc.Login(&LoginRequest{Email: "nobody@example.com", Password: "Sunlight1"})
	assert.True(t, errs.IsCode(err, errs.CodeUnauthenticated))
}

func TestRefreshToken(t *testing.T) {
	svc := newTestService(t)
	registered, err := svc.Register(registerRequest())
	require.NoError(t, err)

	resp, err := svc.RefreshToken(registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.RefreshToken(registered.AccessToken) // Wrong token type
	assert.True(t, errs.IsCode(err, errs.CodeUnauthenticated))

	_, err = svc.RefreshToken("not-a-token")
	assert.True(t, errs.IsCode(err, errs.CodeUnauthenticated))
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t)
	registered, err := svc.Register(registerRequest())
	require.NoError(t, err)

	newName := "Luna"
	got, err := svc.UpdateProfile(registered.User.ID, &UpdateProfileRequest{FirstName: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.FirstName)
	assert.Equal(t, "Shopper", got.LastName)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	registered, err := svc.Register(registerRequest())
	require.NoError(t, err)

	err = svc.ChangePassword(registered.User.ID, "Wrong1234", "NewSunlight1")
	assert.True(t, errs.IsCode(err, errs.CodeValidation))

	require.NoError(t, svc.ChangePassword(registered.User.ID, "Sunlight1", "NewSunlight1"))

	_, err = svc.Login(&LoginRequest{Email: "shopper@example.com", Password: "NewSunlight1"})
	require.NoError(t, err)
}
