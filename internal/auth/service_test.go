package auth

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/openlots/openlots-backend/pkg/auth"
	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/config"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
)

var userSeq atomic.Int64

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  email TEXT UNIQUE,
  phone TEXT UNIQUE,
  password_hash TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "openlots",
		ExpirationMinutes: 30,
	}
}

func buildAuthService(t *testing.T) Service {
	t.Helper()

	db := setupAuthTestDB(t)
	svc, err := NewService(ServiceParams{
		UserRepo:  NewRepository(db),
		JWTConfig: testJWTConfig(),
		// Tokens are checked against the wall clock on parse, so the test
		// clock stays near real time.
		Clock:  clock.NewManual(time.Now().UTC()),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func uniqueUsername(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), userSeq.Add(1))
}

func TestServiceRegisterAndLogin(t *testing.T) {
	svc := buildAuthService(t)
	ctx := context.Background()
	username := uniqueUsername("alice")

	resp, err := svc.Register(ctx, RegisterRequest{
		Username: username,
		Email:    "Alice@Example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, username, resp.User.Username)
	require.NotNil(t, resp.User.Email)
	assert.Equal(t, "alice@example.com", *resp.User.Email)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, username, claims.Username)

	login, err := svc.Login(ctx, LoginRequest{Username: username, Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestServiceRegisterDuplicateUsername(t *testing.T) {
	svc := buildAuthService(t)
	ctx := context.Background()
	username := uniqueUsername("dup")

	_, err := svc.Register(ctx, RegisterRequest{Username: username, Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Username: username, Password: "password456"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestServiceRegisterDuplicateEmail(t *testing.T) {
	svc := buildAuthService(t)
	ctx := context.Background()
	email := fmt.Sprintf("taken_%d@example.com", userSeq.Add(1))

	_, err := svc.Register(ctx, RegisterRequest{
		Username: uniqueUsername("first"),
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		Username: uniqueUsername("second"),
		Email:    strings.ToUpper(email),
		Password: "password456",
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "email is taken", typed.Message())
}

func TestServiceRegisterDuplicatePhone(t *testing.T) {
	svc := buildAuthService(t)
	ctx := context.Background()
	phone := fmt.Sprintf("+1555%07d", userSeq.Add(1))

	_, err := svc.Register(ctx, RegisterRequest{
		Username: uniqueUsername("first"),
		Phone:    phone,
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		Username: uniqueUsername("second"),
		Phone:    phone,
		Password: "password456",
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "phone number is taken", typed.Message())
}

func TestServiceLoginWrongPassword(t *testing.T) {
	svc := buildAuthService(t)
	ctx := context.Background()
	username := uniqueUsername("bob")

	_, err := svc.Register(ctx, RegisterRequest{Username: username, Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Username: username, Password: "wrong"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Equal(t, invalidCredentialsMessage, typed.Message())
}

func TestServiceLoginUnknownUsername(t *testing.T) {
	svc := buildAuthService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: uniqueUsername("ghost"), Password: "whatever"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	// The message never reveals whether the account exists.
	assert.Equal(t, invalidCredentialsMessage, typed.Message())
}

func TestServiceGetUser(t *testing.T) {
	svc := buildAuthService(t)
	ctx := context.Background()
	username := uniqueUsername("carol")

	resp, err := svc.Register(ctx, RegisterRequest{Username: username, Password: "password123"})
	require.NoError(t, err)

	user, err := svc.GetUser(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, username, user.Username)

	_, err = svc.GetUser(ctx, 987654321)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
