package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgauth "github.com/openlots/openlots-backend/pkg/auth"
	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/config"
	"github.com/openlots/openlots-backend/pkg/db"
	"github.com/openlots/openlots-backend/pkg/db/models"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
	"github.com/openlots/openlots-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetUser(ctx context.Context, id int64) (UserDTO, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo    *Repository
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
	Clock       clock.Clock
	Logger      *logger.Logger
}

type service struct {
	users       *Repository
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	clock       clock.Clock
	logg        *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clock is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		users:       params.UserRepo,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordCfg,
		clock:       params.Clock,
		logg:        params.Logger,
	}, nil
}

// Register creates a new account and returns a signed access token. The
// username unique constraint is the source of truth for duplicates.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
	}
	if email := strings.TrimSpace(strings.ToLower(req.Email)); email != "" {
		user.Email = &email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = &phone
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		// Pick the message by constraint; sqlite reports "users.phone", postgres "users_phone_key".
		if msg := err.Error(); strings.Contains(msg, "users_phone_key") || strings.Contains(msg, "users.phone") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "phone number is taken")
		}
		if msg := err.Error(); strings.Contains(msg, "users_email_key") || strings.Contains(msg, "users.email") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email is taken")
		}
		if db.IsUniqueViolation(err, "users_username_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username is taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	ctx = s.logg.WithUserID(ctx, user.ID)
	s.logg.Info(ctx, "user registered")

	return s.respond(user)
}

// Login authenticates a user by username and password.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ctx = s.logg.WithUserID(ctx, user.ID)
	s.logg.Info(ctx, "user logged in")

	return s.respond(user)
}

// GetUser returns the public profile for the given account.
func (s *service) GetUser(ctx context.Context, id int64) (UserDTO, error) {
	if id <= 0 {
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) respond(user *models.User) (*AuthResponse, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.clock.Now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &AuthResponse{
		AccessToken: token,
		User:        FromModel(user),
	}, nil
}
