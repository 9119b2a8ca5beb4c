package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/blogauth/auth-service/internal/auth"
	"github.com/blogauth/auth-service/internal/domain"
	"github.com/blogauth/auth-service/internal/events"
	"github.com/blogauth/auth-service/internal/repository"
	apperrors "github.com/blogauth/auth-service/pkg/util"
)

// uniqueViolation is the Postgres SQLSTATE for a UNIQUE constraint failure.
const uniqueViolation = "23505"

// UserCache drops cached lookups for a username.
type UserCache interface {
	Forget(ctx context.Context, username string) error
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	cache      UserCache
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	accessCode string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	UserCache  UserCache
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// AuthOptions carries the tunables taken from configuration.
type AuthOptions struct {
	BcryptCost         int
	RegisterAccessCode string
}

// NewAuthService builds the service.
func NewAuthService(opts AuthOptions, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		cache:      deps.UserCache,
		tokenMgr:   deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: opts.BcryptCost,
		accessCode: opts.RegisterAccessCode,
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, username, email, password, accessCode string) (*domain.User, error) {
	if s.accessCode != "" && subtle.ConstantTimeCompare([]byte(s.accessCode), []byte(accessCode)) != 1 {
		return nil, apperrors.NewForbidden("registration access code invalid")
	}
	if err := auth.ValidatePrincipal(username); err != nil {
		return nil, apperrors.NewValidationError("username cannot be used", map[string]any{"username": err.Error()})
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("User already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can win between the lookup and the insert.
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("User already exists", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	// A previous account with this name may still be cached.
	if s.cache != nil {
		if err := s.cache.Forget(ctx, username); err != nil {
			s.logger.Warn("forget cached user", zap.String("username", username), zap.Error(err))
		}
	}

	s.publish(ctx, events.New(events.EventUserRegistered, username, nil))
	return user, nil
}

// Login authenticates a user by password and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.publish(ctx, events.New(events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "unknown user"}))
			return nil, apperrors.NewUserNotFound()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("verify password hash", zap.String("username", username), zap.Error(err))
		}
		s.publish(ctx, events.New(events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "bad password"}))
		return nil, apperrors.NewInvalidCredentials()
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.Username)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.New(events.EventLoginSucceeded, username, nil))
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenRejected records a rejected bearer token in the audit trail. It is
// installed as the auth middleware's reject hook.
func (s *AuthService) TokenRejected(ctx context.Context, outcome auth.Outcome, _ error) {
	s.publish(ctx, events.New(events.EventTokenRejected, "", events.TokenRejectedPayload{Reason: string(outcome)}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
