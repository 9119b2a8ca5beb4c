package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/blogauth/auth-service/internal/domain"
	apperrors "github.com/blogauth/auth-service/pkg/util"
)

const (
	userKey      = "auth_user"
	bearerPrefix = "Bearer "
)

// UserLookup resolves a verified principal to its account.
type UserLookup interface {
	LookupUser(ctx context.Context, username string) (*domain.AuthedUser, error)
}

// Outcome labels the result of authenticating one request.
type Outcome string

const (
	OutcomeAccepted      Outcome = "accepted"
	OutcomeMissingHeader Outcome = "missing_header"
	OutcomeInvalid       Outcome = "invalid"
	OutcomeExpired       Outcome = "expired"
	OutcomeUnknownUser   Outcome = "unknown_user"
)

// OutcomeRecorder receives one Outcome per authenticated request.
type OutcomeRecorder interface {
	RecordAuthOutcome(outcome Outcome)
}

// AuthMiddleware validates bearer tokens and loads the user they name.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    UserLookup
	logger   *zap.Logger
	recorder OutcomeRecorder
	onReject func(ctx context.Context, outcome Outcome, err error)
}

// MiddlewareOption customizes an AuthMiddleware.
type MiddlewareOption func(*AuthMiddleware)

// WithLogger sets the logger used for rejected requests.
func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(m *AuthMiddleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithOutcomeRecorder reports every authentication outcome to r.
func WithOutcomeRecorder(r OutcomeRecorder) MiddlewareOption {
	return func(m *AuthMiddleware) { m.recorder = r }
}

// WithRejectHook calls fn whenever a request is rejected.
func WithRejectHook(fn func(ctx context.Context, outcome Outcome, err error)) MiddlewareOption {
	return func(m *AuthMiddleware) { m.onReject = fn }
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users UserLookup, opts ...MiddlewareOption) *AuthMiddleware {
	m := &AuthMiddleware{tokens: tokens, users: users, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return m.reject(c, OutcomeMissingHeader, apperrors.NewTokenInvalid(errors.New("missing or malformed authorization header")))
	}

	user, outcome, err := m.Authenticate(c.UserContext(), token)
	if err != nil {
		if outcome == "" {
			return err
		}
		return m.reject(c, outcome, err)
	}

	m.record(OutcomeAccepted)
	c.Locals(userKey, user)
	return c.Next()
}

// Authenticate verifies token and resolves its principal. The user store is
// consulted only for tokens that pass verification. A non-empty Outcome
// accompanies every rejection; storage failures return an empty Outcome.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*domain.AuthedUser, Outcome, error) {
	username, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, outcomeFor(err), TokenError(err)
	}

	user, err := m.users.LookupUser(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, OutcomeUnknownUser, apperrors.NewTokenInvalid(err)
		}
		return nil, "", apperrors.MapError(err)
	}
	return user, OutcomeAccepted, nil
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, outcome Outcome, err error) error {
	m.record(outcome)
	m.logger.Debug("request rejected",
		zap.String("outcome", string(outcome)),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	if m.onReject != nil {
		m.onReject(c.UserContext(), outcome, err)
	}
	return err
}

func (m *AuthMiddleware) record(outcome Outcome) {
	if m.recorder != nil {
		m.recorder.RecordAuthOutcome(outcome)
	}
}

// BearerToken strips the literal "Bearer " prefix from an Authorization value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// TokenError maps a verification failure to its transport error: expired
// tokens are unauthorized, everything else is forbidden.
func TokenError(err error) error {
	if errors.Is(err, ErrTokenExpired) {
		return apperrors.NewTokenExpired(err)
	}
	return apperrors.NewTokenInvalid(err)
}

func outcomeFor(err error) Outcome {
	if errors.Is(err, ErrTokenExpired) {
		return OutcomeExpired
	}
	return OutcomeInvalid
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.AuthedUser, bool) {
	val := c.Locals(userKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.AuthedUser)
	return user, ok
}
