package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogauth/auth-service/internal/api/dto"
	"github.com/blogauth/auth-service/internal/api/http/handlers"
	"github.com/blogauth/auth-service/internal/auth"
	"github.com/blogauth/auth-service/internal/domain"
	"github.com/blogauth/auth-service/internal/events"
	"github.com/blogauth/auth-service/internal/observability"
	"github.com/blogauth/auth-service/internal/service"
)

type userStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (s *userStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = int64(len(s.users) + 1)
	s.users[user.Username] = *user
	return nil
}

func (s *userStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (s *userStore) LookupUser(ctx context.Context, username string) (*domain.AuthedUser, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return u.Authed(), nil
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	app     *fiber.App
	clock   *auth.ManualClock
	tokens  *auth.TokenManager
	metrics *observability.Metrics
	users   *userStore
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	logger := zap.NewNop()
	clock := auth.NewManualClock(1_700_000_000)
	tokens, err := auth.NewTokenManager([]byte("integration-secret"), 2*time.Hour, clock)
	require.NoError(t, err)

	users := &userStore{users: map[string]domain.User{}}
	metrics := observability.NewMetrics()
	authService := service.NewAuthService(service.AuthOptions{BcryptCost: bcrypt.MinCost}, service.AuthDependencies{
		UserRepo:   users,
		Tokens:     tokens,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("auth-service", "test", deps),
		Metrics: handlers.NewMetricsHandler(metrics),
		Auth:    handlers.NewAuthHandler(authService, dto.NewValidator()),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users,
			auth.WithOutcomeRecorder(metrics),
			auth.WithRejectHook(authService.TokenRejected),
		),
	})
	return &testServer{app: app, clock: clock, tokens: tokens, metrics: metrics, users: users}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/token", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func (s *testServer) register(t *testing.T, username, password string) {
	t.Helper()
	resp, body := s.do(t, jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"`+password+`"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"msg":"register success"}`, string(body))
}

func (s *testServer) login(t *testing.T, username, password string) dto.LoginResponse {
	t.Helper()
	resp, body := s.do(t, jsonRequest(http.MethodPost, "/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestLoginThenResolveToken(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice", "correct-horse")

	login := s.login(t, "alice", "correct-horse")
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, time.Unix(1_700_000_000, 0).Add(2*time.Hour).UTC(), login.ExpiresAt.UTC())

	resp, body := s.do(t, bearer(login.Token))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var user domain.AuthedUser
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	assert.Equal(t, int64(1), s.metrics.Snapshot().AuthOutcomes[auth.OutcomeAccepted])

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap observability.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, int64(1), snap.AuthOutcomes[auth.OutcomeAccepted])
	assert.Equal(t, int64(1), snap.Requests["/auth/token|GET|200"])
}

func TestTokenRejections(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice", "correct-horse")
	login := s.login(t, "alice", "correct-horse")

	tampered := []byte(login.Token)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}

	otherKey, err := auth.NewTokenManager([]byte("other-secret"), 2*time.Hour, s.clock)
	require.NoError(t, err)
	forged, _, err := otherKey.GenerateToken("alice")
	require.NoError(t, err)

	ghost, _, err := s.tokens.GenerateToken("ghost")
	require.NoError(t, err)

	cases := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"missing header", httptest.NewRequest(http.MethodGet, "/auth/token", nil), http.StatusForbidden, "TOKEN_INVALID"},
		{"not base64", bearer("%%%"), http.StatusForbidden, "TOKEN_INVALID"},
		{"tampered", bearer(string(tampered)), http.StatusForbidden, "TOKEN_INVALID"},
		{"wrong key", bearer(forged), http.StatusForbidden, "TOKEN_INVALID"},
		{"unknown user", bearer(ghost), http.StatusForbidden, "TOKEN_INVALID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := s.do(t, tc.req)
			assert.Equal(t, tc.status, resp.StatusCode)
			e := decodeError(t, body)
			assert.Equal(t, tc.code, e.Error.Code)
			assert.Equal(t, "Token is invalid", e.Error.Message)
		})
	}

	t.Run("expired", func(t *testing.T) {
		s.clock.Advance(2*time.Hour + time.Second)
		resp, body := s.do(t, bearer(login.Token))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		e := decodeError(t, body)
		assert.Equal(t, "TOKEN_EXPIRED", e.Error.Code)
		assert.Equal(t, "Token has expired", e.Error.Message)
	})
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice", "correct-horse")

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"username":"ghost","password":"whatever"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "USER_NOT_FOUND", decodeError(t, body).Error.Code)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong-horse"}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, body).Error.Code)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "VALIDATION_FAILED", e.Error.Code)
	assert.Equal(t, "required", e.Error.Details["Password"])

	resp, _ = s.do(t, jsonRequest(http.MethodPost, "/auth/login", `{`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice", "correct-horse")

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"alice","email":"a2@example.com","password":"correct-horse"}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", decodeError(t, body).Error.Code)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"bo:b","email":"bob@example.com","password":"correct-horse"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "excludes", decodeError(t, body).Error.Details["Username"])
}

func TestLoginFormRedirect(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice", "correct-horse")

	form := url.Values{
		"username": {"alice"},
		"password": {"correct-horse"},
		"redirect": {"blog.example.com/welcome"},
	}
	req := httptest.NewRequest(http.MethodPost, "/auth/login/form", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, _ := s.do(t, req)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "https", location.Scheme)
	assert.Equal(t, "blog.example.com", location.Host)
	assert.Equal(t, "/welcome", location.Path)

	principal, err := s.tokens.ParseToken(location.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)

	form.Del("redirect")
	req = httptest.NewRequest(http.MethodPost, "/auth/login/form", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, map[string]handlers.Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    nil,
	})
	resp, body := healthy.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ready","dependencies":{"postgres":"ok","redis":"disabled"}}`, string(body))

	resp, _ = healthy.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestServer(t, map[string]handlers.Pinger{
		"postgres": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	resp, body = down.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", e.Error.Code)
	assert.Equal(t, "connection refused", e.Error.Details["postgres"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Error.Code)
}
