// Package authclient lets other services resolve a bearer token through the
// auth service's /auth/token endpoint. The blog backend holds no signing key;
// its request middleware calls Client.User with the caller's token and treats
// ErrUnauthorized as a rejected request.
package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/blogauth/auth-service/internal/domain"
)

// ErrUnauthorized indicates the auth service rejected the token.
var ErrUnauthorized = errors.New("token rejected by auth service")

const defaultTimeout = 5 * time.Second

// Client calls the auth service.
type Client struct {
	tokenURL string
	timeout  time.Duration
}

// New returns a Client for the auth service rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		tokenURL: strings.TrimRight(baseURL, "/") + "/auth/token",
		timeout:  timeout,
	}
}

// User resolves token to the user it was issued for.
func (c *Client) User(token string) (*domain.AuthedUser, error) {
	agent := fiber.Get(c.tokenURL)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	agent.Timeout(c.timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("call auth service: %w", errors.Join(errs...))
	}

	switch code {
	case http.StatusOK:
		var user domain.AuthedUser
		if err := json.Unmarshal(body, &user); err != nil {
			return nil, fmt.Errorf("decode auth service response: %w", err)
		}
		return &user, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("auth service returned status %d", code)
	}
}
