package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/blogauth/auth-service/internal/api/dto"
	"github.com/blogauth/auth-service/internal/auth"
	"github.com/blogauth/auth-service/internal/service"
	apperrors "github.com/blogauth/auth-service/pkg/util"
)

// AuthHandler exposes login, registration and token introspection.
type AuthHandler struct {
	auth      *service.AuthService
	validator *dto.Validator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, validator *dto.Validator) *AuthHandler {
	if validator == nil {
		validator = dto.NewValidator()
	}
	return &AuthHandler{auth: authService, validator: validator}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate(&req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.LoginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt})
}

// LoginForm handles POST /auth/login/form. With a redirect target the token is
// handed over in the target's query string; otherwise the client goes home.
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	var req dto.LoginFormRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate(&req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	if req.Redirect == "" {
		return c.Redirect("/", fiber.StatusFound)
	}
	target, err := RedirectWithToken(req.Redirect, result.Token)
	if err != nil {
		return apperrors.NewValidationError("invalid redirect", map[string]any{"redirect": req.Redirect})
	}
	return c.Redirect(target, fiber.StatusFound)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate(&req); err != nil {
		return err
	}

	if _, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password, req.Access); err != nil {
		return err
	}

	return c.JSON(dto.MsgResponse{Msg: "register success"})
}

// Token handles GET /auth/token. The auth middleware has already verified the
// bearer token and resolved its user.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewTokenInvalid(nil)
	}
	return c.JSON(user)
}

func (h *AuthHandler) validate(req any) error {
	details, err := h.validator.Validate(req)
	if err != nil {
		return apperrors.NewValidationError("invalid payload", details)
	}
	return nil
}

// RedirectWithToken appends token to target as the "token" query parameter.
// Targets without a scheme are assumed to be https.
func RedirectWithToken(target, token string) (string, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", url.InvalidHostError(target)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
