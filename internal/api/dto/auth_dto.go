package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// LoginRequest payload for JSON login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginFormRequest payload for the HTML login form. Redirect, when present,
// receives the issued token as a query parameter.
type LoginFormRequest struct {
	Username string `form:"username" validate:"required,max=64"`
	Password string `form:"password" validate:"required,max=72"`
	Redirect string `form:"redirect" validate:"omitempty,max=2048"`
}

// RegisterRequest payload for new accounts. The username becomes the token
// principal and so cannot contain ':'.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64,excludes=:"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Access   string `json:"access" validate:"omitempty,max=128"`
}

// LoginResponse standard response for login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MsgResponse carries a plain status message.
type MsgResponse struct {
	Msg string `json:"msg"`
}

// Validator wraps go-playground/validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a validator with struct-level required checks enabled.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks s against its `validate` tags and reports failing fields.
func (v *Validator) Validate(s any) (map[string]any, error) {
	err := v.v.Struct(s)
	if err == nil {
		return nil, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return details, fmt.Errorf("validation failed: %w", err)
}
