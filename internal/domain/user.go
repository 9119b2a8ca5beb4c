package domain

import "time"

// User is an account row in auth_user.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthedUser is the public view of a user resolved from a bearer token.
type AuthedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Authed strips credentials from u.
func (u *User) Authed() *AuthedUser {
	return &AuthedUser{ID: u.ID, Username: u.Username, Email: u.Email}
}
