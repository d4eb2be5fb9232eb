// Package user defines the user domain model for authentication and authorization.
package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User represents a registered editor or administrator.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	PasswordHash string     `json:"-"` // never serialized
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// HasPassword reports whether the user has set a password. Users created for
// magic-link-only access have none.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// CreateRequest is the input for registering a new user. Password is
// optional; a user without one signs in via magic link.
type CreateRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"` //nolint:gosec // request field, not a hardcoded secret
	IsAdmin  bool   `json:"is_admin"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Password != "" && len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// NormalizedEmail returns the lowercased email for storage and lookups.
func (r *CreateRequest) NormalizedEmail() string {
	return strings.ToLower(r.Email)
}

// UpdateRequest is the input for updating an existing user.
type UpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	IsAdmin *bool   `json:"is_admin,omitempty"`
}

// LoginRequest is the input for password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token     string    `json:"token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
