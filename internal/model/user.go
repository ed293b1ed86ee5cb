package model

import (
	"context"
	"strings"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Ping(ctx context.Context) error
}

// Role is the authorization role of a user.
type Role string

const (
	// RoleAdmin is the only role allowed to sign in.
	RoleAdmin Role = "admin"
)

// User represents a stored user with authentication material.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Role         Role   `json:"role,omitempty"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail returns the canonical lookup key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordVerifier checks plaintext passwords against stored hashes.
// An empty hash never matches but costs the same as a real comparison.
type PasswordVerifier interface {
	Verify(plain, hash string) bool
}
