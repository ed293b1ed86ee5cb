package model

import "time"

// TokenManager signs and validates session tokens.
type TokenManager interface {
	Issue(user User) (token string, expiresAt time.Time, err error)
	Verify(token string) (SessionClaims, error)
}

// SessionClaims is the identity embedded in a session token.
type SessionClaims struct {
	ID        int64
	Email     string
	Name      string
	Role      Role
	ExpiresAt time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
