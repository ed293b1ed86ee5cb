package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/threatgate/internal/apierror"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

// TokenService issues session tokens and resolves presented tokens into
// claims. Callers never learn why a token was rejected.
type TokenService struct {
	manager model.TokenManager
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, logger: logger}
}

func (s *TokenService) Issue(user model.User) (string, time.Time, error) {
	token, expiresAt, err := s.manager.Issue(user)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Debug("Token service: session issued",
		"user_id", user.ID,
		"expires_at", expiresAt)

	return token, expiresAt, nil
}

// Authenticate returns the claims of a valid token or an invalid token
// API error.
func (s *TokenService) Authenticate(token string) (model.SessionClaims, error) {
	claims, err := s.manager.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, model.ErrTokenExpired) {
			reason = "expired"
		}
		s.logger.Debug("Token service: token rejected",
			"reason", reason,
			"error", err.Error())
		return model.SessionClaims{}, apierror.NewErrInvalidAuthorizationToken(err)
	}

	return claims, nil
}
