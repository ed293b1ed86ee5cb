package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/threatgate/internal/apierror"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/metrics"
	"github.com/dtroode/threatgate/internal/model"
)

type Auth struct {
	userStore    model.UserStore
	verifier     model.PasswordVerifier
	tokenService *TokenService
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	verifier model.PasswordVerifier,
	tokenManager model.TokenManager,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		verifier:     verifier,
		tokenService: NewTokenService(tokenManager, logger),
		metrics:      metrics,
		logger:       logger,
	}
}

// Login verifies administrator credentials and issues a session token.
//
// Credentials are checked before the role, so a non-admin account with a
// wrong password is indistinguishable from an unknown one.
func (a *Auth) Login(ctx context.Context, email, password string) (model.LoginResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		a.metrics.ObserveLogin(metrics.LoginMissingFields)
		return model.LoginResult{}, apierror.NewErrMissingFields("email and password required")
	}

	a.logger.Debug("Auth service: login attempt",
		"email", email)

	user, err := a.userStore.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.verifier.Verify(password, "")
		a.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
		a.logger.Info("Auth service: login rejected",
			"email", email,
			"reason", "unknown user")
		return model.LoginResult{}, apierror.NewErrInvalidCredentials()
	}
	if err != nil {
		a.metrics.ObserveLogin(metrics.LoginError)
		a.logger.Error("Auth service: failed to find user",
			"email", email,
			"error", err.Error())
		return model.LoginResult{}, fmt.Errorf("failed to find user by email: %w", err)
	}

	if !a.verifier.Verify(password, user.PasswordHash) {
		a.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
		a.logger.Info("Auth service: login rejected",
			"email", email,
			"reason", "wrong password")
		return model.LoginResult{}, apierror.NewErrInvalidCredentials()
	}

	if !user.IsAdmin() {
		a.metrics.ObserveLogin(metrics.LoginAccessDenied)
		a.logger.Info("Auth service: login rejected",
			"email", email,
			"reason", "not an administrator",
			"role", user.Role)
		return model.LoginResult{}, apierror.NewErrAccessDenied()
	}

	token, expiresAt, err := a.tokenService.Issue(user)
	if err != nil {
		a.metrics.ObserveLogin(metrics.LoginError)
		a.logger.Error("Auth service: failed to issue token",
			"user_id", user.ID,
			"error", err.Error())
		return model.LoginResult{}, err
	}

	a.metrics.ObserveLogin(metrics.LoginSuccess)
	a.logger.Info("Auth service: login succeeded",
		"user_id", user.ID)

	return model.LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Register always refuses: accounts are provisioned out of band.
func (a *Auth) Register(ctx context.Context) error {
	a.logger.Info("Auth service: registration attempt refused")
	return apierror.NewErrRegistrationDisabled()
}

// Me returns the current record of the session's user.
func (a *Auth) Me(ctx context.Context, claims model.SessionClaims) (model.User, error) {
	user, err := a.userStore.FindByEmail(ctx, claims.Email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Info("Auth service: session user no longer exists",
			"user_id", claims.ID)
		return model.User{}, apierror.NewErrUserNotFound()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Authenticate resolves a bearer token into session claims.
func (a *Auth) Authenticate(token string) (model.SessionClaims, error) {
	return a.tokenService.Authenticate(token)
}
