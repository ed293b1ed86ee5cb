package middleware

import (
	"net/http"
	"strings"

	"github.com/dtroode/threatgate/internal/apierror"
	"github.com/dtroode/threatgate/internal/api/http/response"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

const bearerPrefix = "Bearer "

// TokenService resolves session claims from bearer tokens.
type TokenService interface {
	Authenticate(token string) (model.SessionClaims, error)
}

// Authenticate validates bearer tokens and injects claims into context.
// It never consults the user store.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid bearer token.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			writeAPIError(w, apierror.NewErrMissingAuthorizationToken())
			return
		}

		claims, err := m.tokenService.Authenticate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			m.logger.Debug("Authenticate middleware: rejected request",
				"path", r.URL.Path,
				"error", err.Error())
			writeAPIError(w, apierror.NewErrInvalidAuthorizationToken(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetClaimsToContext(r.Context(), claims)))
	})
}

func writeAPIError(w http.ResponseWriter, err *apierror.APIError) {
	response.Error(w, err.Status, err.Code, err.Message)
}
