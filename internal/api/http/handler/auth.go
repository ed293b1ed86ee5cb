package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/threatgate/internal/apierror"
	"github.com/dtroode/threatgate/internal/api/http/response"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

// AuthService is the login flow used by the handler.
type AuthService interface {
	Login(ctx context.Context, email, password string) (model.LoginResult, error)
	Register(ctx context.Context) error
	Me(ctx context.Context, claims model.SessionClaims) (model.User, error)
}

type Auth struct {
	service        AuthService
	contextManager model.ContextManager
	maxBodyBytes   int64
	logger         *logger.Logger
}

func NewAuth(service AuthService, contextManager model.ContextManager, maxBodyBytes int64, logger *logger.Logger) *Auth {
	return &Auth{
		service:        service,
		contextManager: contextManager,
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Login handles POST /api/auth/login.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decodeBody(w, r, h.maxBodyBytes, &req, func(get func(string) string) {
		req.Email = get("email")
		req.Password = get("password")
	})
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, loginResponse{
		User:  newUserResponse(res.User),
		Token: res.Token,
	})
}

// Register handles POST /api/auth/register.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	handleError(w, r, h.service.Register(r.Context()), h.logger)
}

// Me handles GET /api/auth/me.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.contextManager.GetClaimsFromContext(r.Context())
	if !ok {
		handleError(w, r, apierror.NewErrMissingAuthorizationToken(), h.logger)
		return
	}

	user, err := h.service.Me(r.Context(), claims)
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}

	response.JSON(w, http.StatusOK, newUserResponse(user))
}
