package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/threatgate/internal/apierror"
	reqctx "github.com/dtroode/threatgate/internal/api/http/context"
	"github.com/dtroode/threatgate/internal/api/http/response"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

// handleError writes err as an API error. Causes of server-side failures
// are logged, never returned.
func handleError(w http.ResponseWriter, r *http.Request, err error, logger *logger.Logger) {
	apiErr := toAPIError(err)

	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("HTTP handler: request failed",
			"request_id", reqctx.RequestID(r.Context()),
			"path", r.URL.Path,
			"code", apiErr.Code,
			"error", err.Error())
	}

	response.Error(w, apiErr.Status, apiErr.Code, apiErr.Message)
}

func toAPIError(err error) *apierror.APIError {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr
	}

	var upstreamErr *model.UpstreamError
	switch {
	case errors.Is(err, model.ErrUnsupportedKind):
		return apierror.NewErrUnsupportedKind(err)
	case errors.Is(err, model.ErrGatewayMisconfigured):
		return apierror.NewErrGatewayMisconfigured(err)
	case errors.As(err, &upstreamErr):
		return apierror.NewErrUpstream(err)
	case errors.Is(err, model.ErrNotFound):
		return apierror.NewErrUserNotFound()
	default:
		return apierror.NewErrInternalServerError(err)
	}
}
