package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/dtroode/threatgate/internal/apierror"
	reqctx "github.com/dtroode/threatgate/internal/api/http/context"
	"github.com/dtroode/threatgate/internal/logger"
)

// Recovery turns handler panics into 500 responses.
type Recovery struct {
	logger *logger.Logger
}

func NewRecovery(logger *logger.Logger) *Recovery {
	return &Recovery{logger: logger}
}

func (m *Recovery) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			m.logger.Error("Recovery middleware: handler panicked",
				"request_id", reqctx.RequestID(r.Context()),
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()))
			writeAPIError(w, apierror.NewErrInternalServerError(nil))
		}()

		next.ServeHTTP(w, r)
	})
}
