package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/dtroode/threatgate/internal/api/http/handler"
	"github.com/dtroode/threatgate/internal/api/http/middleware"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/metrics"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/service"
)

// Options tune the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	// RequireLookupAuth puts the lookup route behind bearer authentication.
	RequireLookupAuth bool
}

// Router wires handlers and middleware into one http.Handler.
type Router struct {
	authService    *service.Auth
	gateway        model.LookupGateway
	store          model.Pinger
	contextManager model.ContextManager
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	opts           Options
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	authService *service.Auth,
	gateway model.LookupGateway,
	store model.Pinger,
	contextManager model.ContextManager,
	metrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		gateway:        gateway,
		store:          store,
		contextManager: contextManager,
		metrics:        metrics,
		gatherer:       gatherer,
		opts:           opts,
		logger:         logger,
	}
}

// Register builds the routing table and wraps it with logging, panic
// recovery and CORS.
func (r *Router) Register() http.Handler {
	mux := http.NewServeMux()

	authenticate := middleware.NewAuthenticate(r.authService, r.contextManager, r.logger)

	r.registerHealthRoutes(mux)
	r.registerAuthRoutes(mux, authenticate)
	r.registerLookupRoutes(mux, authenticate)

	if r.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: r.opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	logging := middleware.NewLogging(r.logger, r.metrics)
	recovery := middleware.NewRecovery(r.logger)

	return logging.Handle(recovery.Handle(c.Handler(mux)))
}

func (r *Router) registerHealthRoutes(mux *http.ServeMux) {
	h := handler.NewHealth(r.store, r.metrics, r.logger)
	mux.HandleFunc("GET /health", h.Live)
	mux.HandleFunc("GET /ready", h.Ready)
}

func (r *Router) registerAuthRoutes(mux *http.ServeMux, authenticate *middleware.Authenticate) {
	h := handler.NewAuth(r.authService, r.contextManager, r.opts.MaxBodyBytes, r.logger)
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.Handle("GET /api/auth/me", authenticate.Handle(http.HandlerFunc(h.Me)))
}

func (r *Router) registerLookupRoutes(mux *http.ServeMux, authenticate *middleware.Authenticate) {
	h := handler.NewLookup(r.gateway, r.metrics, r.opts.MaxBodyBytes, r.logger)

	var lookup http.Handler = http.HandlerFunc(h.Lookup)
	if r.opts.RequireLookupAuth {
		lookup = authenticate.Handle(lookup)
	} else {
		r.logger.Warn("Router: lookup route is not authenticated")
	}
	mux.Handle("POST /api/vt/lookup", lookup)
}
