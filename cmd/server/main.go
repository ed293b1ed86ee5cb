package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/health"

	grpchealth "github.com/dtroode/threatgate/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/threatgate/internal/api/grpc/router"
	grpcServer "github.com/dtroode/threatgate/internal/api/grpc/server"
	httpctx "github.com/dtroode/threatgate/internal/api/http/context"
	httprouter "github.com/dtroode/threatgate/internal/api/http/router"
	httpServer "github.com/dtroode/threatgate/internal/api/http/server"
	"github.com/dtroode/threatgate/internal/config"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/lookup"
	"github.com/dtroode/threatgate/internal/metrics"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/password"
	"github.com/dtroode/threatgate/internal/repository"
	"github.com/dtroode/threatgate/internal/repository/legacy"
	"github.com/dtroode/threatgate/internal/server"
	"github.com/dtroode/threatgate/internal/service"
	"github.com/dtroode/threatgate/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	logAppVersion()

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to initialize user store", "backend", cfg.Store.Backend, "error", err)
	}
	defer store.Close()
	if store.Backend == config.BackendPostgres {
		logger.Info("user store ready", "backend", store.Backend)
	} else {
		logger.Info("user store ready", "backend", store.Backend, "location", store.Location)
	}

	migrateLegacyUsers(ctx, cfg.Store.LegacyPath, store, logger)

	if err := store.Ping(ctx); err != nil {
		logger.Error("user store failed startup health check", "backend", store.Backend, "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	verifier, err := password.NewBcrypt(password.ProvisioningCost)
	if err != nil {
		logger.Fatal("failed to initialize password verifier", "error", err)
	}
	tokenManager := token.NewJWT(cfg.Auth.Secret)
	authService := service.NewAuth(store, verifier, tokenManager, appMetrics, logger)

	if cfg.Lookup.APIKey == "" {
		logger.Warn("VT_API_KEY is not set, lookups will fail")
	}
	gateway := lookup.NewVirusTotal(lookup.Config{
		APIKey:  cfg.Lookup.APIKey,
		BaseURL: cfg.Lookup.BaseURL,
		Timeout: cfg.Lookup.Timeout,
	}, logger)

	router := httprouter.New(authService, gateway, store, httpctx.NewManager(), appMetrics, registry, httprouter.Options{
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		RequireLookupAuth:  cfg.Lookup.RequireAuth,
	}, logger)

	servers := []model.Server{
		httpServer.NewHTTPServer(router.Register(), fmt.Sprintf(":%s", cfg.Port)),
	}

	var wg sync.WaitGroup

	if cfg.GRPC.HealthPort != "" {
		healthServer := health.NewServer()
		checker := grpchealth.NewChecker(store, healthServer, cfg.GRPC.HealthInterval, appMetrics, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			checker.Run(ctx)
		}()

		r := grpcrouter.New(healthServer, logger)
		servers = append(servers, grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.HealthPort)))
	}

	sl := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)

	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "address", s.Address(), "error", err)
				stop()
			}
		}(s)
	}

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func migrateLegacyUsers(ctx context.Context, legacyPath string, store *repository.Store, logger *logger.Logger) {
	if legacyPath == "" {
		return
	}
	if store.IsFileAt(legacyPath) {
		logger.Debug("legacy migration skipped, file store already uses the legacy file", "path", legacyPath)
		return
	}

	res, err := legacy.Migrate(ctx, legacyPath, store, logger)
	if err != nil {
		logger.Error("legacy migration failed", "path", legacyPath, "error", err)
		return
	}
	if res.Imported > 0 {
		logger.Info("legacy users imported", "count", res.Imported)
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
