// Package health reports user store health over the gRPC health protocol.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/metrics"
	"github.com/dtroode/threatgate/internal/model"
)

// StoreService is the health service name that tracks the user store.
const StoreService = "threatgate.UserStore"

const pingTimeout = 2 * time.Second

// Checker pings the user store and publishes the result to a health server.
type Checker struct {
	store    model.Pinger
	server   *health.Server
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewChecker(store model.Pinger, server *health.Server, interval time.Duration, metrics *metrics.Metrics, logger *logger.Logger) *Checker {
	return &Checker{
		store:    store,
		server:   server,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Check pings the store once and updates the overall and store statuses.
func (c *Checker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	err := c.store.Ping(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		c.logger.Warn("Health checker: user store ping failed",
			"error", err.Error())
	}

	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(StoreService, status)
	c.metrics.SetStoreUp(err == nil)

	return err == nil
}

// Run checks immediately and then every interval until ctx is done, after
// which every service reports NOT_SERVING.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
