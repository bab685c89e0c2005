package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/observability"
)

// DependencyCheck pings one backing service.
type DependencyCheck func(ctx context.Context) error

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      map[string]DependencyCheck
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. Only the given checks gate
// readiness; dependencies that are not configured should be left out.
func NewHealthHandler(serviceName, version string, checks map[string]DependencyCheck, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, checks: checks, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

const readinessTimeout = 2 * time.Second

type checkResult struct {
	name    string
	err     error
	latency time.Duration
}

// Ready runs every dependency check in parallel and answers 503 if any fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	results := make(chan checkResult, len(h.checks))
	for name, check := range h.checks {
		go func(name string, check DependencyCheck) {
			start := time.Now()
			err := check(ctx)
			results <- checkResult{name: name, err: err, latency: time.Since(start)}
		}(name, check)
	}

	deps := make(fiber.Map, len(h.checks))
	failed := false
	for range h.checks {
		r := <-results
		entry := fiber.Map{"status": "ok", "latency_ms": r.latency.Milliseconds()}
		if r.err != nil {
			entry["status"] = "down"
			entry["error"] = r.err.Error()
			failed = true
		}
		deps[r.name] = entry
	}

	if failed {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
}

// Metrics reports request counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
