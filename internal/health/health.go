// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Handler serves /health and /ready.
type Handler struct {
	service string
	checks  map[string]Check
	timeout time.Duration
}

// NewHandler creates a Handler for service.
func NewHandler(service string) *Handler {
	return &Handler{
		service: service,
		checks:  make(map[string]Check),
		timeout: 3 * time.Second,
	}
}

// AddCheck registers a readiness check under name.
func (h *Handler) AddCheck(name string, check Check) *Handler {
	h.checks[name] = check
	return h
}

// RegisterRoutes registers the probe routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
}

// Live handles GET /health.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready handles GET /ready. It fails if any check fails.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "service": h.service, "checks": results})
}
