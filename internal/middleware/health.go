package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status      string            `json:"status"`
	LastChecked time.Time         `json:"last_checked"`
	Uptime      string            `json:"uptime"`
	Version     string            `json:"version"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthCheck is one dependency probed by the health endpoint.
type HealthCheck func(ctx context.Context) error

// Health serves /health and caches the probe result for a few seconds.
type Health struct {
	mu            sync.Mutex
	version       string
	startTime     time.Time
	checks        map[string]HealthCheck
	cacheDuration time.Duration
	last          *HealthStatus
	lastCode      int
}

func NewHealth(version string) *Health {
	return &Health{
		version:       version,
		startTime:     time.Now(),
		checks:        make(map[string]HealthCheck),
		cacheDuration: 5 * time.Second,
	}
}

func (h *Health) AddCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
	h.last = nil
}

func (h *Health) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.Lock()
		defer h.mu.Unlock()

		if h.last != nil && time.Since(h.last.LastChecked) < h.cacheDuration {
			c.JSON(h.lastCode, h.last)
			return
		}

		status := &HealthStatus{
			Status:      "ok",
			LastChecked: time.Now(),
			Uptime:      time.Since(h.startTime).Round(time.Second).String(),
			Version:     h.version,
			Components:  make(map[string]string, len(h.checks)),
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				status.Components[name] = err.Error()
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status.Components[name] = "ok"
		}

		h.last = status
		h.lastCode = code
		c.JSON(code, status)
	}
}
