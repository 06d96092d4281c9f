package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck answers /health from a short-lived cache so probes do not hit the database
// on every call.
type HealthCheck struct {
	mu            sync.Mutex
	db            Pinger
	version       string
	started       time.Time
	cacheDuration time.Duration
	last          *HealthStatus
	now           func() time.Time
}

func NewHealthCheck(db Pinger, version string) *HealthCheck {
	return &HealthCheck{
		db:            db,
		version:       version,
		started:       time.Now(),
		cacheDuration: 5 * time.Second,
		now:           time.Now,
	}
}

func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := h.check(c.Request.Context())
		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}

func (h *HealthCheck) check(ctx context.Context) HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if h.last != nil && now.Sub(h.last.LastChecked) < h.cacheDuration {
		return *h.last
	}

	status := HealthStatus{
		Status:      "ok",
		Database:    "ok",
		LastChecked: now,
		Uptime:      now.Sub(h.started).Round(time.Second).String(),
		Version:     h.version,
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(pingCtx); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
	}

	h.last = &status
	return status
}
