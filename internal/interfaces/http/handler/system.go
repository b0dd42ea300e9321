package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X ...handler.Version=1.2.0"
var Version = "dev"

// HealthCheck is a named dependency probe
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// SystemHandler serves the system info, ping and health endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	startTime time.Time
	checks    []HealthCheck
	timeout   time.Duration
}

// NewSystemHandler creates a new SystemHandler probing checks on /health
func NewSystemHandler(name string, checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{
		name:      name,
		startTime: time.Now(),
		checks:    checks,
		timeout:   3 * time.Second,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping handles GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HealthResponse is the body of /health. It is not wrapped in the API
// envelope so that probes can read it directly.
type HealthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health: 200 when every dependency answers, 503
// otherwise
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status: "healthy",
		Time:   time.Now().Format(time.RFC3339),
		Checks: make(map[string]string, len(h.checks)),
	}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.String("check", check.Name), zap.Error(err))
			resp.Checks[check.Name] = "error"
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
