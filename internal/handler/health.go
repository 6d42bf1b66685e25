package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/pkg/circuit"
	"github.com/Payphone-Digital/devcamper/pkg/health"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

type HealthHandler struct {
	monitor *health.Monitor
	breaker *circuit.Breaker
}

type HealthCheckResponse struct {
	Status    health.Status                 `json:"status"`
	Version   string                        `json:"version"`
	Timestamp time.Time                     `json:"timestamp"`
	Checks    map[string]health.CheckResult `json:"checks"`
	Geocoder  *circuit.Snapshot             `json:"geocoder,omitempty"`
}

// NewHealthHandler reports the monitor's checks. breaker may be nil when
// geocoding is disabled.
func NewHealthHandler(monitor *health.Monitor, breaker *circuit.Breaker) *HealthHandler {
	return &HealthHandler{
		monitor: monitor,
		breaker: breaker,
	}
}

// HealthCheck runs every dependency check. Only a failing critical
// dependency turns the answer into 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report := h.monitor.CheckAll(ctx)
	response := HealthCheckResponse{
		Status:    report.Status,
		Version:   constants.AppVersion,
		Timestamp: time.Now(),
		Checks:    report.Checks,
	}
	if h.breaker != nil {
		snap := h.breaker.Snapshot()
		response.Geocoder = &snap
	}

	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", string(report.Status)),
		zap.Int("status_code", statusCode),
	)
	c.JSON(statusCode, response)
}

// BasicHealth answers liveness probes without touching dependencies.
func (h *HealthHandler) BasicHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    health.StatusHealthy,
		"version":   constants.AppVersion,
		"timestamp": time.Now(),
	})
}
