// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plc-service/internal/config"
	"plc-service/internal/plc"
	"plc-service/internal/service"
	"plc-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	plcService *service.PLCService
	wsHandler  *WebSocketHandler
	config     *config.Config
	logger     *utils.ServiceLogger
	startedAt  time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(plcService *service.PLCService, wsHandler *WebSocketHandler, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		plcService: plcService,
		wsHandler:  wsHandler,
		config:     config,
		logger:     utils.NewServiceLogger(logger, "health-handler"),
		startedAt:  time.Now(),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck reports overall service health. The PLC link being down
// degrades the report but the service itself stays healthy; an API
// consumer can still inspect and stage field values offline.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := h.plcService.Status()

	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).String(),
		Checks:    make(map[string]CheckResult),
	}

	plcCheck := CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"state":         status.State,
			"alive":         status.Alive,
			"db_number":     status.DBNumber,
			"buffer_length": status.BufferLength,
			"dirty_fields":  len(status.DirtyFields),
		},
	}
	if status.State != plc.StateConnected || !status.Alive {
		plcCheck.Status = "degraded"
		plcCheck.Message = "PLC link is down or stale"
		health.Status = "degraded"
	}
	health.Checks["plc"] = plcCheck

	health.Checks["websocket"] = CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"clients": h.wsHandler.ClientCount(),
		},
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for Kubernetes readiness probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
