// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plc-service/internal/config"
	"plc-service/internal/handler"
	"plc-service/internal/middleware"
	"plc-service/internal/service"
	"plc-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config     *config.Config
	logger     *zap.Logger
	plcService *service.PLCService
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, plcService *service.PLCService) *Router {
	return &Router{
		config:     config,
		logger:     logger,
		plcService: plcService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	plcHandler := handler.NewPLCHandler(r.plcService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.plcService, r.logger)
	healthHandler := handler.NewHealthHandler(r.plcService, wsHandler, r.config, r.logger)

	// Health check routes
	health := router.Group("")
	healthHandler.RegisterRoutes(health)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	plcHandler.RegisterRoutes(apiV1)

	// WebSocket routes
	ws := router.Group("/ws")
	wsHandler.RegisterRoutes(ws)

	r.logger.Info("All routes configured successfully")
}
