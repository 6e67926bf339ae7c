// internal/handler/plc_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plc-service/internal/plc"
	"plc-service/internal/service"
	"plc-service/internal/utils"
)

// PLCHandler handles PLC-related HTTP requests
type PLCHandler struct {
	plcService *service.PLCService
	logger     *utils.ServiceLogger
}

// NewPLCHandler creates a new PLC handler
func NewPLCHandler(plcService *service.PLCService, logger *zap.Logger) *PLCHandler {
	return &PLCHandler{
		plcService: plcService,
		logger:     utils.NewServiceLogger(logger, "plc-handler"),
	}
}

// RegisterRoutes registers PLC-related routes
func (h *PLCHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/plc")
	{
		group.GET("/status", h.GetStatus)
		group.POST("/connect", h.Connect)
		group.POST("/disconnect", h.Disconnect)
		group.POST("/read", h.Read)
		group.POST("/write", h.Write)
		group.PATCH("/fields", h.SetFields)

		fields := group.Group("/fields")
		{
			fields.GET("", h.ListFields)
			fields.GET("/:name", h.GetField)
			fields.PUT("/:name", h.SetField)
		}
	}
}

// GetStatus reports connection state, liveness and pending changes
func (h *PLCHandler) GetStatus(c *gin.Context) {
	info := h.plcService.Status()
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved successfully", info)
}

// Connect opens the device session
func (h *PLCHandler) Connect(c *gin.Context) {
	if err := h.plcService.Connect(c.Request.Context()); err != nil {
		h.logger.Error("Failed to connect", zap.Error(err))
		h.respondError(c, "Failed to connect", err)
		return
	}

	h.logger.Info("PLC connected")
	utils.SuccessResponse(c, http.StatusOK, "Connected successfully", h.plcService.Status())
}

// Disconnect releases the device session
func (h *PLCHandler) Disconnect(c *gin.Context) {
	if err := h.plcService.Disconnect(); err != nil {
		h.logger.Error("Failed to disconnect", zap.Error(err))
		h.respondError(c, "Failed to disconnect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Disconnected successfully", h.plcService.Status())
}

// Read pulls the data block from the device and returns the decoded
// field values
func (h *PLCHandler) Read(c *gin.Context) {
	snapshot, err := h.plcService.Read(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read data block", zap.Error(err))
		h.respondError(c, "Failed to read data block", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Data block read successfully", snapshot)
}

// Write flushes pending local changes to the device
func (h *PLCHandler) Write(c *gin.Context) {
	pending := h.plcService.Status().DirtyFields
	if err := h.plcService.Write(c.Request.Context()); err != nil {
		h.logger.Error("Failed to write data block", zap.Error(err))
		h.respondError(c, "Failed to write data block", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Data block written successfully", gin.H{
		"written_fields": pending,
	})
}

// ListFields returns the schema's field definitions in declaration order
func (h *PLCHandler) ListFields(c *gin.Context) {
	fields := h.plcService.Fields()
	utils.SuccessResponse(c, http.StatusOK, "Fields retrieved successfully", gin.H{
		"fields": fields,
		"count":  len(fields),
	})
}

// GetField returns the cached value of a single field
func (h *PLCHandler) GetField(c *gin.Context) {
	name := c.Param("name")

	value, err := h.plcService.Get(name)
	if err != nil {
		h.respondError(c, "Failed to get field", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Field retrieved successfully", gin.H{
		"name":  name,
		"value": value,
	})
}

// SetFieldRequest represents a single field update
type SetFieldRequest struct {
	Value any `json:"value" binding:"required"`
}

// SetField updates one settable field locally, marking it for the
// next write
func (h *PLCHandler) SetField(c *gin.Context) {
	name := c.Param("name")

	var req SetFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.plcService.Set(name, req.Value); err != nil {
		h.logger.Error("Failed to set field", zap.Error(err), zap.String("field", name))
		h.respondError(c, "Failed to set field", err)
		return
	}

	value, _ := h.plcService.Get(name)
	utils.SuccessResponse(c, http.StatusOK, "Field set successfully", gin.H{
		"name":  name,
		"value": value,
	})
}

// SetFieldsRequest represents a batch field update
type SetFieldsRequest struct {
	Values map[string]any `json:"values" binding:"required"`
}

// SetFields applies several field updates in one call. Values equal
// to the cache are skipped; the response reports whether anything
// actually changed.
func (h *PLCHandler) SetFields(c *gin.Context) {
	var req SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	changed, err := h.plcService.SetMany(req.Values)
	if err != nil {
		h.logger.Error("Failed to set fields", zap.Error(err))
		h.respondError(c, "Failed to set fields", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Fields set successfully", gin.H{
		"changed": changed,
	})
}

// respondError maps domain errors to HTTP status codes
func (h *PLCHandler) respondError(c *gin.Context, message string, err error) {
	var transportErr *plc.TransportError

	switch {
	case errors.Is(err, plc.ErrUnknownField):
		utils.ErrorResponse(c, http.StatusNotFound, message, err)
	case errors.Is(err, plc.ErrImmutableField):
		utils.ErrorResponse(c, http.StatusForbidden, message, err)
	case errors.Is(err, plc.ErrTypeMismatch):
		utils.ErrorResponse(c, http.StatusBadRequest, message, err)
	case errors.Is(err, plc.ErrNotConnected),
		errors.Is(err, plc.ErrAlreadyConnected),
		errors.Is(err, plc.ErrUninitializedField):
		utils.ErrorResponse(c, http.StatusConflict, message, err)
	case errors.As(err, &transportErr):
		utils.ErrorResponse(c, http.StatusBadGateway, message, err)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, message, err)
	}
}
