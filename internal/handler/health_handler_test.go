// internal/handler/health_handler_test.go
package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plc-service/internal/config"
	"plc-service/internal/plc"
	"plc-service/internal/service"
	"plc-service/internal/transport/sim"
)

func newHealthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	schema, err := plc.NewSchemaBuilder().
		Add(plc.FieldSpec{Name: "status", Type: plc.TypeBool, ByteOffset: 0}).
		Build()
	require.NoError(t, err)

	tr := sim.NewTransport(map[int][]byte{1: {0x00}}, zap.NewNop())
	cfg := &config.Config{
		PLC: config.PLCConfig{DBNumber: 1, LivenessWindow: 2 * time.Second},
		App: config.AppConfig{Name: "plc-service", Version: "1.0.0"},
	}
	conn := plc.NewConnection(schema, tr, cfg.PLC.DBNumber, zap.NewNop())
	svc := service.NewPLCService(conn, &cfg.PLC, zap.NewNop())
	wsHandler := NewWebSocketHandler(svc, zap.NewNop())

	router := gin.New()
	NewHealthHandler(svc, wsHandler, cfg, zap.NewNop()).RegisterRoutes(router.Group(""))
	return router
}

func TestHealthCheckDegradedWhileDisconnected(t *testing.T) {
	router := newHealthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "plc-service", health.Service)

	plcCheck := health.Checks["plc"]
	assert.Equal(t, "degraded", plcCheck.Status)
	assert.Equal(t, string(plc.StateDisconnected), plcCheck.Data["state"])

	wsCheck := health.Checks["websocket"]
	assert.Equal(t, "healthy", wsCheck.Status)
	assert.EqualValues(t, 0, wsCheck.Data["clients"])
}

func TestLivenessAndReadinessProbes(t *testing.T) {
	router := newHealthRouter(t)

	for _, path := range []string{"/live", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
