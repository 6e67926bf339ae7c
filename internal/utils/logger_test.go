// internal/utils/logger_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"plc-service/internal/config"
)

func TestLogServiceStartIncludesVersionAndConfig(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sl := NewServiceLogger(zap.New(core), "test-service")

	cfg := &config.Config{App: config.AppConfig{Name: "plc-service", Version: "1.0.0"}}
	sl.LogServiceStart("1.0.0", cfg)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Service starting", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "test-service", fields["service"])
	assert.Equal(t, "1.0.0", fields["version"])
	assert.Contains(t, fields, "config")
}

func TestLoggerWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	logger := LoggerWithRequestID(zap.New(core), "req-123")
	logger.Info("something happened")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	_, err := parseLevel("loud")
	assert.Error(t, err)

	level, err := parseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)
}
