// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plc-service/internal/plc"
)

func TestBuildSchemaFromDeclarations(t *testing.T) {
	schema, err := BuildSchema([]FieldConfig{
		{Name: "temperature", Type: "REAL", ByteOffset: 0},
		{Name: "pressure", Type: "WORD", ByteOffset: 4},
		{Name: "status", Type: "BOOL", ByteOffset: 6, BitOffset: 0, Settable: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, schema.BufferLength())

	f, err := schema.Lookup("status")
	require.NoError(t, err)
	assert.True(t, f.Settable)
	assert.Equal(t, plc.TypeBool, f.Type)
}

func TestBuildSchemaRejectsUnknownType(t *testing.T) {
	_, err := BuildSchema([]FieldConfig{
		{Name: "x", Type: "STRING", ByteOffset: 0},
	})
	assert.ErrorIs(t, err, plc.ErrUnknownType)
}

func TestBuildSchemaRejectsDuplicates(t *testing.T) {
	_, err := BuildSchema([]FieldConfig{
		{Name: "x", Type: "WORD", ByteOffset: 0},
		{Name: "x", Type: "WORD", ByteOffset: 2},
	})
	assert.ErrorIs(t, err, plc.ErrDuplicateField)
}

func TestBuildSchemaCarriesDefaults(t *testing.T) {
	schema, err := BuildSchema([]FieldConfig{
		{Name: "mode", Type: "BYTE", ByteOffset: 0, Settable: true, Default: 1},
	})
	require.NoError(t, err)

	f, err := schema.Lookup("mode")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Default)
}

func TestValidateCatchesBadSchemaEarly(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: "8086"},
		Logging: LoggingConfig{Level: "info"},
		PLC:     PLCConfig{Address: "10.0.0.5", DBNumber: 1},
		App:     AppConfig{Environment: "test"},
		Schema: []FieldConfig{
			{Name: "w", Type: "WORD", ByteOffset: 0, BitOffset: 3},
		},
	}
	assert.ErrorIs(t, validate(cfg), plc.ErrFieldRange)

	cfg.Schema = []FieldConfig{{Name: "w", Type: "WORD", ByteOffset: 0}}
	assert.NoError(t, validate(cfg))

	cfg.Schema = nil
	assert.Error(t, validate(cfg))
}
