// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"plc-service/internal/plc"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	PLC     PLCConfig     `mapstructure:"plc"`
	Schema  []FieldConfig `mapstructure:"schema"`
	App     AppConfig     `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PLCConfig represents the device endpoint and synchronization
// settings. Address parameters pass through to the transport
// unmodified.
type PLCConfig struct {
	Address         string        `mapstructure:"address"`
	Port            int           `mapstructure:"port"`
	Rack            int           `mapstructure:"rack"`
	Slot            int           `mapstructure:"slot"`
	DBNumber        int           `mapstructure:"db_number"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LivenessWindow  time.Duration `mapstructure:"liveness_window"`
	Simulate        bool          `mapstructure:"simulate"`
	AutoConnect     bool          `mapstructure:"auto_connect"`
}

// FieldConfig represents one declarative field mapping in the schema
// section of the config file
type FieldConfig struct {
	Name       string `mapstructure:"name"`
	Type       string `mapstructure:"type"`
	ByteOffset int    `mapstructure:"byte_offset"`
	BitOffset  uint8  `mapstructure:"bit_offset"`
	Settable   bool   `mapstructure:"settable"`
	Default    any    `mapstructure:"default"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.SetEnvPrefix("PLC_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// tolerated; the schema section still has to come from somewhere,
		// so validation below catches a truly missing file
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8086")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// PLC defaults
	viper.SetDefault("plc.address", "127.0.0.1")
	viper.SetDefault("plc.port", 102)
	viper.SetDefault("plc.rack", 0)
	viper.SetDefault("plc.slot", 1)
	viper.SetDefault("plc.db_number", 1)
	viper.SetDefault("plc.connect_timeout", "1500ms")
	viper.SetDefault("plc.read_timeout", "2s")
	viper.SetDefault("plc.write_timeout", "2s")
	viper.SetDefault("plc.poll_interval", "0")
	viper.SetDefault("plc.liveness_window", "2s")
	viper.SetDefault("plc.simulate", false)
	viper.SetDefault("plc.auto_connect", false)

	// App defaults
	viper.SetDefault("app.name", "plc-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.PLC.Address == "" {
		return fmt.Errorf("plc.address is required")
	}
	if config.PLC.DBNumber < 0 {
		return fmt.Errorf("plc.db_number must not be negative")
	}
	if len(config.Schema) == 0 {
		return fmt.Errorf("schema must declare at least one field")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	// schema declarations fail fast here, before any connection exists
	if _, err := BuildSchema(config.Schema); err != nil {
		return err
	}

	return nil
}

// BuildSchema converts the declarative schema section into an
// immutable field schema
func BuildSchema(fields []FieldConfig) (*plc.Schema, error) {
	builder := plc.NewSchemaBuilder()
	for _, fc := range fields {
		tag, err := plc.ParseTypeTag(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fc.Name, err)
		}
		builder.Add(plc.FieldSpec{
			Name:       fc.Name,
			Type:       tag,
			ByteOffset: fc.ByteOffset,
			BitOffset:  fc.BitOffset,
			Settable:   fc.Settable,
			Default:    fc.Default,
		})
	}
	return builder.Build()
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
