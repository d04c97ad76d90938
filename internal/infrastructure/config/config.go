package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for HouseDCC.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	DCC       DCCConfig       `yaml:"dcc"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig identifies this HouseDCC instance.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DCCConfig groups the track-side settings.
type DCCConfig struct {
	Pidcc   PidccConfig   `yaml:"pidcc"`
	Gpio    GpioConfig    `yaml:"gpio"`
	Depot   DepotConfig   `yaml:"depot"`
	Capture CaptureConfig `yaml:"capture"`
}

// PidccConfig contains the pidcc worker settings.
type PidccConfig struct {
	// Binary is the path to the pidcc executable.
	// Default: "/usr/local/bin/pidcc"
	Binary string `yaml:"binary"`

	// Args are extra command-line arguments for the worker.
	Args []string `yaml:"args"`

	// RestartDelaySeconds is the constant relaunch interval after the
	// worker exits. Default: 5
	RestartDelaySeconds int `yaml:"restart_delay_seconds"`

	// GracefulTimeoutSeconds is how long to wait on SIGTERM before
	// SIGKILL. Default: 5
	GracefulTimeoutSeconds int `yaml:"graceful_timeout_seconds"`

	// ReadinessTimeoutSeconds is how long a busy or queue-full report
	// stays trusted. Default: 3
	ReadinessTimeoutSeconds int `yaml:"readiness_timeout_seconds"`
}

// GpioConfig names the GPIO pin pair driving the track.
// Both zero means no track output: the service runs dry.
type GpioConfig struct {
	PinA int `yaml:"pin_a"`
	PinB int `yaml:"pin_b"`
}

// DepotConfig contains fleet snapshot persistence settings.
type DepotConfig struct {
	// Path is the snapshot file location.
	// Default: "./data/fleet.json"
	Path string `yaml:"path"`
}

// CaptureConfig contains flight recorder settings.
type CaptureConfig struct {
	// Capacity is the event ring size. Default: 256
	Capacity int `yaml:"capacity"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the
// flight-recorder mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOUSEDCC_SECTION_KEY
// For example: HOUSEDCC_MQTT_HOST, HOUSEDCC_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "housedcc",
			Name: "HouseDCC",
		},
		DCC: DCCConfig{
			Pidcc: PidccConfig{
				Binary:                  "/usr/local/bin/pidcc",
				RestartDelaySeconds:     5,
				GracefulTimeoutSeconds:  5,
				ReadinessTimeoutSeconds: 3,
			},
			Depot: DepotConfig{
				Path: "./data/fleet.json",
			},
			Capture: CaptureConfig{
				Capacity: 256,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "housedcc",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOUSEDCC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Service
	if v := os.Getenv("HOUSEDCC_SERVICE_ID"); v != "" {
		cfg.Service.ID = v
	}

	// DCC
	if v := os.Getenv("HOUSEDCC_PIDCC_BINARY"); v != "" {
		cfg.DCC.Pidcc.Binary = v
	}
	if v := os.Getenv("HOUSEDCC_GPIO_PIN_A"); v != "" {
		if pin, err := strconv.Atoi(v); err == nil {
			cfg.DCC.Gpio.PinA = pin
		}
	}
	if v := os.Getenv("HOUSEDCC_GPIO_PIN_B"); v != "" {
		if pin, err := strconv.Atoi(v); err == nil {
			cfg.DCC.Gpio.PinB = pin
		}
	}
	if v := os.Getenv("HOUSEDCC_DEPOT_PATH"); v != "" {
		cfg.DCC.Depot.Path = v
	}

	// MQTT
	if v := os.Getenv("HOUSEDCC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOUSEDCC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOUSEDCC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HOUSEDCC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOUSEDCC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("HOUSEDCC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.DCC.Pidcc.Binary == "" {
		errs = append(errs, "dcc.pidcc.binary is required")
	}
	if (c.DCC.Gpio.PinA == 0) != (c.DCC.Gpio.PinB == 0) {
		errs = append(errs, "dcc.gpio needs both pins or neither")
	}
	if c.DCC.Gpio.PinA < 0 || c.DCC.Gpio.PinB < 0 {
		errs = append(errs, "dcc.gpio pins must not be negative")
	}
	if c.DCC.Depot.Path == "" {
		errs = append(errs, "dcc.depot.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
