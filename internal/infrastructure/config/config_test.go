package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
service:
  id: "layout-attic"
  name: "Attic Layout"
dcc:
  pidcc:
    binary: "/opt/pidcc/bin/pidcc"
  gpio:
    pin_a: 17
    pin_b: 27
  depot:
    path: "/var/lib/housedcc/fleet.json"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "housedcc-attic"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8123
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "layout-attic" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "layout-attic")
	}
	if cfg.DCC.Pidcc.Binary != "/opt/pidcc/bin/pidcc" {
		t.Errorf("Pidcc.Binary = %q, want override", cfg.DCC.Pidcc.Binary)
	}
	if cfg.DCC.Gpio.PinA != 17 || cfg.DCC.Gpio.PinB != 27 {
		t.Errorf("Gpio = %d/%d, want 17/27", cfg.DCC.Gpio.PinA, cfg.DCC.Gpio.PinB)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.local", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 8123 {
		t.Errorf("API.Port = %d, want 8123", cfg.API.Port)
	}

	// Unset sections keep their defaults.
	if cfg.DCC.Pidcc.RestartDelaySeconds != 5 {
		t.Errorf("RestartDelaySeconds = %d, want default 5", cfg.DCC.Pidcc.RestartDelaySeconds)
	}
	if cfg.DCC.Capture.Capacity != 256 {
		t.Errorf("Capture.Capacity = %d, want default 256", cfg.DCC.Capture.Capacity)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	// An empty file is valid: everything comes from defaults, with no
	// GPIO pins configured (dry run).
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.ID != "housedcc" {
		t.Errorf("Service.ID = %q, want default housedcc", cfg.Service.ID)
	}
	if cfg.DCC.Gpio.PinA != 0 || cfg.DCC.Gpio.PinB != 0 {
		t.Errorf("Gpio = %d/%d, want unconfigured", cfg.DCC.Gpio.PinA, cfg.DCC.Gpio.PinB)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of missing file = nil error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "service: [unclosed")); err == nil {
		t.Error("Load() of invalid YAML = nil error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOUSEDCC_MQTT_HOST", "env-broker")
	t.Setenv("HOUSEDCC_API_PORT", "9999")
	t.Setenv("HOUSEDCC_GPIO_PIN_A", "5")
	t.Setenv("HOUSEDCC_GPIO_PIN_B", "6")

	cfg, err := Load(writeConfig(t, `
mqtt:
  broker:
    host: "file-broker"
api:
  port: 8080
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want env override 9999", cfg.API.Port)
	}
	if cfg.DCC.Gpio.PinA != 5 || cfg.DCC.Gpio.PinB != 6 {
		t.Errorf("Gpio = %d/%d, want env override 5/6", cfg.DCC.Gpio.PinA, cfg.DCC.Gpio.PinB)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"missing service id", func(c *Config) { c.Service.ID = "" }, "service.id"},
		{"missing binary", func(c *Config) { c.DCC.Pidcc.Binary = "" }, "pidcc.binary"},
		{"half gpio pair", func(c *Config) { c.DCC.Gpio.PinA = 17 }, "both pins"},
		{"negative pin", func(c *Config) { c.DCC.Gpio.PinA = -1; c.DCC.Gpio.PinB = 2 }, "negative"},
		{"missing depot path", func(c *Config) { c.DCC.Depot.Path = "" }, "depot.path"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, "influxdb.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := defaultConfig()
	if cfg.GetReadTimeout().Seconds() != 30 {
		t.Errorf("GetReadTimeout = %v, want 30s", cfg.GetReadTimeout())
	}
	if cfg.GetIdleTimeout().Seconds() != 60 {
		t.Errorf("GetIdleTimeout = %v, want 60s", cfg.GetIdleTimeout())
	}
}
