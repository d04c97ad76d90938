package pidcc

import (
	"fmt"
	"time"
)

// Config holds the configuration for the pidcc worker link.
type Config struct {
	// Binary is the path to the pidcc executable.
	// Default: "/usr/local/bin/pidcc"
	Binary string `yaml:"binary"`

	// Args are extra command-line arguments for the worker.
	Args []string `yaml:"args"`

	// PinA and PinB are the BCM numbers of the GPIO pair driving the
	// track. Both 0 means unconfigured: the worker is not launched and
	// the link runs dry.
	PinA int `yaml:"pin_a"`
	PinB int `yaml:"pin_b"`

	// RestartDelay is the constant relaunch interval after the worker
	// exits. Default: 5s.
	RestartDelay time.Duration `yaml:"restart_delay"`

	// GracefulTimeout is how long to wait for the worker to exit on
	// SIGTERM before SIGKILL. Default: 5s.
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`

	// ReadinessTimeout is how long a busy or queue-full report stays
	// trusted before the link falls back to idle. Default: 3s.
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`

	// TickInterval is the cadence of the periodic deadline check.
	// Default: 1s.
	TickInterval time.Duration `yaml:"tick_interval"`
}

// DefaultConfig returns a Config with sensible defaults and no pins.
func DefaultConfig() Config {
	return Config{
		Binary:           "/usr/local/bin/pidcc",
		RestartDelay:     5 * time.Second,
		GracefulTimeout:  5 * time.Second,
		ReadinessTimeout: 3 * time.Second,
		TickInterval:     time.Second,
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("pidcc: binary path is required")
	}
	if (c.PinA == 0) != (c.PinB == 0) {
		return fmt.Errorf("%w: need both pins or neither (got %d, %d)", ErrInvalidPins, c.PinA, c.PinB)
	}
	if c.PinA < 0 || c.PinB < 0 {
		return fmt.Errorf("%w: negative pin (got %d, %d)", ErrInvalidPins, c.PinA, c.PinB)
	}
	if c.PinA != 0 && c.PinA == c.PinB {
		return fmt.Errorf("%w: pins must differ (got %d twice)", ErrInvalidPins, c.PinA)
	}
	return nil
}

// configured reports whether a GPIO pin pair is set.
func (c *Config) configured() bool {
	return c.PinA > 0 && c.PinB > 0
}
