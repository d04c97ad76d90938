package pidcc

import "errors"

// Link errors.
var (
	// ErrNotConfigured is returned when a command is issued while no
	// GPIO pin pair is configured (dry-run mode).
	ErrNotConfigured = errors.New("pidcc: no gpio pins configured")

	// ErrNotRunning is returned when the worker is down and cannot
	// accept a command.
	ErrNotRunning = errors.New("pidcc: worker not running")

	// ErrQueueFull is returned when the worker reported a full queue
	// and the command is not a stop.
	ErrQueueFull = errors.New("pidcc: worker queue full")

	// ErrAddressRange is returned for DCC addresses the command cannot
	// carry.
	ErrAddressRange = errors.New("pidcc: address out of range")

	// ErrInvalidPins is returned when a pin pair is rejected.
	ErrInvalidPins = errors.New("pidcc: invalid gpio pins")
)
