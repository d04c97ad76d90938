package dcc

import "errors"

// Encoding errors.
var (
	// ErrSpeedRange indicates a speed magnitude above the 28 steps the
	// baseline speed instruction can express.
	ErrSpeedRange = errors.New("dcc: speed out of range")

	// ErrFunctionIndex indicates a function index outside F1-F12/FL.
	ErrFunctionIndex = errors.New("dcc: function index out of range")

	// ErrAccessoryRange indicates an accessory address outside 0-511.
	ErrAccessoryRange = errors.New("dcc: accessory address out of range")
)
