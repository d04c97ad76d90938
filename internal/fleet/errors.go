package fleet

import "errors"

// Domain errors for the fleet package.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, fleet.ErrNotFound) {
//	    // handle unknown id
//	}
var (
	// ErrNotFound is returned when an id matches no vehicle, model or consist.
	ErrNotFound = errors.New("fleet: not found")

	// ErrInvalidID is returned when an id or name is empty.
	ErrInvalidID = errors.New("fleet: invalid id")

	// ErrAddressRange is returned when a DCC address is outside 1-127.
	ErrAddressRange = errors.New("fleet: address out of range")

	// ErrAddressInUse is returned when a DCC address already belongs to
	// a different vehicle or consist.
	ErrAddressInUse = errors.New("fleet: address in use")

	// ErrUnknownFunction is returned when a device name is not defined
	// by the vehicle's model.
	ErrUnknownFunction = errors.New("fleet: unknown function")

	// ErrInvalidMode is returned when a consist member mode is not one
	// of forward, reverse, idle or disabled.
	ErrInvalidMode = errors.New("fleet: invalid consist mode")

	// ErrNotAssigned is returned when removing a vehicle that belongs
	// to no consist.
	ErrNotAssigned = errors.New("fleet: vehicle not assigned")
)
