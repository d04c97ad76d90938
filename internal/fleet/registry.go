package fleet

import (
	"fmt"
	"sync"

	"github.com/pascal-fb-martin/housedcc/internal/dcc"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Commander sends track commands. It is implemented by the pidcc link;
// tests substitute a recorder.
type Commander interface {
	// Move sends a speed instruction to a mobile decoder address.
	Move(address, speed int) error

	// Stop sends a stop to one address, or to every decoder when the
	// address is 0.
	Stop(address int, emergency bool) error

	// Function sends an already encoded grouped function instruction.
	Function(address int, instruction byte) error
}

// Registry holds the fleet state and drives it through a Commander.
//
// All public methods are thread-safe. Commands are issued while the
// registry lock is held so stored state and track state change in the
// same order.
type Registry struct {
	mu       sync.RWMutex
	models   []Model
	vehicles []Vehicle
	consists []Consist
	revision uint64

	commander Commander
	logger    Logger
}

// New creates an empty registry driving the given commander.
func New(commander Commander) *Registry {
	return &Registry{
		commander: commander,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Revision returns the change counter. It increases on every mutation,
// so clients can cheaply detect that nothing changed.
func (r *Registry) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// bumped marks a mutation. Callers must hold the write lock.
func (r *Registry) bumped() {
	r.revision++
}

// modelIndex returns the slot of the named model, or -1.
// Callers must hold the lock. Tombstones (empty name) never match.
func (r *Registry) modelIndex(name string) int {
	for i := range r.models {
		if r.models[i].Name != "" && r.models[i].Name == name {
			return i
		}
	}
	return -1
}

// vehicleIndex returns the slot of the vehicle with the given id, or -1.
// Callers must hold the lock.
func (r *Registry) vehicleIndex(id string) int {
	for i := range r.vehicles {
		if r.vehicles[i].ID != "" && r.vehicles[i].ID == id {
			return i
		}
	}
	return -1
}

// DeclareModel creates or updates a decoder model.
//
// An existing model with the same name is updated in place; vehicles
// referencing it pick up the new function list immediately. The
// function list is capped at MaxFunctions, extra entries are dropped.
func (r *Registry) DeclareModel(name, kind string, functions []Function) error {
	name = clampName(name)
	if name == "" {
		return ErrInvalidID
	}

	if len(functions) > MaxFunctions {
		r.logger.Warn("model function list truncated",
			"model", name, "declared", len(functions), "kept", MaxFunctions)
		functions = functions[:MaxFunctions]
	}
	kept := make([]Function, len(functions))
	copy(kept, functions)

	model := Model{Name: name, Kind: ParseKind(kind), Functions: kept}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.modelIndex(name); i >= 0 {
		r.models[i] = model
		r.bumped()
		r.logger.Info("model updated", "model", name, "kind", model.Kind)
		return nil
	}

	// Reuse the first tombstone before growing.
	for i := range r.models {
		if r.models[i].Name == "" {
			r.models[i] = model
			r.bumped()
			r.logger.Info("model declared", "model", name, "kind", model.Kind)
			return nil
		}
	}
	r.models = append(r.models, model)
	r.bumped()
	r.logger.Info("model declared", "model", name, "kind", model.Kind)
	return nil
}

// AddVehicle creates or updates a vehicle.
//
// The address must be 1-127 and not in use by a different vehicle.
// Re-adding an existing id updates its model and address and resets its
// live state: speed zero, all functions off, consist assignment cleared.
func (r *Registry) AddVehicle(id, model string, address int) error {
	id = clampName(id)
	if id == "" {
		return ErrInvalidID
	}
	if address < MinAddress || address > MaxAddress {
		return fmt.Errorf("%w: %d", ErrAddressRange, address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.vehicles {
		if r.vehicles[i].ID == "" {
			continue
		}
		if r.vehicles[i].Address == address && r.vehicles[i].ID != id {
			return fmt.Errorf("%w: %d (vehicle %s)", ErrAddressInUse, address, r.vehicles[i].ID)
		}
	}

	vehicle := Vehicle{ID: id, Model: clampName(model), Address: address}

	if i := r.vehicleIndex(id); i >= 0 {
		r.vehicles[i] = vehicle
		r.bumped()
		r.logger.Info("vehicle updated", "vehicle", id, "address", address, "model", model)
		return nil
	}

	for i := range r.vehicles {
		if r.vehicles[i].ID == "" {
			r.vehicles[i] = vehicle
			r.bumped()
			r.logger.Info("vehicle added", "vehicle", id, "address", address, "model", model)
			return nil
		}
	}
	r.vehicles = append(r.vehicles, vehicle)
	r.bumped()
	r.logger.Info("vehicle added", "vehicle", id, "address", address, "model", model)
	return nil
}

// Delete removes the entry with the given id: vehicles are searched
// first, then models, then consists. The slot is cleared in place and
// reused by the next declaration.
func (r *Registry) Delete(id string) error {
	id = clampName(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.vehicleIndex(id); i >= 0 {
		r.vehicles[i] = Vehicle{}
		r.bumped()
		r.logger.Info("vehicle deleted", "vehicle", id)
		return nil
	}
	if i := r.modelIndex(id); i >= 0 {
		r.models[i] = Model{}
		r.bumped()
		r.logger.Info("model deleted", "model", id)
		return nil
	}
	if i := r.consistIndex(id); i >= 0 {
		r.releaseMembers(id)
		r.consists[i] = Consist{}
		r.bumped()
		r.logger.Info("consist deleted", "consist", id)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Find returns the vehicle with the given id.
func (r *Registry) Find(id string) (Vehicle, bool) {
	id = clampName(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.vehicleIndex(id); i >= 0 {
		return r.vehicles[i], true
	}
	return Vehicle{}, false
}

// FindByAddress returns the vehicle using the given DCC address.
func (r *Registry) FindByAddress(address int) (Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.vehicles {
		if r.vehicles[i].ID != "" && r.vehicles[i].Address == address {
			return r.vehicles[i], true
		}
	}
	return Vehicle{}, false
}

// FindModel returns the named model.
func (r *Registry) FindModel(name string) (Model, bool) {
	name = clampName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.modelIndex(name); i >= 0 {
		return r.models[i], true
	}
	return Model{}, false
}

// Move sets the speed of a vehicle or consist.
//
// The requested speed is clamped to the registry range before it is
// stored. The clamp is wider than the encoder's 28-step limit, so a
// clamped 29-31 updates the registry yet fails to transmit; the error
// reports the transmit failure.
func (r *Registry) Move(id string, speed int) error {
	id = clampName(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	clamped := clampSpeed(speed)

	if i := r.vehicleIndex(id); i >= 0 {
		r.vehicles[i].Speed = clamped
		r.bumped()
		r.logger.Info("move", "vehicle", id, "address", r.vehicles[i].Address, "speed", clamped)
		return r.commander.Move(r.vehicles[i].Address, clamped)
	}
	if i := r.consistIndex(id); i >= 0 {
		return r.moveConsist(i, clamped)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Stop halts a vehicle or consist. Emergency stops cut power to the
// motor immediately instead of using the decoder's deceleration curve.
// Stop is never gated on transport readiness.
func (r *Registry) Stop(id string, emergency bool) error {
	id = clampName(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.vehicleIndex(id); i >= 0 {
		r.vehicles[i].Speed = 0
		r.bumped()
		r.logger.Info("stop", "vehicle", id, "address", r.vehicles[i].Address, "emergency", emergency)
		return r.commander.Stop(r.vehicles[i].Address, emergency)
	}
	if i := r.consistIndex(id); i >= 0 {
		return r.stopConsist(i, emergency)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// StopAll broadcasts a stop to every decoder on the track and zeroes
// every stored speed.
func (r *Registry) StopAll(emergency bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.vehicles {
		r.vehicles[i].Speed = 0
	}
	for i := range r.consists {
		r.consists[i].Speed = 0
	}
	r.bumped()
	r.logger.Warn("stop all", "emergency", emergency)
	return r.commander.Stop(0, emergency)
}

// SetFunction switches a named decoder function of a vehicle.
//
// The name is resolved through the vehicle's model. The whole function
// group the index belongs to is retransmitted, carrying the updated
// mask bit.
func (r *Registry) SetFunction(id, name string, active bool) error {
	id = clampName(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.vehicleIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	vehicle := &r.vehicles[i]

	index := -1
	if m := r.modelIndex(vehicle.Model); m >= 0 {
		for _, f := range r.models[m].Functions {
			if f.Name == name {
				index = f.Index
				break
			}
		}
	}
	// An index of zero or less marks a declared but unassigned
	// function: it has no mask bit and cannot be driven.
	if index <= 0 {
		return fmt.Errorf("%w: %s on %s", ErrUnknownFunction, name, id)
	}

	bit := uint16(1) << (index - 1)
	if active {
		vehicle.Functions |= bit
	} else {
		vehicle.Functions &^= bit
	}
	r.bumped()

	instruction, err := dcc.Function(vehicle.Functions, index)
	if err != nil {
		return err
	}
	r.logger.Info("function", "vehicle", id, "device", name, "active", active)
	return r.commander.Function(vehicle.Address, instruction)
}
