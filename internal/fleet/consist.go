package fleet

import "fmt"

// consistIndex returns the slot of the consist with the given id, or -1.
// Callers must hold the lock.
func (r *Registry) consistIndex(id string) int {
	for i := range r.consists {
		if r.consists[i].ID != "" && r.consists[i].ID == id {
			return i
		}
	}
	return -1
}

// releaseMembers clears the consist assignment of every member vehicle.
// Callers must hold the write lock.
func (r *Registry) releaseMembers(consistID string) {
	for i := range r.vehicles {
		if r.vehicles[i].Consist == consistID {
			r.vehicles[i].Consist = ""
			r.vehicles[i].Mode = ""
		}
	}
}

// DeclareConsist creates or updates a consist.
//
// The address follows the same 1-127 rule as vehicles and must not be
// used by another consist. Re-declaring an existing id updates the
// address and keeps the membership.
func (r *Registry) DeclareConsist(id string, address int) error {
	id = clampName(id)
	if id == "" {
		return ErrInvalidID
	}
	if address < MinAddress || address > MaxAddress {
		return fmt.Errorf("%w: %d", ErrAddressRange, address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.consists {
		if r.consists[i].ID == "" {
			continue
		}
		if r.consists[i].Address == address && r.consists[i].ID != id {
			return fmt.Errorf("%w: %d (consist %s)", ErrAddressInUse, address, r.consists[i].ID)
		}
	}

	if i := r.consistIndex(id); i >= 0 {
		r.consists[i].Address = address
		r.bumped()
		r.logger.Info("consist updated", "consist", id, "address", address)
		return nil
	}

	consist := Consist{ID: id, Address: address}
	for i := range r.consists {
		if r.consists[i].ID == "" {
			r.consists[i] = consist
			r.bumped()
			r.logger.Info("consist declared", "consist", id, "address", address)
			return nil
		}
	}
	r.consists = append(r.consists, consist)
	r.bumped()
	r.logger.Info("consist declared", "consist", id, "address", address)
	return nil
}

// Assign puts a vehicle into a consist with the given role. A vehicle
// belongs to at most one consist; assigning moves it.
func (r *Registry) Assign(consistID, vehicleID string, mode Mode) error {
	consistID = clampName(consistID)
	vehicleID = clampName(vehicleID)

	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.consistIndex(consistID) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, consistID)
	}
	i := r.vehicleIndex(vehicleID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, vehicleID)
	}

	r.vehicles[i].Consist = consistID
	r.vehicles[i].Mode = mode
	r.bumped()
	r.logger.Info("consist assign", "consist", consistID, "vehicle", vehicleID, "mode", mode)
	return nil
}

// Remove takes a vehicle out of its consist.
func (r *Registry) Remove(vehicleID string) error {
	vehicleID = clampName(vehicleID)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.vehicleIndex(vehicleID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, vehicleID)
	}
	if r.vehicles[i].Consist == "" {
		return fmt.Errorf("%w: %s", ErrNotAssigned, vehicleID)
	}

	r.logger.Info("consist remove", "consist", r.vehicles[i].Consist, "vehicle", vehicleID)
	r.vehicles[i].Consist = ""
	r.vehicles[i].Mode = ""
	r.bumped()
	return nil
}

// moveConsist applies a clamped speed to every traction member.
// Forward members get the speed as-is, reverse members negated, idle
// and disabled members are skipped. Callers must hold the write lock.
func (r *Registry) moveConsist(i, speed int) error {
	consist := &r.consists[i]
	consist.Speed = speed
	r.bumped()
	r.logger.Info("consist move", "consist", consist.ID, "speed", speed)

	var firstErr error
	for v := range r.vehicles {
		vehicle := &r.vehicles[v]
		if vehicle.ID == "" || vehicle.Consist != consist.ID {
			continue
		}
		memberSpeed := 0
		switch vehicle.Mode {
		case ModeForward:
			memberSpeed = speed
		case ModeReverse:
			memberSpeed = -speed
		default:
			continue
		}
		vehicle.Speed = memberSpeed
		if err := r.commander.Move(vehicle.Address, memberSpeed); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// stopConsist halts every member except disabled ones.
// Callers must hold the write lock.
func (r *Registry) stopConsist(i int, emergency bool) error {
	consist := &r.consists[i]
	consist.Speed = 0
	r.bumped()
	r.logger.Info("consist stop", "consist", consist.ID, "emergency", emergency)

	var firstErr error
	for v := range r.vehicles {
		vehicle := &r.vehicles[v]
		if vehicle.ID == "" || vehicle.Consist != consist.ID || vehicle.Mode == ModeDisabled {
			continue
		}
		vehicle.Speed = 0
		if err := r.commander.Stop(vehicle.Address, emergency); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
