package fleet

// DeviceState is the resolved on/off state of one named decoder
// function of a vehicle.
type DeviceState struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// VehicleStatus is the live view of one vehicle.
type VehicleStatus struct {
	ID      string        `json:"id"`
	Model   string        `json:"model,omitempty"`
	Address int           `json:"address"`
	Speed   int           `json:"speed"`
	Consist string        `json:"consist,omitempty"`
	Mode    string        `json:"mode,omitempty"`
	Devices []DeviceState `json:"devices,omitempty"`
}

// ConsistStatus is the live view of one consist.
type ConsistStatus struct {
	ID      string   `json:"id"`
	Address int      `json:"address"`
	Speed   int      `json:"speed"`
	Members []string `json:"members,omitempty"`
}

// Status is the JSON-ready live view of the fleet.
type Status struct {
	Revision uint64          `json:"revision"`
	Vehicles []VehicleStatus `json:"vehicles"`
	Consists []ConsistStatus `json:"consists,omitempty"`
}

// Status reports the live state of every vehicle and consist.
// Tombstone slots are skipped. Device states are resolved through each
// vehicle's model; a vehicle with an unknown model lists no devices.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := Status{
		Revision: r.revision,
		Vehicles: make([]VehicleStatus, 0, len(r.vehicles)),
	}

	for i := range r.vehicles {
		vehicle := &r.vehicles[i]
		if vehicle.ID == "" {
			continue
		}
		vs := VehicleStatus{
			ID:      vehicle.ID,
			Model:   vehicle.Model,
			Address: vehicle.Address,
			Speed:   vehicle.Speed,
			Consist: vehicle.Consist,
			Mode:    string(vehicle.Mode),
		}
		if m := r.modelIndex(vehicle.Model); m >= 0 {
			for _, f := range r.models[m].Functions {
				if f.Index <= 0 {
					continue
				}
				vs.Devices = append(vs.Devices, DeviceState{
					Name:   f.Name,
					Active: vehicle.Functions&(uint16(1)<<(f.Index-1)) != 0,
				})
			}
		}
		status.Vehicles = append(status.Vehicles, vs)
	}

	for i := range r.consists {
		consist := &r.consists[i]
		if consist.ID == "" {
			continue
		}
		cs := ConsistStatus{ID: consist.ID, Address: consist.Address, Speed: consist.Speed}
		for v := range r.vehicles {
			if r.vehicles[v].ID != "" && r.vehicles[v].Consist == consist.ID {
				cs.Members = append(cs.Members, r.vehicles[v].ID)
			}
		}
		status.Consists = append(status.Consists, cs)
	}

	return status
}

// ModelSnapshot is the persistent form of a model.
type ModelSnapshot struct {
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	Functions []Function `json:"functions,omitempty"`
}

// VehicleSnapshot is the persistent form of a vehicle. Live state
// (speed, function mask) is deliberately not persisted.
type VehicleSnapshot struct {
	ID      string `json:"id"`
	Model   string `json:"model,omitempty"`
	Address int    `json:"address"`
}

// MemberSnapshot records one consist membership.
type MemberSnapshot struct {
	Vehicle string `json:"vehicle"`
	Mode    string `json:"mode"`
}

// ConsistSnapshot is the persistent form of a consist.
type ConsistSnapshot struct {
	ID      string           `json:"id"`
	Address int              `json:"address"`
	Members []MemberSnapshot `json:"members,omitempty"`
}

// Snapshot is a full export of the registry configuration, suitable
// for the depot file and for the config endpoints.
type Snapshot struct {
	Models   []ModelSnapshot   `json:"models"`
	Vehicles []VehicleSnapshot `json:"vehicles"`
	Consists []ConsistSnapshot `json:"consists,omitempty"`
}

// Snapshot exports the registry configuration with tombstones skipped.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		Models:   make([]ModelSnapshot, 0, len(r.models)),
		Vehicles: make([]VehicleSnapshot, 0, len(r.vehicles)),
	}

	for i := range r.models {
		model := &r.models[i]
		if model.Name == "" {
			continue
		}
		functions := make([]Function, len(model.Functions))
		copy(functions, model.Functions)
		snapshot.Models = append(snapshot.Models, ModelSnapshot{
			Name:      model.Name,
			Kind:      model.Kind.String(),
			Functions: functions,
		})
	}

	for i := range r.vehicles {
		vehicle := &r.vehicles[i]
		if vehicle.ID == "" {
			continue
		}
		snapshot.Vehicles = append(snapshot.Vehicles, VehicleSnapshot{
			ID:      vehicle.ID,
			Model:   vehicle.Model,
			Address: vehicle.Address,
		})
	}

	for i := range r.consists {
		consist := &r.consists[i]
		if consist.ID == "" {
			continue
		}
		cs := ConsistSnapshot{ID: consist.ID, Address: consist.Address}
		for v := range r.vehicles {
			vehicle := &r.vehicles[v]
			if vehicle.ID != "" && vehicle.Consist == consist.ID {
				cs.Members = append(cs.Members, MemberSnapshot{
					Vehicle: vehicle.ID,
					Mode:    string(vehicle.Mode),
				})
			}
		}
		snapshot.Consists = append(snapshot.Consists, cs)
	}

	return snapshot
}

// Restore replaces the whole registry with the snapshot contents.
// All live state resets: speeds zero, functions off. Entries that fail
// validation are skipped with a log line rather than aborting the load.
func (r *Registry) Restore(snapshot Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models = r.models[:0]
	r.vehicles = r.vehicles[:0]
	r.consists = r.consists[:0]

	for _, m := range snapshot.Models {
		name := clampName(m.Name)
		if name == "" {
			continue
		}
		functions := m.Functions
		if len(functions) > MaxFunctions {
			functions = functions[:MaxFunctions]
		}
		kept := make([]Function, len(functions))
		copy(kept, functions)
		r.models = append(r.models, Model{Name: name, Kind: ParseKind(m.Kind), Functions: kept})
	}

	for _, v := range snapshot.Vehicles {
		id := clampName(v.ID)
		if id == "" || v.Address < MinAddress || v.Address > MaxAddress {
			r.logger.Warn("vehicle skipped on restore", "vehicle", v.ID, "address", v.Address)
			continue
		}
		r.vehicles = append(r.vehicles, Vehicle{ID: id, Model: clampName(v.Model), Address: v.Address})
	}

	for _, c := range snapshot.Consists {
		id := clampName(c.ID)
		if id == "" || c.Address < MinAddress || c.Address > MaxAddress {
			r.logger.Warn("consist skipped on restore", "consist", c.ID, "address", c.Address)
			continue
		}
		r.consists = append(r.consists, Consist{ID: id, Address: c.Address})
		for _, member := range c.Members {
			mode, err := ParseMode(member.Mode)
			if err != nil {
				r.logger.Warn("member skipped on restore", "consist", id, "vehicle", member.Vehicle)
				continue
			}
			if i := r.vehicleIndex(clampName(member.Vehicle)); i >= 0 {
				r.vehicles[i].Consist = id
				r.vehicles[i].Mode = mode
			}
		}
	}

	r.bumped()
	r.logger.Info("registry restored",
		"models", len(r.models), "vehicles", len(r.vehicles), "consists", len(r.consists))
}
