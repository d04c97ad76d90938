package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pascal-fb-martin/housedcc/internal/pidcc"
)

// numericID reports whether id is all digits, meaning the caller is
// addressing a raw DCC decoder directly instead of a registered
// vehicle or consist. Registry lookups are bypassed for such ids.
func numericID(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	address, err := strconv.Atoi(id)
	if err != nil {
		return 0, false
	}
	return address, true
}

// accepted reports whether a command outcome counts as success for the
// HTTP caller. A dry-run link (no GPIO pins configured) builds and
// records the wire line without transmitting; the registry state still
// changed, so the request is not an error.
func accepted(err error) bool {
	return err == nil || errors.Is(err, pidcc.ErrNotConfigured)
}

type moveRequest struct {
	ID    string `json:"id"`
	Speed int    `json:"speed"`
}

// handleMove sets the speed of a vehicle, consist, or raw address.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	if address, ok := numericID(req.ID); ok {
		err = s.link.Move(address, req.Speed)
	} else {
		err = s.registry.Move(req.ID, req.Speed)
	}
	if !accepted(err) {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type stopRequest struct {
	ID        string `json:"id"`
	Emergency bool   `json:"emergency"`
}

// handleStop halts a vehicle, a consist, a raw address, or with no id
// the whole fleet. Stop is never gated on worker readiness.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	switch {
	case req.ID == "":
		err = s.registry.StopAll(req.Emergency)
	default:
		if address, ok := numericID(req.ID); ok {
			err = s.link.Stop(address, req.Emergency)
		} else {
			err = s.registry.Stop(req.ID, req.Emergency)
		}
	}
	if !accepted(err) {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type functionRequest struct {
	ID     string `json:"id"`
	Device string `json:"device"`
	Active bool   `json:"active"`

	// Instruction is the raw DCC function instruction byte, used only
	// with a numeric id where no model resolves device names.
	Instruction int `json:"instruction"`
}

// handleFunction switches a named decoder function of a vehicle, or
// for a numeric id transmits a raw function instruction byte.
func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	var req functionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	if address, ok := numericID(req.ID); ok {
		if req.Instruction < 0 || req.Instruction > 0xff {
			writeBadRequest(w, "instruction must be a byte value")
			return
		}
		err = s.link.Function(address, byte(req.Instruction))
	} else {
		err = s.registry.SetFunction(req.ID, req.Device, req.Active)
	}
	if !accepted(err) {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type accessoryRequest struct {
	Address int  `json:"address"`
	Device  int  `json:"device"`
	Active  bool `json:"active"`
}

// handleAccessory switches a stationary accessory decoder device
// (turnout, signal, uncoupler). Accessories are addressed directly;
// the registry holds no state for them.
func (s *Server) handleAccessory(w http.ResponseWriter, r *http.Request) {
	var req accessoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.link.Accessory(req.Address, req.Device, req.Active); !accepted(err) {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": req.Address,
		"device":  req.Device,
		"active":  req.Active,
	})
}

type gpioRequest struct {
	PinA int `json:"pin_a"`
	PinB int `json:"pin_b"`
}

// handleGpio configures the GPIO pin pair driving the track signal and
// (re)starts the pidcc worker with it.
func (s *Server) handleGpio(w http.ResponseWriter, r *http.Request) {
	var req gpioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.link.ConfigurePins(req.PinA, req.PinB); err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.link.Stats())
}
