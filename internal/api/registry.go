package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pascal-fb-martin/housedcc/internal/fleet"
)

type modelRequest struct {
	Name      string           `json:"name"`
	Kind      string           `json:"kind"`
	Functions []fleet.Function `json:"functions"`
}

// handleDeclareModel creates or replaces a decoder model.
func (s *Server) handleDeclareModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.DeclareModel(req.Name, req.Kind, req.Functions); err != nil {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type vehicleRequest struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Address int    `json:"address"`
}

// handleAddVehicle registers a vehicle under a DCC address.
func (s *Server) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.AddVehicle(req.ID, req.Model, req.Address); err != nil {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

// handleDelete removes a vehicle, model, or consist by id. A name
// shared by a vehicle and a model only ever removes the vehicle.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.Delete(id); err != nil {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type consistRequest struct {
	ID      string `json:"id"`
	Address int    `json:"address"`
}

// handleDeclareConsist creates or updates a consist.
func (s *Server) handleDeclareConsist(w http.ResponseWriter, r *http.Request) {
	var req consistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.DeclareConsist(req.ID, req.Address); err != nil {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type assignRequest struct {
	Consist string `json:"consist"`
	Vehicle string `json:"vehicle"`
	Mode    string `json:"mode"`
}

// handleAssign places a vehicle into a consist with an operating mode
// (forward, reverse, idle, disabled).
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	mode, err := fleet.ParseMode(req.Mode)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	if err := s.registry.Assign(req.Consist, req.Vehicle, mode); err != nil {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}

type removeRequest struct {
	Vehicle string `json:"vehicle"`
}

// handleRemove takes a vehicle out of its consist.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.Remove(req.Vehicle); err != nil {
		writeCommandError(w, err)
		return
	}

	s.fleetChanged()
	writeJSON(w, http.StatusOK, s.registry.Status())
}
