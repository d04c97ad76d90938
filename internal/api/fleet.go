package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pascal-fb-martin/housedcc/internal/fleet"
)

// handleStatus returns the live fleet status document.
//
// Query parameters:
//   - known: a revision previously seen by the client. When it matches
//     the current registry revision the response is 304 Not Modified,
//     so pollers pay nothing while the fleet is unchanged.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if known := r.URL.Query().Get("known"); known != "" {
		revision, err := strconv.ParseUint(known, 10, 64)
		if err != nil {
			writeBadRequest(w, "known must be a revision number")
			return
		}
		if revision == s.registry.Revision() {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	writeJSON(w, http.StatusOK, s.registry.Status())
}

// handleGetConfig exports the full fleet configuration (models,
// vehicles, consists) in the same format the depot file uses.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

// handleSetConfig replaces the whole fleet configuration. All live
// state resets; invalid entries are skipped rather than rejected, the
// way a depot load behaves.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var snapshot fleet.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.registry.Restore(snapshot)
	s.fleetChanged()

	writeJSON(w, http.StatusOK, s.registry.Status())
}

// handleCapture returns the flight recorder contents, oldest first.
func (s *Server) handleCapture(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []any{}, "count": 0})
		return
	}
	events := s.recorder.Events()
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
