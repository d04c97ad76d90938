package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pascal-fb-martin/housedcc/internal/dcc"
	"github.com/pascal-fb-martin/housedcc/internal/fleet"
	"github.com/pascal-fb-martin/housedcc/internal/pidcc"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeRejected    = "rejected"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// validationErrors are refused at the call boundary and never mutate
// state; they map to 400.
var validationErrors = []error{
	fleet.ErrInvalidID,
	fleet.ErrAddressRange,
	fleet.ErrAddressInUse,
	fleet.ErrUnknownFunction,
	fleet.ErrInvalidMode,
	fleet.ErrNotAssigned,
	dcc.ErrSpeedRange,
	dcc.ErrFunctionIndex,
	dcc.ErrAccessoryRange,
	pidcc.ErrAddressRange,
	pidcc.ErrInvalidPins,
}

// writeCommandError maps a fleet or link error onto an HTTP status:
// unknown identifiers are 404, validation failures 400, transport
// refusals (worker busy queue, worker dead) 503, anything else 500.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fleet.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, pidcc.ErrQueueFull), errors.Is(err, pidcc.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		for _, verr := range validationErrors {
			if errors.Is(err, verr) {
				writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
				return
			}
		}
		writeInternalError(w, err.Error())
	}
}
