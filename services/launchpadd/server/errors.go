package server

import (
	"encoding/json"
	"net/http"

	"launchpad/core"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusForKind maps an error kind to the HTTP status reported to clients.
func statusForKind(kind string) int {
	switch kind {
	case "sale_not_found":
		return http.StatusNotFound
	case "unauthorized":
		return http.StatusForbidden
	case "invalid_signature":
		return http.StatusUnauthorized
	case "nonce_mismatch", "already_initialized":
		return http.StatusConflict
	case "paused":
		return http.StatusServiceUnavailable
	case "quota_exceeded":
		return http.StatusTooManyRequests
	case "configuration_invalid", "unknown_operation", "sale_required", "bad_request":
		return http.StatusBadRequest
	case "canceled":
		return http.StatusRequestTimeout
	case "internal", "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	kind := core.ErrorKind(err)
	msg := err.Error()
	if kind == "internal" {
		msg = "internal error"
	}
	writeJSON(w, statusForKind(kind), errorResponse{Error: msg, Kind: kind})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "bad_request"})
}
