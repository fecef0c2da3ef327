package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/certivo/certivo/engine"
	"github.com/certivo/certivo/storage"
)

const timeFormat = time.RFC3339

// ErrorResponse is the error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrOutOfOrder):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrAlreadyConsumed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidToken):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrReplayDetected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoRemaining):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoChallenges):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, engine.ErrAnalyzerUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrStaleIndex):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
