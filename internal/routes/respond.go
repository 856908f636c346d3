package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, env models.ResponseEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, models.ResponseEnvelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ResponseEnvelope{
		Success: false,
		Message: message,
		Error:   message,
	})
}

// mapDomainError translates the domain error taxonomy to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMalformedRange):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, models.ErrInvalidScheduleTime), errors.Is(err, models.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrJobAlreadyFired):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
