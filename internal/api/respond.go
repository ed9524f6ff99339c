package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/service"
)

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message{Message: msg})
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and hidden behind a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, service.ErrDeviceNotFound):
		writeMessage(w, http.StatusNotFound, "Device not found")
	case errors.Is(err, service.ErrBuildingNotFound):
		writeMessage(w, http.StatusNotFound, "Building not found")
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, sensor.ErrMissingDevice),
		errors.Is(err, sensor.ErrInvalidCO2):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(what+" failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error while "+what)
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
