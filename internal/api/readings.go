package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/service"
)

type readingRequest struct {
	DeviceID string   `json:"deviceId"`
	CO2Level *float64 `json:"co2Level"`
}

func (h *Handler) AddReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := decode(r, &req); err != nil || req.CO2Level == nil {
		writeMessage(w, http.StatusBadRequest, "Missing or invalid deviceId or co2Level")
		return
	}
	id, err := uuid.Parse(req.DeviceID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing or invalid deviceId or co2Level")
		return
	}
	reading, err := h.svc.AddReading(r.Context(), id, *req.CO2Level)
	if err != nil {
		h.writeError(w, r, err, "saving CO2 reading")
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

type gatewayResponse struct {
	Message string `json:"message"`
	Reading any    `json:"reading,omitempty"`
}

func (h *Handler) ReceiveGatewayData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	payload, err := sensor.ParseGateway(body)
	if err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid or missing deviceId or co2_ppm")
		return
	}

	reading, err := h.svc.RecordGatewayReading(r.Context(), payload)
	if errors.Is(err, service.ErrDeviceNotFound) {
		h.logger.Warn("gateway reading for unknown device", zap.String("hardware_id", payload.DeviceID))
		writeMessage(w, http.StatusNotFound, "Device not found with provided deviceId")
		return
	}
	if err != nil {
		h.writeError(w, r, err, "receiving data")
		return
	}
	writeJSON(w, http.StatusCreated, gatewayResponse{Message: "Data received and stored", Reading: reading})
}

func (h *Handler) RecentReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := h.svc.RecentReadings(r.Context(), idParam(r, "deviceId"))
	if err != nil {
		h.writeError(w, r, err, "retrieving CO2 readings")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err, "retrieving alerts")
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
