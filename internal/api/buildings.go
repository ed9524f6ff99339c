package api

import (
	"net/http"
)

type buildingRequest struct {
	Name string `json:"name"`
}

type addDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

func (h *Handler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req buildingRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b, err := h.svc.CreateBuilding(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err, "creating building")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.svc.ListBuildings(r.Context())
	if err != nil {
		h.writeError(w, r, err, "listing buildings")
		return
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (h *Handler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetBuilding(r.Context(), idParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, "retrieving building")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBuilding(r.Context(), idParam(r, "id")); err != nil {
		h.writeError(w, r, err, "deleting building")
		return
	}
	writeMessage(w, http.StatusOK, "Building successfully deleted")
}

func (h *Handler) AddDeviceToBuilding(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d, err := h.svc.AddDeviceToBuilding(r.Context(), idParam(r, "id"), req.DeviceID)
	if err != nil {
		h.writeError(w, r, err, "adding device to building")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) RemoveDeviceFromBuilding(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveDeviceFromBuilding(r.Context(), idParam(r, "id"), idParam(r, "deviceId"))
	if err != nil {
		h.writeError(w, r, err, "removing device from building")
		return
	}
	writeMessage(w, http.StatusOK, "Device removed from building")
}
