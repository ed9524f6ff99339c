package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/luki/co2dash/internal/service"
	"github.com/luki/co2dash/internal/window"
)

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListDevices(r.Context())
	if err != nil {
		h.writeError(w, r, err, "listing devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDevice(r.Context(), idParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, "retrieving device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var in service.DeviceInput
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d, err := h.svc.CreateDevice(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err, "creating device")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var p service.DevicePatch
	if err := decode(r, &p); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d, err := h.svc.UpdateDevice(r.Context(), idParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, err, "updating device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDevice(r.Context(), idParam(r, "id")); err != nil {
		h.writeError(w, r, err, "deleting device")
		return
	}
	writeMessage(w, http.StatusOK, "Device deleted successfully")
}

func (h *Handler) DeviceChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, ref, err := rangeQuery(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req := service.ChartRequest{Mode: mode, Ref: ref}
	if req.Width, err = floatQuery(q.Get("width")); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid width")
		return
	}
	if req.Height, err = floatQuery(q.Get("height")); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid height")
		return
	}
	if x := q.Get("x"); x != "" {
		v, err := strconv.ParseFloat(x, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid pointer position")
			return
		}
		req.PointerX = &v
	}

	view, err := h.svc.DeviceChart(r.Context(), idParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err, "building chart")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) ExportReadings(w http.ResponseWriter, r *http.Request) {
	mode, ref, err := rangeQuery(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	exp, err := h.svc.ExportReadings(r.Context(), idParam(r, "id"), mode, ref)
	if err != nil {
		h.writeError(w, r, err, "exporting readings")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

// rangeQuery reads ?mode= and ?date=YYYY-MM-DD (UTC).
func rangeQuery(r *http.Request) (window.Mode, time.Time, error) {
	q := r.URL.Query()
	mode, err := window.ParseMode(q.Get("mode"))
	if err != nil {
		return 0, time.Time{}, err
	}
	var ref time.Time
	if d := q.Get("date"); d != "" {
		ref, err = time.Parse("2006-01-02", d)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("invalid date %q", d)
		}
	}
	return mode, ref, nil
}

func floatQuery(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
