// Package api exposes the service over a JSON REST interface.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/service"
)

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger(h.logger))

	mux.Get("/health", HealthCheck)
	mux.Route("/api/buildings", func(r chi.Router) {
		r.Get("/", h.ListBuildings)
		r.Post("/", h.CreateBuilding)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(requireUUID("id"))
			r.Get("/", h.GetBuilding)
			r.Delete("/", h.DeleteBuilding)
			r.Post("/devices", h.AddDeviceToBuilding)
			r.With(requireUUID("deviceId")).Delete("/devices/{deviceId}", h.RemoveDeviceFromBuilding)
		})
	})
	mux.Route("/api/devices", func(r chi.Router) {
		r.Get("/", h.ListDevices)
		r.Post("/", h.CreateDevice)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(requireUUID("id"))
			r.Get("/", h.GetDevice)
			r.Patch("/", h.UpdateDevice)
			r.Delete("/", h.DeleteDevice)
			r.Get("/chart", h.DeviceChart)
			r.Get("/export.xlsx", h.ExportReadings)
		})
	})
	mux.Route("/api/readings", func(r chi.Router) {
		r.Post("/", h.AddReading)
		r.Post("/gateway", h.ReceiveGatewayData)
		r.With(requireUUID("deviceId")).Get("/{deviceId}/recent", h.RecentReadings)
	})
	mux.Get("/api/alerts", h.Dashboard)
	return mux
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}
