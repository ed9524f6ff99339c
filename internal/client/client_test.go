package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/co2dash/internal/sensor"
)

func TestClient(t *testing.T) {
	buildingID := uuid.New()
	var posted sensor.GatewayPayload

	mux := http.NewServeMux()
	mux.HandleFunc("/api/buildings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{"id": buildingID.String(), "name": "Depot"}})
	})
	mux.HandleFunc("/api/buildings/"+buildingID.String(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   buildingID.String(),
			"name": "Depot",
			"devices": []map[string]any{{
				"id":       uuid.NewString(),
				"name":     "Dock",
				"readings": []map[string]any{{"timestamp": "2026-03-01T10:00:00Z", "co2Level": 950}},
				"stats":    map[string]any{"current": 950, "average": 950, "peak": 950},
				"alerts":   []map[string]any{{"severity": "warning", "co2Level": 950}},
			}},
		})
	})
	mux.HandleFunc("/api/readings/gateway", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		if posted.DeviceID == "unknown" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Device not found with provided deviceId"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	buildings, err := c.ListBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, buildingID, buildings[0].ID)

	detail, err := c.Building(ctx, buildingID)
	require.NoError(t, err)
	require.Len(t, detail.Devices, 1)
	assert.Equal(t, "Dock", detail.Devices[0].Name)
	assert.Equal(t, 950.0, detail.Devices[0].Stats.Peak)
	assert.Len(t, detail.Devices[0].Readings, 1)

	co2 := 720.0
	require.NoError(t, c.PostGateway(ctx, sensor.GatewayPayload{DeviceID: "hw-1", CO2PPM: &co2}))
	assert.Equal(t, "hw-1", posted.DeviceID)

	err = c.PostGateway(ctx, sensor.GatewayPayload{DeviceID: "unknown", CO2PPM: &co2})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Device not found")
}
