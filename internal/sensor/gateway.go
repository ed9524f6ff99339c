package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingDevice = errors.New("missing deviceId")
	ErrInvalidCO2    = errors.New("missing or invalid co2_ppm")
)

// GatewayPayload is what a radio gateway posts for every measurement:
//
//	{"deviceId": "3039...", "co2_ppm": 750, "battery_percent": 85, "timestamp": "..."}
//
// Battery and timestamp are optional.
type GatewayPayload struct {
	DeviceID       string   `json:"deviceId"`
	CO2PPM         *float64 `json:"co2_ppm"`
	BatteryPercent *float64 `json:"battery_percent,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
}

// ParseGateway decodes and validates a gateway payload.
func ParseGateway(data []byte) (GatewayPayload, error) {
	var p GatewayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode gateway payload: %w", err)
	}
	return p, p.Validate()
}

// Validate checks the mandatory fields.
func (p GatewayPayload) Validate() error {
	if strings.TrimSpace(p.DeviceID) == "" {
		return ErrMissingDevice
	}
	if p.CO2PPM == nil || *p.CO2PPM < 0 {
		return ErrInvalidCO2
	}
	return nil
}

// Reading converts the payload into a Reading. A missing or unparseable
// timestamp falls back to now.
func (p GatewayPayload) Reading(now time.Time) Reading {
	t, ok := ParseTimestamp(p.Timestamp, time.UTC)
	if !ok {
		t = now
	}
	var ppm float64
	if p.CO2PPM != nil {
		ppm = *p.CO2PPM
	}
	return Reading{Timestamp: t, CO2Level: ppm}
}

// DeviceFromTopic extracts the hardware id from a topic shaped like
// "co2/<hardwareId>/reading". It returns "" for anything else.
func DeviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "co2" || parts[2] != "reading" {
		return ""
	}
	return parts[1]
}
