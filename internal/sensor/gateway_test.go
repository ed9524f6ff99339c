package sensor

import (
	"errors"
	"testing"
	"time"
)

func TestParseGateway(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"full", `{"deviceId":"303947013139353611000000","co2_ppm":750,"battery_percent":85,"timestamp":"2026-02-21T10:00:00Z"}`, nil},
		{"minimal", `{"deviceId":"abc","co2_ppm":0}`, nil},
		{"missing device", `{"co2_ppm":750}`, ErrMissingDevice},
		{"missing co2", `{"deviceId":"abc"}`, ErrInvalidCO2},
		{"negative co2", `{"deviceId":"abc","co2_ppm":-1}`, ErrInvalidCO2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGateway([]byte(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := ParseGateway([]byte(`{`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestGatewayReadingTimestamp(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	p, err := ParseGateway([]byte(`{"deviceId":"abc","co2_ppm":812,"timestamp":"2026-02-21T10:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	r := p.Reading(now)
	if r.CO2Level != 812 || !r.Timestamp.Equal(time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("got %+v", r)
	}

	p.Timestamp = "garbage"
	if r := p.Reading(now); !r.Timestamp.Equal(now) {
		t.Errorf("fallback timestamp: got %v, want %v", r.Timestamp, now)
	}
}

func TestDeviceFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"co2/303947013139353611000000/reading", "303947013139353611000000"},
		{"co2/abc/battery", ""},
		{"other/abc/reading", ""},
		{"co2/reading", ""},
	}
	for _, tt := range tests {
		if got := DeviceFromTopic(tt.topic); got != tt.want {
			t.Errorf("DeviceFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
