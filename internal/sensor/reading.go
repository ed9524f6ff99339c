// Package sensor holds the CO2 reading model shared by the backend, the
// terminal dashboards and the derived-view packages, plus parsing of the
// payloads that gateways and fetch layers hand us.
package sensor

import (
	"sort"
	"strings"
	"time"
)

// Reading is a single CO2 measurement.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	CO2Level  float64   `json:"co2Level"` // ppm
}

// RawReading is a reading as it arrives from a fetch layer, before the
// timestamp has been validated.
type RawReading struct {
	Timestamp string  `json:"timestamp"`
	CO2Level  float64 `json:"co2Level"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts ISO-8601 timestamps with or without a zone.
// Zone-less values are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseReadings converts raw readings, dropping entries whose timestamp
// cannot be parsed. It returns the number of dropped entries so the caller
// can log them.
func ParseReadings(raw []RawReading, loc *time.Location) ([]Reading, int) {
	out := make([]Reading, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		t, ok := ParseTimestamp(r.Timestamp, loc)
		if !ok {
			dropped++
			continue
		}
		out = append(out, Reading{Timestamp: t, CO2Level: r.CO2Level})
	}
	return out, dropped
}

// SortNewestFirst returns a copy of readings ordered by descending
// timestamp. Equal timestamps keep their input order.
func SortNewestFirst(readings []Reading) []Reading {
	out := make([]Reading, len(readings))
	copy(out, readings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// SortOldestFirst returns a copy of readings ordered by ascending
// timestamp. Equal timestamps keep their input order.
func SortOldestFirst(readings []Reading) []Reading {
	out := make([]Reading, len(readings))
	copy(out, readings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Values returns the ppm values in input order.
func Values(readings []Reading) []float64 {
	vals := make([]float64, len(readings))
	for i, r := range readings {
		vals[i] = r.CO2Level
	}
	return vals
}
