// Package stats computes the summary figures shown next to every device:
// the current level, the rounded average and the peak.
package stats

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/luki/co2dash/internal/sensor"
)

// Stats is recomputed from scratch for every reading set.
type Stats struct {
	Current float64 `json:"current"`
	Average float64 `json:"average"`
	Peak    float64 `json:"peak"`
}

// Compute summarises readings, which are expected newest-first: Current is
// the first reading's level. An empty set yields zeros.
func Compute(readings []sensor.Reading) Stats {
	if len(readings) == 0 {
		return Stats{}
	}
	vals := sensor.Values(readings)
	mean, err := stats.Mean(vals)
	if err != nil {
		mean = 0
	}
	peak, err := stats.Max(vals)
	if err != nil {
		peak = 0
	}
	return Stats{
		Current: readings[0].CO2Level,
		Average: math.Round(mean),
		Peak:    peak,
	}
}

// ComputeLatest sorts readings newest-first before computing, for callers
// that cannot vouch for their ordering.
func ComputeLatest(readings []sensor.Reading) Stats {
	return Compute(sensor.SortNewestFirst(readings))
}
