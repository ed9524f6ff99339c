// Package simulate produces synthetic gateway traffic: a day-shaped CO2
// series per device, posted to the backend as backfill or in real time.
package simulate

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/luki/co2dash/internal/sensor"
)

const (
	floorPPM    = 350
	defaultStep = 15 * time.Minute
)

// Generator draws levels that follow occupancy: 600 to 1000 ppm between
// 06:00 and 22:59 with occasional spikes of up to +400 ppm during work
// hours, 400 to 600 ppm at night, +/-50 ppm noise and a floor of 350 ppm.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Level returns one synthetic reading for t, using t's hour of day.
func (g *Generator) Level(t time.Time) float64 {
	hour := t.Hour()
	var base float64
	if hour >= 6 && hour <= 22 {
		base = 600 + g.rng.Float64()*400
		if hour >= 9 && hour <= 17 && g.rng.Float64() < 0.2 {
			base += g.rng.Float64() * 400
		}
	} else {
		base = 400 + g.rng.Float64()*200
	}
	base += (g.rng.Float64() - 0.5) * 100
	return math.Max(floorPPM, math.Round(base))
}

// Series returns readings every step over the span ending at end, oldest
// first. A zero step means 15 minutes.
func (g *Generator) Series(end time.Time, span, step time.Duration) []sensor.Reading {
	if step <= 0 {
		step = defaultStep
	}
	var out []sensor.Reading
	for t := end.Add(-span); !t.After(end); t = t.Add(step) {
		out = append(out, sensor.Reading{Timestamp: t, CO2Level: g.Level(t)})
	}
	return out
}

// Poster delivers one gateway payload.
type Poster interface {
	PostGateway(ctx context.Context, p sensor.GatewayPayload) error
}

// Backfill posts a Series for every device and returns how many readings
// were accepted. It stops at the first error.
func Backfill(ctx context.Context, p Poster, devices []string, g *Generator, end time.Time, span, step time.Duration, out io.Writer) (int, error) {
	sent := 0
	for _, hw := range devices {
		series := g.Series(end, span, step)
		for _, r := range series {
			if err := p.PostGateway(ctx, payload(hw, r, battery(g))); err != nil {
				return sent, fmt.Errorf("device %s: %w", hw, err)
			}
			sent++
		}
		fmt.Fprintf(out, "  %s: %d readings\n", hw, len(series))
	}
	return sent, nil
}

// Live posts one reading per device every interval until ctx is done.
// Failed posts are reported to out and do not stop the loop.
func Live(ctx context.Context, p Poster, devices []string, g *Generator, interval time.Duration, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := time.Now()
		for _, hw := range devices {
			r := sensor.Reading{Timestamp: now, CO2Level: g.Level(now)}
			if err := p.PostGateway(ctx, payload(hw, r, battery(g))); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(out, "  %s: %v\n", hw, err)
				continue
			}
			fmt.Fprintf(out, "  %s  %s  %4.0f ppm\n", now.Format("15:04:05"), hw, r.CO2Level)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func battery(g *Generator) float64 {
	return math.Round(70 + g.rng.Float64()*30)
}

func payload(hw string, r sensor.Reading, battery float64) sensor.GatewayPayload {
	ppm := r.CO2Level
	return sensor.GatewayPayload{
		DeviceID:       hw,
		CO2PPM:         &ppm,
		BatteryPercent: &battery,
		Timestamp:      r.Timestamp.UTC().Format(time.RFC3339),
	}
}
