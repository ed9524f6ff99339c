package simulate

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/luki/co2dash/internal/sensor"
)

func TestGeneratorBounds(t *testing.T) {
	g := NewGenerator(42)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2000; i++ {
		ts := day.Add(time.Duration(i%24) * time.Hour)
		v := g.Level(ts)
		h := ts.Hour()

		if v < floorPPM {
			t.Fatalf("hour %d: %v below floor", h, v)
		}
		switch {
		case h >= 9 && h <= 17:
			if v > 1450 {
				t.Errorf("work hour %d: %v above 1450", h, v)
			}
		case h >= 6 && h <= 22:
			if v < 550 || v > 1050 {
				t.Errorf("day hour %d: %v outside 550..1050", h, v)
			}
		default:
			if v > 650 {
				t.Errorf("night hour %d: %v above 650", h, v)
			}
		}
	}
}

func TestSeries(t *testing.T) {
	g := NewGenerator(1)
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	series := g.Series(end, 24*time.Hour, 0)

	if len(series) != 97 {
		t.Fatalf("expected 97 readings, got %d", len(series))
	}
	if !series[0].Timestamp.Equal(end.Add(-24 * time.Hour)) {
		t.Errorf("first timestamp %v", series[0].Timestamp)
	}
	if !series[96].Timestamp.Equal(end) {
		t.Errorf("last timestamp %v", series[96].Timestamp)
	}
}

type countingPoster struct {
	n      int
	failAt int
}

func (c *countingPoster) PostGateway(_ context.Context, p sensor.GatewayPayload) error {
	c.n++
	if c.failAt > 0 && c.n == c.failAt {
		return errors.New("boom")
	}
	if p.CO2PPM == nil || p.BatteryPercent == nil || p.Timestamp == "" {
		return errors.New("incomplete payload")
	}
	return nil
}

func TestBackfill(t *testing.T) {
	g := NewGenerator(7)
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	p := &countingPoster{}
	sent, err := Backfill(context.Background(), p, []string{"a", "b"}, g, end, time.Hour, 15*time.Minute, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 10 {
		t.Errorf("sent %d, want 10", sent)
	}

	p = &countingPoster{failAt: 3}
	sent, err = Backfill(context.Background(), p, []string{"a"}, g, end, time.Hour, 15*time.Minute, io.Discard)
	if err == nil || sent != 2 {
		t.Errorf("got sent=%d err=%v, want 2 and an error", sent, err)
	}
}

func TestLiveStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &countingPoster{}
	if err := Live(ctx, p, []string{"a"}, NewGenerator(3), time.Hour, io.Discard); err != nil {
		t.Fatal(err)
	}
	if p.n != 1 {
		t.Errorf("posted %d, want 1", p.n)
	}
}
