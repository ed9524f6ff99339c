package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luki/co2dash/internal/chart"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/stats"
	"github.com/luki/co2dash/internal/window"
)

const (
	defaultChartWidth  = 800
	defaultChartHeight = 300
)

// ChartRequest selects the range and the drawing surface. A zero Ref means
// today; a nil PointerX means no tooltip.
type ChartRequest struct {
	Mode     window.Mode
	Ref      time.Time
	Width    float64
	Height   float64
	PointerX *float64
}

// ChartView is the geometry of one device's chart plus the point under the
// pointer.
type ChartView struct {
	Mode     string         `json:"mode"`
	Label    string         `json:"label"`
	Stats    stats.Stats    `json:"stats"`
	Geometry chart.Geometry `json:"geometry"`
	Tooltip  *chart.Point   `json:"tooltip,omitempty"`
}

func (s *Service) DeviceChart(ctx context.Context, id uuid.UUID, req ChartRequest) (ChartView, error) {
	if req.Width == 0 {
		req.Width = defaultChartWidth
	}
	if req.Height == 0 {
		req.Height = defaultChartHeight
	}
	if req.Width < 0 || req.Height < 0 {
		return ChartView{}, fmt.Errorf("%w: width and height must be positive", ErrInvalidInput)
	}

	readings, ref, err := s.rangeReadings(ctx, id, req.Mode, req.Ref)
	if err != nil {
		return ChartView{}, err
	}

	view := ChartView{
		Mode:     req.Mode.String(),
		Label:    window.Label(req.Mode, ref),
		Stats:    stats.ComputeLatest(readings),
		Geometry: chart.Map(readings, req.Width, req.Height, chart.DefaultConfig()),
	}
	if req.PointerX != nil {
		if p, ok := chart.Nearest(view.Geometry.Points, *req.PointerX); ok {
			view.Tooltip = &p
		}
	}
	return view, nil
}

// rangeReadings loads the device's readings for the mode. Storage narrows
// by the mode's bounds, window.Filter applies the exact boundaries.
func (s *Service) rangeReadings(ctx context.Context, id uuid.UUID, mode window.Mode, ref time.Time) ([]sensor.Reading, time.Time, error) {
	if _, err := s.db.GetDevice(ctx, id); err != nil {
		return nil, time.Time{}, deviceErr(err)
	}
	now := s.now()
	if ref.IsZero() {
		ref = now
	}

	from, to, ok := window.Bounds(mode, ref, now)
	if ok {
		to = to.Add(time.Second)
	}
	rs, err := s.db.ReadingsBetween(ctx, id, from, to)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("readings: %w", err)
	}
	return window.Filter(toSensor(rs), mode, ref, now), ref, nil
}
