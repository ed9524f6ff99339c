package service

import (
	"context"
	"fmt"

	"github.com/luki/co2dash/internal/alert"
)

// Dashboard is the cross-building alert overview.
type Dashboard struct {
	Alerts []alert.Alert `json:"alerts"`
	alert.Summary
	Buildings int `json:"buildings"`
	Devices   int `json:"devices"`
}

// Dashboard derives alerts for every device assigned to a building, with
// the dashboard presets, and merges them newest first. Unassigned devices
// are left out of both the alerts and the device count.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	buildings, err := s.db.ListBuildings(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list buildings: %w", err)
	}

	opts := alert.DashboardOptions()
	all := []alert.Alert{}
	devices := 0
	for _, b := range buildings {
		members, err := s.db.ListDevicesByBuilding(ctx, b.ID)
		if err != nil {
			return Dashboard{}, fmt.Errorf("list devices of building %s: %w", b.ID, err)
		}
		for _, d := range members {
			devices++
			latest, err := s.db.LatestReadings(ctx, d.ID, opts.WindowSize)
			if err != nil {
				return Dashboard{}, fmt.Errorf("latest readings: %w", err)
			}
			derived := alert.Derive(toSensor(latest), opts)
			all = append(all, alert.Tag(derived, d.Name, b.Name)...)
		}
	}
	alert.SortNewestFirst(all)

	return Dashboard{
		Alerts:    all,
		Summary:   alert.Summarize(all),
		Buildings: len(buildings),
		Devices:   devices,
	}, nil
}
