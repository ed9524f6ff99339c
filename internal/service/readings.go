package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/storage"
	"github.com/luki/co2dash/internal/store"
)

// RecordGatewayReading stores a reading reported by a gateway for a
// registered device. Unknown hardware is remembered so a later registration
// can pick a fitting default name, and ErrDeviceNotFound is returned.
func (s *Service) RecordGatewayReading(ctx context.Context, p sensor.GatewayPayload) (storage.Reading, error) {
	if err := p.Validate(); err != nil {
		return storage.Reading{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	hardwareID := strings.TrimSpace(p.DeviceID)
	now := s.now()

	d, err := s.db.GetDeviceByHardwareID(ctx, hardwareID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if err := s.db.UpsertSensor(ctx, hardwareID, p.BatteryPercent, now); err != nil {
				s.logger.Warn("remember unknown sensor failed", zap.String("hardware_id", hardwareID), zap.Error(err))
			}
			return storage.Reading{}, ErrDeviceNotFound
		}
		return storage.Reading{}, err
	}

	if p.BatteryPercent != nil {
		if err := s.db.UpdateBattery(ctx, d.ID, *p.BatteryPercent); err != nil {
			return storage.Reading{}, fmt.Errorf("update battery: %w", err)
		}
		d.BatteryLevel = p.BatteryPercent
	}

	r := p.Reading(now)
	stored, err := s.db.CreateReading(ctx, d.ID, r.CO2Level, r.Timestamp)
	if err != nil {
		return storage.Reading{}, fmt.Errorf("store reading: %w", err)
	}
	s.logger.Debug("gateway reading stored",
		zap.String("device_id", d.ID.String()),
		zap.String("hardware_id", hardwareID),
		zap.Float64("co2_ppm", stored.CO2Level))

	s.afterReading(ctx, d, stored)
	return stored, nil
}

// AddReading stores a reading for a device addressed by its id.
func (s *Service) AddReading(ctx context.Context, deviceID uuid.UUID, co2 float64) (storage.Reading, error) {
	if co2 < 0 {
		return storage.Reading{}, fmt.Errorf("%w: co2Level must not be negative", ErrInvalidInput)
	}
	d, err := s.db.GetDevice(ctx, deviceID)
	if err != nil {
		return storage.Reading{}, deviceErr(err)
	}
	stored, err := s.db.CreateReading(ctx, d.ID, co2, s.now())
	if err != nil {
		return storage.Reading{}, fmt.Errorf("store reading: %w", err)
	}
	s.afterReading(ctx, d, stored)
	return stored, nil
}

// RecentReadings returns the device's readings of the last 24 hours,
// oldest first.
func (s *Service) RecentReadings(ctx context.Context, deviceID uuid.UUID) ([]sensor.Reading, error) {
	if _, err := s.db.GetDevice(ctx, deviceID); err != nil {
		return nil, deviceErr(err)
	}
	rs, err := s.db.ReadingsBetween(ctx, deviceID, s.now().Add(-recentWindow), time.Time{})
	if err != nil {
		return nil, err
	}
	return toSensor(rs), nil
}

// afterReading archives the reading, drops the cached summary and sends a
// notification for a new alert. Failures are logged only.
func (s *Service) afterReading(ctx context.Context, d storage.Device, r storage.Reading) {
	if s.archive != nil {
		row := store.StoredReading{
			Time:    r.Timestamp,
			Device:  d.HardwareID,
			Name:    d.Name,
			CO2:     r.CO2Level,
			Battery: d.BatteryLevel,
		}
		if err := s.archive.Write(row); err != nil {
			s.logger.Error("archive write failed", zap.String("device_id", d.ID.String()), zap.Error(err))
		}
	}

	if err := s.cache.Invalidate(ctx, d.ID.String()); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("device_id", d.ID.String()), zap.Error(err))
	}

	if s.notifier == nil || d.DiscordWebhook == "" {
		return
	}
	a, ok := alert.FromReading(sensor.Reading{Timestamp: r.Timestamp, CO2Level: r.CO2Level})
	if !ok {
		return
	}
	isNew, err := s.isNewAlert(ctx, d, r, a)
	if err != nil {
		s.logger.Error("alert check failed", zap.String("device_id", d.ID.String()), zap.Error(err))
		return
	}
	if !isNew {
		return
	}
	if err := s.notifier.Send(ctx, d.DiscordWebhook, d.Name, a); err != nil {
		s.logger.Error("alert notification failed",
			zap.String("device_id", d.ID.String()),
			zap.Float64("co2_ppm", r.CO2Level),
			zap.Error(err))
	}
}

// isNewAlert derives alerts from the readings preceding r and checks that
// a would not be folded into the most recent of them.
func (s *Service) isNewAlert(ctx context.Context, d storage.Device, r storage.Reading, a alert.Alert) (bool, error) {
	opts := alert.DetailOptions()
	latest, err := s.db.LatestReadings(ctx, d.ID, opts.WindowSize+1)
	if err != nil {
		return false, err
	}
	previous := make([]storage.Reading, 0, len(latest))
	for _, l := range latest {
		if l.ID != r.ID {
			previous = append(previous, l)
		}
	}
	return alert.IsNew(a, alert.Derive(toSensor(previous), opts), opts), nil
}
