package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/cache"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/stats"
	"github.com/luki/co2dash/internal/storage"
)

// DeviceDetail is a device with its latest readings, newest first, and the
// figures computed from them.
type DeviceDetail struct {
	storage.Device
	Readings []sensor.Reading `json:"readings"`
	Stats    stats.Stats      `json:"stats"`
	Alerts   []alert.Alert    `json:"alerts"`
}

// DeviceInput creates a device. HardwareID is required.
type DeviceInput struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	HardwareID     string     `json:"deviceId"`
	BuildingID     *uuid.UUID `json:"building,omitempty"`
	BatteryLevel   *float64   `json:"batteryLevel,omitempty"`
	DiscordWebhook string     `json:"discordWebhook"`
}

// DevicePatch updates only the fields that are set.
type DevicePatch struct {
	Name           *string    `json:"name"`
	Type           *string    `json:"type"`
	HardwareID     *string    `json:"deviceId"`
	BuildingID     *uuid.UUID `json:"building"`
	BatteryLevel   *float64   `json:"batteryLevel"`
	DiscordWebhook *string    `json:"discordWebhook"`
}

func (s *Service) ListDevices(ctx context.Context) ([]storage.Device, error) {
	return s.db.ListDevices(ctx)
}

func (s *Service) GetDevice(ctx context.Context, id uuid.UUID) (DeviceDetail, error) {
	d, err := s.db.GetDevice(ctx, id)
	if err != nil {
		return DeviceDetail{}, deviceErr(err)
	}
	return s.detail(ctx, d)
}

func (s *Service) CreateDevice(ctx context.Context, in DeviceInput) (storage.Device, error) {
	in.HardwareID = strings.TrimSpace(in.HardwareID)
	if in.HardwareID == "" {
		return storage.Device{}, fmt.Errorf("%w: deviceId is required", ErrInvalidInput)
	}
	if in.BuildingID != nil {
		if _, err := s.db.GetBuilding(ctx, *in.BuildingID); err != nil {
			return storage.Device{}, buildingErr(err)
		}
	}

	name, battery, err := s.defaults(ctx, in.HardwareID)
	if err != nil {
		return storage.Device{}, err
	}
	if strings.TrimSpace(in.Name) != "" {
		name = strings.TrimSpace(in.Name)
	}
	if in.BatteryLevel != nil {
		battery = *in.BatteryLevel
	}

	d, err := s.db.CreateDevice(ctx, storage.Device{
		HardwareID:     in.HardwareID,
		Name:           name,
		Type:           in.Type,
		BuildingID:     in.BuildingID,
		BatteryLevel:   &battery,
		DiscordWebhook: in.DiscordWebhook,
	})
	if err != nil {
		return storage.Device{}, fmt.Errorf("create device: %w", err)
	}
	s.logger.Info("device created", zap.String("device_id", d.ID.String()), zap.String("hardware_id", d.HardwareID))
	return d, nil
}

func (s *Service) UpdateDevice(ctx context.Context, id uuid.UUID, p DevicePatch) (storage.Device, error) {
	d, err := s.db.GetDevice(ctx, id)
	if err != nil {
		return storage.Device{}, deviceErr(err)
	}

	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.HardwareID != nil {
		if strings.TrimSpace(*p.HardwareID) == "" {
			return storage.Device{}, fmt.Errorf("%w: deviceId cannot be empty", ErrInvalidInput)
		}
		d.HardwareID = strings.TrimSpace(*p.HardwareID)
	}
	if p.BuildingID != nil {
		if _, err := s.db.GetBuilding(ctx, *p.BuildingID); err != nil {
			return storage.Device{}, buildingErr(err)
		}
		d.BuildingID = p.BuildingID
	}
	if p.BatteryLevel != nil {
		d.BatteryLevel = p.BatteryLevel
	}
	if p.DiscordWebhook != nil {
		d.DiscordWebhook = *p.DiscordWebhook
	}

	if err := s.db.UpdateDevice(ctx, d); err != nil {
		return storage.Device{}, deviceErr(err)
	}
	return d, nil
}

func (s *Service) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	if err := s.db.DeleteDevice(ctx, id); err != nil {
		return deviceErr(err)
	}
	if err := s.cache.Invalidate(ctx, id.String()); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("device_id", id.String()), zap.Error(err))
	}
	s.logger.Info("device deleted", zap.String("device_id", id.String()))
	return nil
}

// detail serves the device summary from the cache, computing and storing it
// on a miss.
func (s *Service) detail(ctx context.Context, d storage.Device) (DeviceDetail, error) {
	key := d.ID.String()
	sum, err := s.cache.Get(ctx, key)
	if err == nil {
		return DeviceDetail{Device: d, Readings: sum.Readings, Stats: sum.Stats, Alerts: sum.Alerts}, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cache read failed", zap.String("device_id", key), zap.Error(err))
	}

	latest, err := s.db.LatestReadings(ctx, d.ID, detailReadingLimit)
	if err != nil {
		return DeviceDetail{}, fmt.Errorf("latest readings: %w", err)
	}
	readings := toSensor(latest)
	sum = cache.Summary{
		Readings: readings,
		Stats:    stats.Compute(readings),
		Alerts:   alert.Derive(readings, alert.DetailOptions()),
	}
	if err := s.cache.Set(ctx, key, sum); err != nil {
		s.logger.Warn("cache write failed", zap.String("device_id", key), zap.Error(err))
	}
	return DeviceDetail{Device: d, Readings: sum.Readings, Stats: sum.Stats, Alerts: sum.Alerts}, nil
}
