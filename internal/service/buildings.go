package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/storage"
)

const (
	minBuildingName = 3
	maxBuildingName = 50
)

// BuildingDetail is a building with every device's detail summary.
type BuildingDetail struct {
	storage.Building
	Devices []DeviceDetail `json:"devices"`
}

func ValidateBuildingName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minBuildingName || n > maxBuildingName {
		return fmt.Errorf("%w: building name must be %d to %d characters", ErrInvalidInput, minBuildingName, maxBuildingName)
	}
	return nil
}

func (s *Service) CreateBuilding(ctx context.Context, name string) (storage.Building, error) {
	if err := ValidateBuildingName(name); err != nil {
		return storage.Building{}, err
	}
	b, err := s.db.CreateBuilding(ctx, strings.TrimSpace(name))
	if err != nil {
		return storage.Building{}, fmt.Errorf("create building: %w", err)
	}
	s.logger.Info("building created", zap.String("building_id", b.ID.String()), zap.String("name", b.Name))
	return b, nil
}

func (s *Service) ListBuildings(ctx context.Context) ([]storage.Building, error) {
	return s.db.ListBuildings(ctx)
}

// GetBuilding returns the building with stats and detail alerts for each of
// its devices.
func (s *Service) GetBuilding(ctx context.Context, id uuid.UUID) (BuildingDetail, error) {
	b, err := s.db.GetBuilding(ctx, id)
	if err != nil {
		return BuildingDetail{}, buildingErr(err)
	}
	devices, err := s.db.ListDevicesByBuilding(ctx, id)
	if err != nil {
		return BuildingDetail{}, fmt.Errorf("list building devices: %w", err)
	}

	detail := BuildingDetail{Building: b, Devices: make([]DeviceDetail, 0, len(devices))}
	for _, d := range devices {
		dd, err := s.detail(ctx, d)
		if err != nil {
			return BuildingDetail{}, err
		}
		detail.Devices = append(detail.Devices, dd)
	}
	return detail, nil
}

func (s *Service) DeleteBuilding(ctx context.Context, id uuid.UUID) error {
	if err := s.db.DeleteBuilding(ctx, id); err != nil {
		return buildingErr(err)
	}
	s.logger.Info("building deleted", zap.String("building_id", id.String()))
	return nil
}

// AddDeviceToBuilding attaches the device with hardwareID to the building,
// creating the device first when it is unknown.
func (s *Service) AddDeviceToBuilding(ctx context.Context, buildingID uuid.UUID, hardwareID string) (storage.Device, error) {
	hardwareID = strings.TrimSpace(hardwareID)
	if hardwareID == "" {
		return storage.Device{}, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}
	if _, err := s.db.GetBuilding(ctx, buildingID); err != nil {
		return storage.Device{}, buildingErr(err)
	}

	d, err := s.db.GetDeviceByHardwareID(ctx, hardwareID)
	switch {
	case err == nil:
		d.BuildingID = &buildingID
		if err := s.db.UpdateDevice(ctx, d); err != nil {
			return storage.Device{}, fmt.Errorf("attach device: %w", err)
		}
		return d, nil
	case deviceErr(err) != ErrDeviceNotFound:
		return storage.Device{}, err
	}

	name, battery, err := s.defaults(ctx, hardwareID)
	if err != nil {
		return storage.Device{}, err
	}
	d, err = s.db.CreateDevice(ctx, storage.Device{
		HardwareID:   hardwareID,
		Name:         name,
		BuildingID:   &buildingID,
		BatteryLevel: &battery,
	})
	if err != nil {
		return storage.Device{}, fmt.Errorf("create device: %w", err)
	}
	s.logger.Info("device created",
		zap.String("device_id", d.ID.String()),
		zap.String("hardware_id", hardwareID),
		zap.String("building_id", buildingID.String()))
	return d, nil
}

// RemoveDeviceFromBuilding detaches the device. It is not an error when the
// device belongs elsewhere.
func (s *Service) RemoveDeviceFromBuilding(ctx context.Context, buildingID, deviceID uuid.UUID) error {
	if _, err := s.db.GetBuilding(ctx, buildingID); err != nil {
		return buildingErr(err)
	}
	d, err := s.db.GetDevice(ctx, deviceID)
	if err != nil {
		return deviceErr(err)
	}
	if d.BuildingID == nil || *d.BuildingID != buildingID {
		return nil
	}
	d.BuildingID = nil
	return s.db.UpdateDevice(ctx, d)
}

// defaults picks the name and battery level for a device registered
// without them. Hardware that already reported through a gateway keeps its
// last battery level.
func (s *Service) defaults(ctx context.Context, hardwareID string) (string, float64, error) {
	sn, err := s.db.GetSensor(ctx, hardwareID)
	if err != nil {
		if deviceErr(err) == ErrDeviceNotFound {
			return sensor.DefaultName(hardwareID, false), defaultBattery, nil
		}
		return "", 0, err
	}
	battery := defaultBattery
	if sn.BatteryLevel != nil {
		battery = *sn.BatteryLevel
	}
	return sensor.DefaultName(hardwareID, true), battery, nil
}
