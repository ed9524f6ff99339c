package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const deviceColumns = `id, hardware_id, name, type, building_id, battery_level, discord_webhook, created_at_unix`

// CreateDevice inserts d with a fresh id. Type defaults to DefaultDeviceType.
func (s *SQLStorage) CreateDevice(ctx context.Context, d Device) (Device, error) {
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC().Truncate(time.Second)
	if d.Type == "" {
		d.Type = DefaultDeviceType
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO device (`+deviceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.HardwareID, d.Name, d.Type, nullID(d.BuildingID),
		nullFloat(d.BatteryLevel), d.DiscordWebhook, d.CreatedAt.Unix())
	if err != nil {
		return Device{}, err
	}
	return d, nil
}

func (s *SQLStorage) ListDevices(ctx context.Context) ([]Device, error) {
	return s.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM device ORDER BY created_at_unix, hardware_id`)
}

func (s *SQLStorage) ListDevicesByBuilding(ctx context.Context, buildingID uuid.UUID) ([]Device, error) {
	return s.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM device WHERE building_id = ? ORDER BY created_at_unix, hardware_id`,
		buildingID.String())
}

func (s *SQLStorage) GetDevice(ctx context.Context, id uuid.UUID) (Device, error) {
	return s.getDevice(ctx, `SELECT `+deviceColumns+` FROM device WHERE id = ?`, id.String())
}

func (s *SQLStorage) GetDeviceByHardwareID(ctx context.Context, hardwareID string) (Device, error) {
	return s.getDevice(ctx, `SELECT `+deviceColumns+` FROM device WHERE hardware_id = ?`, hardwareID)
}

// UpdateDevice overwrites the mutable fields of the device with d.ID.
func (s *SQLStorage) UpdateDevice(ctx context.Context, d Device) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE device SET hardware_id = ?, name = ?, type = ?, building_id = ?, battery_level = ?, discord_webhook = ? WHERE id = ?`,
		d.HardwareID, d.Name, d.Type, nullID(d.BuildingID), nullFloat(d.BatteryLevel), d.DiscordWebhook, d.ID.String())
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *SQLStorage) UpdateBattery(ctx context.Context, id uuid.UUID, level float64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE device SET battery_level = ? WHERE id = ?`, level, id.String())
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteDevice removes the device and, by cascade, its readings.
func (s *SQLStorage) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM device WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *SQLStorage) CountDevices(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM device`).Scan(&n)
	return n, err
}

func (s *SQLStorage) getDevice(ctx context.Context, query string, arg any) (Device, error) {
	d, err := scanDevice(s.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Device{}, ErrNotFound
	}
	return d, err
}

func (s *SQLStorage) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func scanDevice(sc scanner) (Device, error) {
	var (
		d        Device
		building uuid.NullUUID
		battery  sql.NullFloat64
		created  int64
	)
	err := sc.Scan(&d.ID, &d.HardwareID, &d.Name, &d.Type, &building, &battery, &d.DiscordWebhook, &created)
	if err != nil {
		return Device{}, err
	}
	if building.Valid {
		id := building.UUID
		d.BuildingID = &id
	}
	if battery.Valid {
		level := battery.Float64
		d.BatteryLevel = &level
	}
	d.CreatedAt = fromUnix(created)
	return d, nil
}

func nullID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
