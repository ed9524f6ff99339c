package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertSensor records that hardwareID reported at seen. A nil battery
// keeps the previously known level.
func (s *SQLStorage) UpsertSensor(ctx context.Context, hardwareID string, battery *float64, seen time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sensor (hardware_id, battery_level, last_seen_unix)
		VALUES (?, ?, ?)
		ON CONFLICT(hardware_id) DO UPDATE SET
			battery_level = COALESCE(excluded.battery_level, sensor.battery_level),
			last_seen_unix = excluded.last_seen_unix
	`, hardwareID, nullFloat(battery), seen.UTC().Unix())
	return err
}

func (s *SQLStorage) GetSensor(ctx context.Context, hardwareID string) (Sensor, error) {
	var (
		sn      Sensor
		battery sql.NullFloat64
		seen    int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT hardware_id, battery_level, last_seen_unix FROM sensor WHERE hardware_id = ?`, hardwareID).
		Scan(&sn.HardwareID, &battery, &seen)
	if errors.Is(err, sql.ErrNoRows) {
		return Sensor{}, ErrNotFound
	}
	if err != nil {
		return Sensor{}, err
	}
	if battery.Valid {
		level := battery.Float64
		sn.BatteryLevel = &level
	}
	sn.LastSeen = fromUnix(seen)
	return sn, nil
}
