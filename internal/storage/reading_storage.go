package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

func (s *SQLStorage) CreateReading(ctx context.Context, deviceID uuid.UUID, co2 float64, ts time.Time) (Reading, error) {
	ts = ts.UTC().Truncate(time.Second)
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO reading (device_id, co2_level, timestamp_unix) VALUES (?, ?, ?)`,
		deviceID.String(), co2, ts.Unix())
	if err != nil {
		return Reading{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reading{}, err
	}
	return Reading{ID: id, DeviceID: deviceID, CO2Level: co2, Timestamp: ts}, nil
}

// LatestReadings returns at most limit readings of the device, newest first.
func (s *SQLStorage) LatestReadings(ctx context.Context, deviceID uuid.UUID, limit int) ([]Reading, error) {
	return s.queryReadings(ctx, `
		SELECT id, device_id, co2_level, timestamp_unix FROM reading
		WHERE device_id = ?
		ORDER BY timestamp_unix DESC, id DESC
		LIMIT ?`, deviceID.String(), limit)
}

// ReadingsBetween returns readings in [from, to), oldest first. A zero bound
// is open.
func (s *SQLStorage) ReadingsBetween(ctx context.Context, deviceID uuid.UUID, from, to time.Time) ([]Reading, error) {
	query := `SELECT id, device_id, co2_level, timestamp_unix FROM reading WHERE device_id = ?`
	args := []any{deviceID.String()}
	if !from.IsZero() {
		query += ` AND timestamp_unix >= ?`
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += ` AND timestamp_unix < ?`
		args = append(args, to.Unix())
	}
	query += ` ORDER BY timestamp_unix, id`
	return s.queryReadings(ctx, query, args...)
}

// DevicesWithReadingsBefore lists the devices that own readings older than
// cutoff.
func (s *SQLStorage) DevicesWithReadingsBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT device_id FROM reading WHERE timestamp_unix < ?`, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteReadingsBefore deletes up to batch readings older than cutoff and
// reports how many went.
func (s *SQLStorage) DeleteReadingsBefore(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM reading WHERE id IN (
			SELECT id FROM reading WHERE timestamp_unix < ? LIMIT ?
		)`, cutoff.Unix(), batch)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStorage) queryReadings(ctx context.Context, query string, args ...any) ([]Reading, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		var (
			r  Reading
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.CO2Level, &ts); err != nil {
			return nil, err
		}
		r.Timestamp = fromUnix(ts)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
