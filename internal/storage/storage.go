// Package storage persists buildings, devices and readings in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

type Building struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Device struct {
	ID             uuid.UUID  `json:"id"`
	HardwareID     string     `json:"hardwareId"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	BuildingID     *uuid.UUID `json:"buildingId,omitempty"`
	BatteryLevel   *float64   `json:"batteryLevel,omitempty"`
	DiscordWebhook string     `json:"discordWebhook,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Sensor is a hardware id that reported through a gateway before it was
// registered as a device.
type Sensor struct {
	HardwareID   string    `json:"hardwareId"`
	BatteryLevel *float64  `json:"batteryLevel,omitempty"`
	LastSeen     time.Time `json:"lastSeen"`
}

type Reading struct {
	ID        int64     `json:"id"`
	DeviceID  uuid.UUID `json:"deviceId"`
	CO2Level  float64   `json:"co2Level"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultDeviceType is stored when a device is created without a type.
const DefaultDeviceType = "sensor"

// Open opens the SQLite file with WAL journaling and foreign keys enabled.
func Open(fileName string) (*sql.DB, error) {
	uri := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", fileName)
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

type SQLStorage struct {
	DB  *sql.DB
	log *zap.Logger
}

func New(db *sql.DB, log *zap.Logger) *SQLStorage {
	return &SQLStorage{DB: db, log: log}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS building (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at_unix INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS device (
		id TEXT PRIMARY KEY,
		hardware_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		building_id TEXT REFERENCES building(id) ON DELETE SET NULL,
		battery_level REAL,
		discord_webhook TEXT NOT NULL DEFAULT '',
		created_at_unix INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reading (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL REFERENCES device(id) ON DELETE CASCADE,
		co2_level REAL NOT NULL,
		timestamp_unix INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sensor (
		hardware_id TEXT PRIMARY KEY,
		battery_level REAL,
		last_seen_unix INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reading_device_timestamp
		ON reading(device_id, timestamp_unix DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_reading_timestamp ON reading(timestamp_unix)`,
}

// InitDB creates missing tables and indexes.
func (s *SQLStorage) InitDB(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	s.log.Debug("schema ready")
	return nil
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
