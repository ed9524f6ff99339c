// Package service joins persistence, the reading archive, the summary cache
// and the notifier with the statistics, alert and chart computations.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/cache"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/storage"
	"github.com/luki/co2dash/internal/store"
)

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrBuildingNotFound = errors.New("building not found")
	ErrInvalidInput     = errors.New("invalid input")
)

const (
	// readings shown on device and building detail views
	detailReadingLimit = 50
	recentWindow       = 24 * time.Hour
	defaultBattery     = 100.0
)

// Storage is the persistence the service needs; *storage.SQLStorage
// implements it.
type Storage interface {
	CreateBuilding(ctx context.Context, name string) (storage.Building, error)
	ListBuildings(ctx context.Context) ([]storage.Building, error)
	GetBuilding(ctx context.Context, id uuid.UUID) (storage.Building, error)
	DeleteBuilding(ctx context.Context, id uuid.UUID) error
	CountBuildings(ctx context.Context) (int, error)

	CreateDevice(ctx context.Context, d storage.Device) (storage.Device, error)
	ListDevices(ctx context.Context) ([]storage.Device, error)
	ListDevicesByBuilding(ctx context.Context, buildingID uuid.UUID) ([]storage.Device, error)
	GetDevice(ctx context.Context, id uuid.UUID) (storage.Device, error)
	GetDeviceByHardwareID(ctx context.Context, hardwareID string) (storage.Device, error)
	UpdateDevice(ctx context.Context, d storage.Device) error
	UpdateBattery(ctx context.Context, id uuid.UUID, level float64) error
	DeleteDevice(ctx context.Context, id uuid.UUID) error
	CountDevices(ctx context.Context) (int, error)

	CreateReading(ctx context.Context, deviceID uuid.UUID, co2 float64, ts time.Time) (storage.Reading, error)
	LatestReadings(ctx context.Context, deviceID uuid.UUID, limit int) ([]storage.Reading, error)
	ReadingsBetween(ctx context.Context, deviceID uuid.UUID, from, to time.Time) ([]storage.Reading, error)

	UpsertSensor(ctx context.Context, hardwareID string, battery *float64, seen time.Time) error
	GetSensor(ctx context.Context, hardwareID string) (storage.Sensor, error)
}

// Archive receives a copy of every stored reading.
type Archive interface {
	Write(rows ...store.StoredReading) error
}

type SummaryCache interface {
	Get(ctx context.Context, deviceID string) (cache.Summary, error)
	Set(ctx context.Context, deviceID string, s cache.Summary) error
	Invalidate(ctx context.Context, deviceID string) error
}

type Notifier interface {
	Send(ctx context.Context, webhookURL, deviceName string, a alert.Alert) error
}

// Deps are the optional collaborators. Nil members are disabled.
type Deps struct {
	Archive  Archive
	Cache    SummaryCache
	Notifier Notifier
}

type Service struct {
	db       Storage
	archive  Archive
	cache    SummaryCache
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func New(db Storage, deps Deps, logger *zap.Logger) *Service {
	s := &Service{
		db:       db,
		archive:  deps.Archive,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		logger:   logger,
		now:      time.Now,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	return s
}

func toSensor(rs []storage.Reading) []sensor.Reading {
	out := make([]sensor.Reading, len(rs))
	for i, r := range rs {
		out[i] = sensor.Reading{Timestamp: r.Timestamp, CO2Level: r.CO2Level}
	}
	return out
}

func deviceErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrDeviceNotFound
	}
	return err
}

func buildingErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrBuildingNotFound
	}
	return err
}
