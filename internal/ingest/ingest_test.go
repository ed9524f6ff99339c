package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/config"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/service"
	"github.com/luki/co2dash/internal/storage"
)

type fakeRecorder struct {
	got   []sensor.GatewayPayload
	known map[string]bool
}

func (f *fakeRecorder) RecordGatewayReading(_ context.Context, p sensor.GatewayPayload) (storage.Reading, error) {
	if err := p.Validate(); err != nil {
		return storage.Reading{}, err
	}
	if !f.known[p.DeviceID] {
		return storage.Reading{}, service.ErrDeviceNotFound
	}
	f.got = append(f.got, p)
	return storage.Reading{ID: 1, DeviceID: uuid.New(), CO2Level: *p.CO2PPM}, nil
}

func TestHandleMessage(t *testing.T) {
	rec := &fakeRecorder{known: map[string]bool{"hw-1": true, "hw-2": true}}
	s := New(nil, config.MQTTConfig{Topic: "co2/+/reading"}, rec, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.HandleMessage(ctx, "co2/hw-1/reading", []byte(`{"co2_ppm": 800}`)))
	require.NoError(t, s.HandleMessage(ctx, "co2/other/reading", []byte(`{"deviceId": "hw-2", "co2_ppm": 650, "battery_percent": 90}`)))
	require.Len(t, rec.got, 2)
	assert.Equal(t, "hw-1", rec.got[0].DeviceID)
	assert.Equal(t, "hw-2", rec.got[1].DeviceID)
	assert.Equal(t, 90.0, *rec.got[1].BatteryPercent)

	err := s.HandleMessage(ctx, "co2/hw-9/reading", []byte(`{"co2_ppm": 800}`))
	assert.ErrorIs(t, err, service.ErrDeviceNotFound)

	err = s.HandleMessage(ctx, "sensors/raw", []byte(`{"co2_ppm": 800}`))
	assert.ErrorIs(t, err, sensor.ErrMissingDevice)

	assert.Error(t, s.HandleMessage(ctx, "co2/hw-1/reading", []byte(`garbage`)))
}
