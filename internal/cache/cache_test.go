package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/stats"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	mr := miniredis.RunT(t)
	return mr, New(NewClient(mr.Addr(), "", 0), time.Minute)
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	want := Summary{
		Stats: stats.Stats{Current: 1250, Average: 980, Peak: 1300},
		Alerts: []alert.Alert{{
			ID:        "1772355600000-1250",
			Severity:  alert.Critical,
			Level:     "Dangerous",
			CO2Level:  1250,
			Timestamp: ts,
			Message:   alert.Critical.Message(),
		}},
	}

	require.NoError(t, c.Set(ctx, "dev-1", want))
	assert.True(t, mr.Exists("co2dash:device:dev-1:summary"))
	assert.Equal(t, time.Minute, mr.TTL("co2dash:device:dev-1:summary"))

	got, err := c.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, want.Stats, got.Stats)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, alert.Critical, got.Alerts[0].Severity)
	assert.True(t, got.Alerts[0].Timestamp.Equal(ts))
}

func TestRedisCache_MissAndInvalidate(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "dev-2", Summary{}))
	require.NoError(t, c.Invalidate(ctx, "dev-2"))
	_, err = c.Get(ctx, "dev-2")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_Expires(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "dev-3", Summary{}))
	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "dev-3")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNop(t *testing.T) {
	var n Nop
	_, err := n.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, n.Set(context.Background(), "x", Summary{}))
}
