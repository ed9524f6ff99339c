package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/co2dash/internal/sensor"
)

func series(start time.Time, step time.Duration, n int) []sensor.Reading {
	out := make([]sensor.Reading, n)
	for i := range out {
		out[i] = sensor.Reading{Timestamp: start.Add(time.Duration(i) * step), CO2Level: float64(400 + i)}
	}
	return out
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, All, got)

	_, err = ParseMode("month")
	assert.Error(t, err)
}

func TestNextCycles(t *testing.T) {
	m := Day
	seen := map[Mode]bool{}
	for i := 0; i < len(Modes); i++ {
		seen[m] = true
		m = m.Next()
	}
	assert.Equal(t, Day, m)
	assert.Len(t, seen, len(Modes))
}

func TestFilterDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ref := time.Date(2026, 2, 21, 15, 0, 0, 0, loc)
	readings := series(time.Date(2026, 2, 20, 0, 0, 0, 0, loc), time.Hour, 72)

	got := Filter(readings, Day, ref, ref)

	require.Len(t, got, 24)
	for _, r := range got {
		y, m, d := r.Timestamp.In(loc).Date()
		assert.Equal(t, 2026, y)
		assert.Equal(t, time.February, m)
		assert.Equal(t, 21, d)
	}
}

func TestFilterDayUsesReferenceLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ref := time.Date(2026, 2, 21, 12, 0, 0, 0, loc)
	// 23:30 UTC on the 20th is 00:30 on the 21st in CET.
	r := sensor.Reading{Timestamp: time.Date(2026, 2, 20, 23, 30, 0, 0, time.UTC), CO2Level: 500}

	got := Filter([]sensor.Reading{r}, Day, ref, ref)
	assert.Len(t, got, 1)
}

func TestFilterWeekIsCalendarAligned(t *testing.T) {
	ref := time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)
	readings := series(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 6*time.Hour, 60)

	got := Filter(readings, Week, ref, ref)

	require.NotEmpty(t, got)
	assert.True(t, got[0].Timestamp.Equal(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got[len(got)-1].Timestamp.Equal(time.Date(2026, 2, 21, 18, 0, 0, 0, time.UTC)))
	assert.Len(t, got, 28)
}

func TestFilterRollingTrailsNow(t *testing.T) {
	now := time.Date(2026, 2, 21, 9, 30, 0, 0, time.UTC)
	ref := time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC) // ignored by rolling modes
	readings := series(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), time.Hour, 24*12)

	day := Filter(readings, Last24h, ref, now)
	require.NotEmpty(t, day)
	assert.False(t, day[0].Timestamp.Before(now.Add(-24*time.Hour)))
	for _, r := range day {
		assert.False(t, r.Timestamp.After(now))
	}
	assert.Len(t, day, 24)

	week := Filter(readings, Last7d, ref, now)
	assert.Len(t, week, 24*7)
}

func TestRollingAndCalendarDiffer(t *testing.T) {
	now := time.Date(2026, 2, 21, 9, 30, 0, 0, time.UTC)
	readings := series(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), time.Hour, 34)

	day := Filter(readings, Day, now, now)
	rolling := Filter(readings, Last24h, now, now)
	assert.NotEqual(t, len(day), len(rolling))
}

func TestFilterAllCopies(t *testing.T) {
	readings := series(time.Now(), time.Minute, 3)
	got := Filter(readings, All, time.Now(), time.Now())
	require.Len(t, got, 3)
	got[0].CO2Level = 0
	assert.Equal(t, 400.0, readings[0].CO2Level)
	assert.Empty(t, Filter(nil, Day, time.Now(), time.Now()))
}
