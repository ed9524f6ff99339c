package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/co2dash/internal/sensor"
)

var base = time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)

func at(min int, ppm float64) sensor.Reading {
	return sensor.Reading{Timestamp: base.Add(time.Duration(min) * time.Minute), CO2Level: ppm}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ppm    float64
		want   Severity
		wantOK bool
	}{
		{420, "", false},
		{799.9, "", false},
		{800, Warning, true},
		{1199, Warning, true},
		{1200, Critical, true},
		{5000, Critical, true},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.ppm)
		assert.Equal(t, tt.want, got, "ppm %v", tt.ppm)
		assert.Equal(t, tt.wantOK, ok, "ppm %v", tt.ppm)
	}
}

func TestDeriveScenario(t *testing.T) {
	readings := []sensor.Reading{at(0, 1300), at(10, 1250), at(60, 900)}

	alerts := Derive(readings, Options{WindowSize: 10, DedupWindow: 30 * time.Minute, MaxAlerts: 5})

	require.Len(t, alerts, 2)
	assert.Equal(t, Critical, alerts[0].Severity)
	assert.True(t, alerts[0].Timestamp.Equal(base))
	assert.Equal(t, Warning, alerts[1].Severity)
	assert.True(t, alerts[1].Timestamp.Equal(base.Add(time.Hour)))
	assert.Equal(t, "Dangerous", alerts[0].Level)
	assert.Equal(t, "Try to ventilate - Elevated CO2 levels", alerts[1].Message)
}

func TestDeriveAllNormal(t *testing.T) {
	readings := []sensor.Reading{at(0, 400), at(5, 799), at(10, 650)}
	assert.Empty(t, Derive(readings, DetailOptions()))
	assert.Empty(t, Derive(nil, DetailOptions()))
}

func TestDeriveDedupAgainstLastKept(t *testing.T) {
	// Each warning is 20 minutes after the previous raw reading, but the
	// window is measured from the last kept alert: 0 kept, 20 dropped,
	// 40 kept (40 > 30), 60 dropped, 80 kept.
	readings := []sensor.Reading{at(0, 900), at(20, 900), at(40, 900), at(60, 900), at(80, 900)}

	alerts := Derive(readings, Options{WindowSize: 10, DedupWindow: 30 * time.Minute, MaxAlerts: 10})

	require.Len(t, alerts, 3)
	assert.True(t, alerts[0].Timestamp.Equal(at(0, 0).Timestamp))
	assert.True(t, alerts[1].Timestamp.Equal(at(40, 0).Timestamp))
	assert.True(t, alerts[2].Timestamp.Equal(at(80, 0).Timestamp))
}

func TestDeriveExactWindowIsSuppressed(t *testing.T) {
	readings := []sensor.Reading{at(0, 900), at(30, 900), at(31, 900)}
	alerts := Derive(readings, Options{WindowSize: 10, DedupWindow: 30 * time.Minute, MaxAlerts: 10})
	require.Len(t, alerts, 2)
	assert.True(t, alerts[1].Timestamp.Equal(at(31, 0).Timestamp))
}

func TestDeriveSeverityChangeResetsDedup(t *testing.T) {
	readings := []sensor.Reading{at(0, 900), at(1, 1300), at(2, 900), at(3, 1300)}
	alerts := Derive(readings, Options{WindowSize: 10, DedupWindow: 30 * time.Minute, MaxAlerts: 10})
	assert.Len(t, alerts, 4)
}

func TestDeriveWindowAndCap(t *testing.T) {
	var readings []sensor.Reading
	for i := 0; i < 20; i++ {
		// newest-first, one hour apart, alternating severities
		ppm := 900.0
		if i%2 == 1 {
			ppm = 1300
		}
		readings = append(readings, at(-60*i, ppm))
	}

	alerts := Derive(readings, DetailOptions())
	assert.Len(t, alerts, 3)

	alerts = Derive(readings, DashboardOptions())
	assert.Len(t, alerts, 5)

	alerts = Derive(readings, Options{WindowSize: 4, DedupWindow: time.Minute})
	assert.Len(t, alerts, 4)

	// zero options: default window of 10, no cap
	alerts = Derive(readings, Options{})
	assert.Len(t, alerts, DefaultWindowSize)

	// Readings past the window never produce alerts.
	tail := append([]sensor.Reading{at(0, 400), at(-1, 400)}, at(-2, 1500))
	assert.Empty(t, Derive(tail, Options{WindowSize: 2, DedupWindow: time.Minute, MaxAlerts: 5}))
}

func TestDeriveNoConsecutiveDuplicatesWithinWindow(t *testing.T) {
	var readings []sensor.Reading
	levels := []float64{1300, 1250, 900, 880, 1210, 790, 850, 1400, 1401, 820}
	for i, ppm := range levels {
		readings = append(readings, at(-7*i, ppm))
	}
	opts := Options{WindowSize: 10, DedupWindow: 15 * time.Minute, MaxAlerts: 10}
	alerts := Derive(readings, opts)
	for i := 1; i < len(alerts); i++ {
		prev, cur := alerts[i-1], alerts[i]
		if prev.Severity == cur.Severity {
			assert.Greater(t, absDuration(cur.Timestamp.Sub(prev.Timestamp)), opts.DedupWindow)
		}
	}
}

func TestDeriveLatestSortsFirst(t *testing.T) {
	readings := []sensor.Reading{at(0, 900), at(120, 1300)}
	alerts := DeriveLatest(readings, DetailOptions())
	require.Len(t, alerts, 2)
	assert.Equal(t, Critical, alerts[0].Severity)
}

func TestTagSortSummarize(t *testing.T) {
	a := Tag(Derive([]sensor.Reading{at(0, 1300)}, DetailOptions()), "Kitchen", "Main Building")
	b := Tag(Derive([]sensor.Reading{at(30, 900), at(5, 1250)}, DetailOptions()), "Office", "Main Building")

	all := append(a, b...)
	SortNewestFirst(all)

	require.Len(t, all, 3)
	assert.Equal(t, "Office", all[0].DeviceName)
	assert.Equal(t, "Office", all[1].DeviceName)
	assert.Equal(t, "Kitchen", all[2].DeviceName)
	assert.Contains(t, all[2].ID, "-Kitchen")
	assert.Equal(t, Summary{Total: 3, Critical: 2, Warning: 1}, Summarize(all))
}

func TestIsNew(t *testing.T) {
	opts := DetailOptions()
	prev := []Alert{{Severity: Warning, Timestamp: base}}

	warnSoon, ok := FromReading(at(20, 850))
	require.True(t, ok)
	assert.False(t, IsNew(warnSoon, prev, opts))

	warnLate, _ := FromReading(at(31, 850))
	assert.True(t, IsNew(warnLate, prev, opts))

	crit, _ := FromReading(at(1, 1250))
	assert.True(t, IsNew(crit, prev, opts))
	assert.True(t, IsNew(crit, nil, opts))

	_, ok = FromReading(at(0, 500))
	assert.False(t, ok)
}
