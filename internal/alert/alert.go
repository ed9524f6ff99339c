// Package alert derives threshold alerts from the most recent readings of a
// device and de-duplicates them so a sustained excursion shows up once.
package alert

import (
	"fmt"
	"sort"
	"time"

	"github.com/luki/co2dash/internal/sensor"
)

// Classification thresholds in ppm.
const (
	WarningPPM  = 800.0
	CriticalPPM = 1200.0
)

// Severity of a derived alert.
type Severity string

const (
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

// Level is the human label shown next to the severity.
func (s Severity) Level() string {
	switch s {
	case Critical:
		return "Dangerous"
	case Warning:
		return "Medium"
	default:
		return ""
	}
}

// Message is the advice attached to alerts of this severity.
func (s Severity) Message() string {
	switch s {
	case Critical:
		return "Ventilate immediately - Dangerous CO2 levels!"
	case Warning:
		return "Try to ventilate - Elevated CO2 levels"
	default:
		return ""
	}
}

// Alert is derived per computation pass and never persisted.
type Alert struct {
	ID           string    `json:"id"`
	Severity     Severity  `json:"severity"`
	Level        string    `json:"level"`
	CO2Level     float64   `json:"co2Level"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
	DeviceName   string    `json:"deviceName,omitempty"`
	BuildingName string    `json:"buildingName,omitempty"`
}

// Classify maps a ppm value to a severity. ok is false for normal levels.
func Classify(ppm float64) (Severity, bool) {
	switch {
	case ppm >= CriticalPPM:
		return Critical, true
	case ppm >= WarningPPM:
		return Warning, true
	default:
		return "", false
	}
}

// DefaultWindowSize is used when Options.WindowSize is zero.
const DefaultWindowSize = 10

// Options parameterise derivation. A zero WindowSize means
// DefaultWindowSize; a zero MaxAlerts leaves the result uncapped.
type Options struct {
	WindowSize  int           // how many leading readings are considered
	DedupWindow time.Duration // same-severity alerts closer than this to the last kept one are dropped
	MaxAlerts   int           // cap on the returned list
}

func (o Options) window() int {
	if o.WindowSize <= 0 {
		return DefaultWindowSize
	}
	return o.WindowSize
}

// DetailOptions are used on a single building's device cards.
func DetailOptions() Options {
	return Options{WindowSize: DefaultWindowSize, DedupWindow: 30 * time.Minute, MaxAlerts: 3}
}

// DashboardOptions are used for the cross-building alert dashboard.
func DashboardOptions() Options {
	return Options{WindowSize: DefaultWindowSize, DedupWindow: 15 * time.Minute, MaxAlerts: 5}
}

// Derive classifies the first WindowSize readings in the order given and
// suppresses an alert when it has the same severity as the last kept alert
// and lies within DedupWindow of it. The result keeps traversal order and
// holds at most MaxAlerts entries.
//
// Derive does not sort: callers that cannot guarantee newest-first input
// should use DeriveLatest.
func Derive(readings []sensor.Reading, opts Options) []Alert {
	if len(readings) == 0 {
		return nil
	}
	window := readings
	if n := opts.window(); len(window) > n {
		window = window[:n]
	}

	var kept []Alert
	for _, r := range window {
		sev, ok := Classify(r.CO2Level)
		if !ok {
			continue
		}
		a := newAlert(sev, r)
		if n := len(kept); n > 0 {
			last := kept[n-1]
			if last.Severity == a.Severity && absDuration(a.Timestamp.Sub(last.Timestamp)) <= opts.DedupWindow {
				continue
			}
		}
		kept = append(kept, a)
	}

	if opts.MaxAlerts > 0 && len(kept) > opts.MaxAlerts {
		kept = kept[:opts.MaxAlerts]
	}
	return kept
}

// DeriveLatest sorts readings newest-first before deriving.
func DeriveLatest(readings []sensor.Reading, opts Options) []Alert {
	return Derive(sensor.SortNewestFirst(readings), opts)
}

// Tag sets the device and building names on every alert and extends the
// id with the device so alerts from different devices never collide.
func Tag(alerts []Alert, deviceName, buildingName string) []Alert {
	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		a.DeviceName = deviceName
		a.BuildingName = buildingName
		if deviceName != "" {
			a.ID = a.ID + "-" + deviceName
		}
		out[i] = a
	}
	return out
}

// SortNewestFirst orders alerts merged from several devices.
func SortNewestFirst(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
}

// Summary counts alerts per severity.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
}

// Summarize counts alerts.
func Summarize(alerts []Alert) Summary {
	s := Summary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case Critical:
			s.Critical++
		case Warning:
			s.Warning++
		}
	}
	return s
}

func newAlert(sev Severity, r sensor.Reading) Alert {
	return Alert{
		ID:        fmt.Sprintf("%d-%g", r.Timestamp.UnixMilli(), r.CO2Level),
		Severity:  sev,
		Level:     sev.Level(),
		CO2Level:  r.CO2Level,
		Timestamp: r.Timestamp,
		Message:   sev.Message(),
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// IsNew reports whether a would survive de-duplication against previous,
// the alerts already derived (newest first) from the readings before a.
func IsNew(a Alert, previous []Alert, opts Options) bool {
	if len(previous) == 0 {
		return true
	}
	last := previous[0]
	return last.Severity != a.Severity || absDuration(a.Timestamp.Sub(last.Timestamp)) > opts.DedupWindow
}

// FromReading builds the alert for a single reading. ok is false when the
// level is normal.
func FromReading(r sensor.Reading) (Alert, bool) {
	sev, ok := Classify(r.CO2Level)
	if !ok {
		return Alert{}, false
	}
	return newAlert(sev, r), true
}
