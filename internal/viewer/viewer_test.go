package viewer

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/co2dash/internal/store"
	"github.com/luki/co2dash/internal/window"
)

var testNow = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testRows() []store.StoredReading {
	var rows []store.StoredReading
	// yesterday around noon
	for i := 0; i < 5; i++ {
		rows = append(rows, store.StoredReading{
			Time:   time.Date(2026, 3, 9, 11, i*10, 0, 0, time.UTC),
			Device: "AA:01", Name: "Meeting Room", CO2: 600,
		})
	}
	// today around noon, one spike
	for i := 0; i < 6; i++ {
		co2 := 700.0
		if i == 3 {
			co2 = 1350
		}
		rows = append(rows, store.StoredReading{
			Time:   time.Date(2026, 3, 10, 11, i*10, 0, 0, time.UTC),
			Device: "AA:01", Name: "Meeting Room", CO2: co2,
		})
	}
	rows = append(rows, store.StoredReading{
		Time: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), Device: "BB:02", Name: "Lab", CO2: 500,
	})
	return rows
}

func press(m model, key string) model {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, _ := m.Update(msg)
	return updated.(model)
}

func sized(m model) model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return updated.(model)
}

func TestNewModelGroupsDevices(t *testing.T) {
	m := newModel(testRows(), fixedNow)
	if len(m.devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(m.devices))
	}
	if m.devices[0].name != "Meeting Room" || m.devices[1].name != "Lab" {
		t.Errorf("names = %q, %q", m.devices[0].name, m.devices[1].name)
	}
	if m.mode != window.Day {
		t.Errorf("mode = %v, want day", m.mode)
	}
	if got := m.ref.Format("2006-01-02"); got != "2026-03-10" {
		t.Errorf("ref = %s, want newest reading's date", got)
	}
	if n := len(m.visible()); n != 6 {
		t.Errorf("visible = %d, want today's 6", n)
	}
}

func TestDayNavigation(t *testing.T) {
	m := newModel(testRows(), fixedNow)

	m = press(m, "[")
	if n := len(m.visible()); n != 5 {
		t.Errorf("previous day visible = %d, want 5", n)
	}
	m = press(m, "]")
	m = press(m, "]") // would move past today
	if got := m.ref.Format("2006-01-02"); got != "2026-03-10" {
		t.Errorf("ref = %s, must not pass today", got)
	}
}

func TestModeCycle(t *testing.T) {
	m := newModel(testRows(), fixedNow)
	m = press(m, "m")
	if m.mode != window.Week {
		t.Fatalf("mode = %v, want week", m.mode)
	}
	if n := len(m.visible()); n != 11 {
		t.Errorf("week visible = %d, want 11", n)
	}
	m = press(m, "m")
	if m.mode != window.Last24h {
		t.Fatalf("mode = %v, want 24h", m.mode)
	}
	if n := len(m.visible()); n != 6 {
		t.Errorf("24h visible = %d, want 6", n)
	}
}

func TestDeviceSwitch(t *testing.T) {
	m := newModel(testRows(), fixedNow)
	m = press(m, "tab")
	if m.devIdx != 1 {
		t.Fatalf("devIdx = %d, want 1", m.devIdx)
	}
	m = press(m, "tab")
	if m.devIdx != 0 {
		t.Errorf("devIdx = %d, want wrap to 0", m.devIdx)
	}
}

func TestPointerAndTooltip(t *testing.T) {
	m := sized(newModel(testRows(), fixedNow))
	cols := m.plotCols()
	if m.pointerCol() != cols-1 {
		t.Fatalf("pointer starts at %d, want last column %d", m.pointerCol(), cols-1)
	}

	m = press(m, "h")
	if m.pointerCol() != cols-2 {
		t.Errorf("pointer = %d, want %d", m.pointerCol(), cols-2)
	}

	// six points spread over the plot; the spike is the fourth
	spikeCol := (cols - 1) * 3 / 5
	updated, _ := m.Update(tea.MouseMsg{X: spikeCol + 2 + axisW, Y: 5, Action: tea.MouseActionMotion})
	m = updated.(model)
	if m.pointerCol() != spikeCol {
		t.Fatalf("pointer = %d, want %d", m.pointerCol(), spikeCol)
	}

	view := m.View()
	for _, want := range []string{"CO2 HISTORY", "Meeting Room", "1350 ppm", "Ventilate immediately"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	t.Logf("\n%s", view)
}

func TestEmptyRange(t *testing.T) {
	m := sized(newModel(testRows(), fixedNow))
	m = press(m, "[")
	m = press(m, "[")
	if !strings.Contains(m.View(), "No readings in day") {
		t.Errorf("expected empty-range message")
	}
}
