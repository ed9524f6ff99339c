// Package viewer implements the CO2 history browser TUI over the CSV
// archive, with range modes, day navigation and a pointer tooltip.
package viewer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/chart"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/stats"
	"github.com/luki/co2dash/internal/store"
	"github.com/luki/co2dash/internal/window"
)

const (
	plotRows = 12
	axisW    = 6 // y-axis label column
)

// Run launches the history viewer over the archive in dir.
func Run(dir string) error {
	if dir == "" {
		dir = store.DataDir()
	}
	rows, err := store.LoadAll(dir)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no history data found in %s", dir)
	}

	p := tea.NewProgram(
		newModel(rows, time.Now),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorDevice   = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorAccent   = lipgloss.Color("214")
	colorFooterBg = lipgloss.Color("235")
	colorWarn     = lipgloss.Color("208")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

type deviceSeries struct {
	hardwareID string
	name       string
	readings   []sensor.Reading // oldest first
}

type model struct {
	devices []deviceSeries
	devIdx  int
	mode    window.Mode
	ref     time.Time // reference date for calendar modes
	now     func() time.Time
	pointer int // column inside the plot; clamped at render time
	scroll  int
	width   int
	height  int
}

func newModel(rows []store.StoredReading, now func() time.Time) model {
	groups := store.GroupByDevice(rows)
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m := model{mode: window.Day, now: now, pointer: -1}
	var newest time.Time
	for _, id := range ids {
		ds := deviceSeries{hardwareID: id, name: id}
		for _, r := range groups[id] {
			if r.Name != "" {
				ds.name = r.Name
			}
			ds.readings = append(ds.readings, r.Reading())
			if r.Time.After(newest) {
				newest = r.Time
			}
		}
		ds.readings = sensor.SortOldestFirst(ds.readings)
		m.devices = append(m.devices, ds)
	}
	if newest.IsZero() {
		newest = now()
	}
	m.ref = newest.Local()
	return m
}

// visible returns the selected device's readings inside the current range,
// oldest first.
func (m model) visible() []sensor.Reading {
	if len(m.devices) == 0 {
		return nil
	}
	return window.Filter(m.devices[m.devIdx].readings, m.mode, m.ref, m.now())
}

func (m model) plotCols() int {
	cols := m.width - axisW - 8
	if cols < 20 {
		cols = 20
	}
	return cols
}

func (m model) pointerCol() int {
	cols := m.plotCols()
	if m.pointer < 0 || m.pointer >= cols {
		return cols - 1
	}
	return m.pointer
}

func (m *model) movePointer(delta int) {
	p := m.pointerCol() + delta
	if p < 0 {
		p = 0
	}
	if p >= m.plotCols() {
		p = m.plotCols() - 1
	}
	m.pointer = p
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "m":
			m.mode = m.mode.Next()
		case "[":
			m.ref = m.ref.AddDate(0, 0, -1)
		case "]":
			if next := m.ref.AddDate(0, 0, 1); !next.After(m.now()) {
				m.ref = next
			}
		case "t":
			m.ref = m.now().Local()

		case "left", "h":
			m.movePointer(-1)
		case "right", "l":
			m.movePointer(1)
		case "shift+left", "H":
			m.movePointer(-10)
		case "shift+right", "L":
			m.movePointer(10)
		case "home":
			m.pointer = 0
		case "end":
			m.pointer = -1

		case "tab", "n":
			if len(m.devices) > 0 {
				m.devIdx = (m.devIdx + 1) % len(m.devices)
			}
		case "shift+tab", "N":
			if len(m.devices) > 0 {
				m.devIdx = (m.devIdx + len(m.devices) - 1) % len(m.devices)
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionMotion {
			// border + padding + axis column sit left of the plot
			col := msg.X - 2 - axisW
			if col >= 0 && col < m.plotCols() {
				m.pointer = col
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitle(contentWidth))
	sections = append(sections, m.renderTabs(contentWidth))

	readings := m.visible()
	if len(readings) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No readings in " + window.Label(m.mode, m.ref) + ".")
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderPanel(readings, contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	start := m.scroll
	if start > maxScroll {
		start = maxScroll
	}
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("CO2 HISTORY")

	rangeText := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(window.Label(m.mode, m.ref))

	mode := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [%s]", m.mode))

	right := rangeText + mode

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m model) renderTabs(width int) string {
	var parts []string
	for i, d := range m.devices {
		style := lipgloss.NewStyle().Foreground(colorDim)
		if i == m.devIdx {
			style = lipgloss.NewStyle().Foreground(colorDevice).Bold(true).Underline(true)
		}
		parts = append(parts, style.Render(d.name))
	}
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Render(strings.Join(parts, "  "))
}

func (m model) renderPanel(readings []sensor.Reading, totalWidth int) string {
	d := m.devices[m.devIdx]
	cols := m.plotCols()
	pointer := m.pointerCol()

	g := chart.PlotGeometry(readings, cols, plotRows)
	plot := strings.Split(chart.RenderPlot(g, cols, plotRows, pointer), "\n")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	axis := func(row int) string {
		switch row {
		case 0:
			return fmt.Sprintf("%*.0f", axisW-1, g.Scale.Max)
		case plotRows - 1:
			return fmt.Sprintf("%*.0f", axisW-1, g.Scale.Min)
		}
		for _, th := range g.Thresholds {
			if int(th.Y+0.5) == row {
				return fmt.Sprintf("%*.0f", axisW-1, th.Value)
			}
		}
		return strings.Repeat(" ", axisW-1)
	}

	var rows []string
	title := lipgloss.NewStyle().Bold(true).Foreground(colorDevice).Render(d.name)
	rows = append(rows, title+"  "+dimS.Render(d.hardwareID))

	s := stats.Compute(sensor.SortNewestFirst(readings))
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	rows = append(rows, dimS.Render("current ")+chart.RenderValue(s.Current)+
		dimS.Render("  avg ")+valS.Render(fmt.Sprintf("%.0f", s.Average))+
		dimS.Render("  peak ")+valS.Render(fmt.Sprintf("%.0f", s.Peak))+
		dimS.Render(fmt.Sprintf("  %d readings", len(readings))))

	for i, line := range plot {
		rows = append(rows, dimS.Render(axis(i))+" "+line)
	}
	rows = append(rows, strings.Repeat(" ", axisW)+chart.RenderTimeline(readings, cols))
	rows = append(rows, m.renderTooltip(g, pointer))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m model) renderTooltip(g chart.Geometry, pointer int) string {
	p, ok := chart.Nearest(g.Points, float64(pointer))
	if !ok {
		return ""
	}
	ts := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(p.Timestamp.Local().Format("2006-01-02 15:04:05"))
	out := strings.Repeat(" ", axisW) + ts + "  " + chart.RenderValue(p.CO2Level)
	if sev, alerting := alert.Classify(p.CO2Level); alerting {
		c := colorWarn
		if sev == alert.Critical {
			c = colorCrit
		}
		out += "  " + lipgloss.NewStyle().Foreground(c).Render(sev.Message())
	}
	return out
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  m") + keyS.Render(":range") +
		dimS.Render("  [/]") + keyS.Render(":day") +
		dimS.Render("  t") + keyS.Render(":today") +
		dimS.Render("  h/l") + keyS.Render(":pointer") +
		dimS.Render("  tab") + keyS.Render(":device") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}
