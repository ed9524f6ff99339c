// Package monitor implements the live CO2 dashboard TUI using BubbleTea,
// polling the REST backend and drawing per-device sparklines with
// colour-coded thresholds.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/chart"
	"github.com/luki/co2dash/internal/history"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/service"
	"github.com/luki/co2dash/internal/storage"
)

const (
	DefaultInterval = 5 * time.Second
	historySize     = 600
	requestTimeout  = 10 * time.Second
)

// Source is the backend the monitor polls; *client.Client implements it.
type Source interface {
	ListBuildings(ctx context.Context) ([]storage.Building, error)
	Building(ctx context.Context, id uuid.UUID) (service.BuildingDetail, error)
	Dashboard(ctx context.Context) (service.Dashboard, error)
}

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type pollMsg struct {
	buildings []service.BuildingDetail
	dashboard service.Dashboard
	time      time.Time
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live monitor.
type Model struct {
	source    Source
	interval  time.Duration
	buildings []service.BuildingDetail
	dashboard service.Dashboard
	history   *history.Store
	err       error
	width     int
	height    int
	scroll    int
	lastPoll  time.Time
	startTime time.Time
	paused    bool
}

// New creates the initial model. A zero interval means DefaultInterval.
func New(source Source, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Model{
		source:    source,
		interval:  interval,
		history:   history.NewStore(historySize),
		startTime: time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) poll() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	list, err := m.source.ListBuildings(ctx)
	if err != nil {
		return errMsg{fmt.Errorf("buildings: %w", err)}
	}
	details := make([]service.BuildingDetail, 0, len(list))
	for _, b := range list {
		d, err := m.source.Building(ctx, b.ID)
		if err != nil {
			return errMsg{fmt.Errorf("building %s: %w", b.Name, err)}
		}
		details = append(details, d)
	}
	dash, err := m.source.Dashboard(ctx)
	if err != nil {
		return errMsg{fmt.Errorf("alerts: %w", err)}
	}
	return pollMsg{buildings: details, dashboard: dash, time: time.Now()}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll, m.tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		case " ", "p":
			m.paused = !m.paused
		case "r":
			return m, m.poll
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.paused {
			return m, m.tickCmd()
		}
		return m, tea.Batch(m.poll, m.tickCmd())

	case pollMsg:
		m.err = nil
		m.buildings = msg.buildings
		m.dashboard = msg.dashboard
		m.lastPoll = msg.time
		for _, b := range msg.buildings {
			for _, d := range b.Devices {
				m.history.Record(d.ID.String(), d.Readings)
			}
		}

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorBuilding = lipgloss.Color("147")
	colorHardware = lipgloss.Color("238")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorElevated = lipgloss.Color("220")
	colorWarn     = lipgloss.Color("208")
	colorCrit     = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.buildings) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for buildings...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderBuildingPanels(contentWidth)...)
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

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("CO2 MONITOR")

	dim := lipgloss.NewStyle().Foreground(colorDim)
	var statusParts []string
	statusParts = append(statusParts, dim.Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))

	if !m.lastPoll.IsZero() {
		statusParts = append(statusParts, dim.Render(m.lastPoll.Format("15:04:05")))
		statusParts = append(statusParts, dim.Render(fmt.Sprintf("%d buildings %d devices",
			m.dashboard.Buildings, m.dashboard.Devices)))
		statusParts = append(statusParts, renderAlertCounts(m.dashboard.Summary))
	}

	if m.paused {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorPaused).Bold(true).Render("PAUSED"))
	}

	sep := dim.Render(" │ ")
	right := strings.Join(statusParts, sep)

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

func renderAlertCounts(s alert.Summary) string {
	if s.Total == 0 {
		return lipgloss.NewStyle().Foreground(colorOk).Render("no alerts")
	}
	parts := fmt.Sprintf("%d alerts", s.Total)
	crit := lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render(fmt.Sprintf(" %d crit", s.Critical))
	warn := lipgloss.NewStyle().Foreground(colorWarn).Render(fmt.Sprintf(" %d warn", s.Warning))
	return lipgloss.NewStyle().Foreground(colorLabel).Render(parts) + crit + warn
}

func (m Model) renderBuildingPanels(totalWidth int) []string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}
	chartWidth := innerWidth - 80
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 18
	valueW := 9

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string
	for _, b := range m.buildings {
		var rows []string
		title := lipgloss.NewStyle().Bold(true).Foreground(colorBuilding).Render(b.Name)
		count := dimS.Render(fmt.Sprintf("%d devices", len(b.Devices)))
		rows = append(rows, title+"  "+count)

		if len(b.Devices) == 0 {
			rows = append(rows, dimS.Render("no devices"))
		}

		var lastPts []sensor.Reading
		for _, d := range b.Devices {
			pts := d.Readings
			if buf := m.history.Get(d.ID.String()); buf != nil {
				pts = buf.LastN(chartWidth)
			}
			if len(pts) > 0 {
				lastPts = pts
			}
			scale := chart.NewScale(sensor.Values(pts), chart.TerminalConfig())

			label := lipgloss.NewStyle().
				Foreground(colorLabel).
				Width(labelW).
				Render(truncate(d.Name, labelW))
			value := lipgloss.NewStyle().
				Width(valueW).
				Align(lipgloss.Right).
				Render(chart.RenderValue(d.Stats.Current))
			spark := frameL + chart.RenderSparkline(pts, chartWidth, scale) + frameR

			stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.0f", d.Stats.Average)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.0f", d.Stats.Peak))

			battery := dimS.Render(" bat") + valS.Render(" --")
			if d.BatteryLevel != nil {
				battery = dimS.Render(" bat") + renderBattery(*d.BatteryLevel)
			}

			row := label + " " + value + " " + spark + stats + battery + renderAlerts(d.Alerts)
			rows = append(rows, row)
			rows = append(rows, dimS.Render(strings.Repeat(" ", labelW+1))+
				lipgloss.NewStyle().Foreground(colorHardware).Render(truncate(d.HardwareID, labelW+valueW)))
		}

		if lastPts != nil {
			if timeline := chart.RenderTimeline(lastPts, chartWidth); strings.TrimSpace(timeline) != "" {
				pad := strings.Repeat(" ", labelW+valueW+2)
				rows = append(rows, pad+" "+timeline)
			}
		}

		panel := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
		panels = append(panels, panel)
	}
	return panels
}

func renderBattery(level float64) string {
	c := colorOk
	switch {
	case level < 15:
		c = colorCrit
	case level < 30:
		c = colorElevated
	}
	return lipgloss.NewStyle().Foreground(c).Render(fmt.Sprintf("%4.0f%%", level))
}

// renderAlerts shows the newest alert and how many more there are.
func renderAlerts(alerts []alert.Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	a := alerts[0]
	c := colorWarn
	if a.Severity == alert.Critical {
		c = colorCrit
	}
	s := "  " + lipgloss.NewStyle().Foreground(c).Bold(true).
		Render(fmt.Sprintf("⚠ %s %s", a.Level, a.Timestamp.Local().Format("15:04")))
	if len(alerts) > 1 {
		s += lipgloss.NewStyle().Foreground(colorDim).Render(fmt.Sprintf(" +%d", len(alerts)-1))
	}
	return s
}

func (m Model) renderFooter(width int) string {
	block := func(c lipgloss.Color) string {
		return lipgloss.NewStyle().Foreground(c).Render("██")
	}
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("│")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	labelS := lipgloss.NewStyle().Foreground(colorLabel)
	legend := block(colorOk) + dimS.Render(" ok ") +
		block(colorElevated) + dimS.Render(" elevated ") +
		block(colorWarn) + dimS.Render(" 800+ ") +
		block(colorCrit) + dimS.Render(" 1200+ ") +
		tickS + dimS.Render(" 1h")

	keys := dimS.Render("q") + labelS.Render(":quit") +
		dimS.Render("  j/k") + labelS.Render(":scroll") +
		dimS.Render("  p") + labelS.Render(":pause") +
		dimS.Render("  r") + labelS.Render(":refresh")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
