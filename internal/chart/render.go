// Package chart maps CO2 readings into chart space (scaled axis, evenly
// spaced points, threshold reference lines, nearest-point lookup) and
// renders that geometry as colour-coded terminal sparklines and plots.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/sensor"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// TerminalConfig is DefaultConfig without the canvas margins, so rows map
// straight onto character cells.
func TerminalConfig() Config {
	cfg := DefaultConfig()
	cfg.TopMargin = 0
	cfg.VerticalMargin = 0
	return cfg
}

// LevelColor returns the colour for a ppm value.
func LevelColor(ppm float64) lipgloss.Color {
	switch {
	case ppm >= alert.CriticalPPM:
		return lipgloss.Color("196") // red
	case ppm >= alert.WarningPPM:
		return lipgloss.Color("208") // orange
	case ppm >= alert.WarningPPM*0.85:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderSparkline renders readings as one row of blocks scaled with s. The
// newest readings are kept when there are more than width. A subtle pipe
// marks every hour boundary.
func RenderSparkline(readings []sensor.Reading, width int, s Scale) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(readings) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	points := sensor.SortOldestFirst(readings)
	if len(points) > width {
		points = points[len(points)-width:]
	}

	span := s.Range
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < width-len(points); i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		if isHourTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		norm := math.Max(0, math.Min(1, (p.CO2Level-s.Min)/span))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}
		style := lipgloss.NewStyle().Foreground(LevelColor(p.CO2Level))
		if p.CO2Level >= alert.CriticalPPM {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

// RenderTimeline renders HH:MM labels under a sparkline of the same width,
// one at each hour tick that has room.
func RenderTimeline(readings []sensor.Reading, width int) string {
	if len(readings) == 0 || width <= 0 {
		return ""
	}

	points := sensor.SortOldestFirst(readings)
	if len(points) > width {
		points = points[len(points)-width:]
	}
	padLen := width - len(points)

	line := []rune(strings.Repeat(" ", width))
	lastEnd := -1
	for i, p := range points {
		if !isHourTick(points, i) {
			continue
		}
		label := p.Timestamp.Format("15:04")
		start := padLen + i - 2
		if start < 0 {
			start = 0
		}
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderThresholdScale renders a bar with the warning and critical marks
// and a diamond at the current value.
func RenderThresholdScale(current float64, s Scale, width int) string {
	if width <= 0 {
		return ""
	}

	span := s.Range
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		return int(float64(width-1) * (v - s.Min) / span)
	}

	warnPos, critPos := -1, -1
	if s.Contains(alert.WarningPPM) {
		warnPos = pos(alert.WarningPPM)
	}
	if s.Contains(alert.CriticalPPM) {
		critPos = pos(alert.CriticalPPM)
	}
	curPos := pos(current)
	if curPos < 0 {
		curPos = 0
	}
	if curPos >= width {
		curPos = width - 1
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(LevelColor(current)).Bold(true).Render("◆"))
		case critPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("▪"))
		case warnPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}
	return sb.String()
}

// RenderValue renders a ppm value with colour coding.
func RenderValue(ppm float64) string {
	style := lipgloss.NewStyle().Foreground(LevelColor(ppm))
	if ppm >= alert.CriticalPPM {
		style = style.Bold(true)
	}
	return style.Render(fmt.Sprintf("%4.0f ppm", ppm))
}

// RenderPlot draws g on a cols x rows character grid. g must have been
// mapped with width cols-1 and height rows-1 (see PlotGeometry). Threshold
// lines are dashed; the pointer column, when in range, is highlighted.
func RenderPlot(g Geometry, cols, rows, pointer int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}

	grid := make([][]rune, rows)
	colors := make([][]lipgloss.Color, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", cols))
		colors[r] = make([]lipgloss.Color, cols)
	}
	set := func(row, col int, ch rune, c lipgloss.Color) {
		if row < 0 || row >= rows || col < 0 || col >= cols {
			return
		}
		grid[row][col] = ch
		colors[row][col] = c
	}

	for _, th := range g.Thresholds {
		row := int(math.Round(th.Y))
		c := lipgloss.Color("220")
		if th.Severity == alert.Critical {
			c = lipgloss.Color("196")
		}
		for col := 0; col < cols; col += 2 {
			set(row, col, '┄', c)
		}
	}

	prevRow := -1
	for i, p := range g.Points {
		col := int(math.Round(p.X))
		row := int(math.Round(p.Y))
		c := LevelColor(p.CO2Level)
		if i > 0 && prevRow >= 0 && prevRow != row {
			lo, hi := prevRow, row
			if lo > hi {
				lo, hi = hi, lo
			}
			for r := lo + 1; r < hi; r++ {
				set(r, col, '│', c)
			}
		}
		set(row, col, '•', c)
		prevRow = row
	}

	pointerStyle := lipgloss.NewStyle().Background(lipgloss.Color("237"))
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			style := lipgloss.NewStyle()
			if colors[r][col] != "" {
				style = style.Foreground(colors[r][col])
			}
			if col == pointer {
				style = style.Inherit(pointerStyle)
			}
			sb.WriteString(style.Render(string(grid[r][col])))
		}
		if r < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// PlotGeometry maps readings for RenderPlot.
func PlotGeometry(readings []sensor.Reading, cols, rows int) Geometry {
	return Map(readings, float64(cols-1), float64(rows-1), TerminalConfig())
}

func isHourTick(points []sensor.Reading, i int) bool {
	t := points[i].Timestamp
	if t.IsZero() || i == 0 {
		return false
	}
	prev := points[i-1].Timestamp
	return !prev.IsZero() && (t.Hour() != prev.Hour() || t.YearDay() != prev.YearDay())
}
