package chart

import (
	"math"
	"time"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/sensor"
)

// Config holds the axis constants. All values are ppm except the margins,
// which are in output units (pixels or terminal rows).
type Config struct {
	Floor          float64 // lowest value the axis may start at
	Ceiling        float64 // the axis always reaches at least this value
	PaddingRatio   float64 // share of the data range added above and below
	MinSpan        float64 // smallest axis span
	TopMargin      float64
	VerticalMargin float64 // total vertical margin (top + bottom)
	Thresholds     []float64
}

// DefaultConfig matches the dashboard's canvas chart.
func DefaultConfig() Config {
	return Config{
		Floor:          350,
		Ceiling:        1500,
		PaddingRatio:   0.1,
		MinSpan:        400,
		TopMargin:      10,
		VerticalMargin: 20,
		Thresholds:     []float64{alert.WarningPPM, alert.CriticalPPM},
	}
}

// Scale is the vertical axis: values in [Min, Max] map onto the drawable
// height, with Range = Max - Min never below Config.MinSpan.
type Scale struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Range float64 `json:"range"`
}

// NewScale derives the axis for values. An empty slice yields the axis of
// a flat series at Floor.
func NewScale(values []float64, cfg Config) Scale {
	dataMin, dataMax := cfg.Floor, cfg.Floor
	if len(values) > 0 {
		dataMin, dataMax = math.Inf(1), math.Inf(-1)
		for _, v := range values {
			dataMin = math.Min(dataMin, v)
			dataMax = math.Max(dataMax, v)
		}
	}
	padding := (dataMax - dataMin) * cfg.PaddingRatio
	minValue := math.Max(dataMin-padding, cfg.Floor)
	maxValue := math.Max(dataMax+padding, cfg.Ceiling)
	span := math.Max(maxValue-minValue, cfg.MinSpan)
	return Scale{Min: minValue, Max: minValue + span, Range: span}
}

// Contains reports whether v lies on the axis.
func (s Scale) Contains(v float64) bool {
	return v >= s.Min && v <= s.Max
}

// Y maps a value to a vertical coordinate, 0 at the top.
func (s Scale) Y(v, height float64, cfg Config) float64 {
	return height - ((v-s.Min)/s.Range)*(height-cfg.VerticalMargin) - cfg.TopMargin
}

// Point is a reading placed in chart space.
type Point struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
	CO2Level  float64   `json:"co2Level"`
}

// ThresholdLine is a horizontal reference line.
type ThresholdLine struct {
	Value    float64        `json:"value"`
	Y        float64        `json:"y"`
	Severity alert.Severity `json:"severity"`
}

// Geometry is everything a renderer needs for one draw pass.
type Geometry struct {
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Scale      Scale           `json:"scale"`
	Points     []Point         `json:"points"`
	Thresholds []ThresholdLine `json:"thresholds"`
}

// Map sorts readings oldest-first and spaces them evenly across width. A
// single reading sits at x = 0. Threshold lines are only included when
// they fall on the axis.
func Map(readings []sensor.Reading, width, height float64, cfg Config) Geometry {
	sorted := sensor.SortOldestFirst(readings)
	scale := NewScale(sensor.Values(sorted), cfg)
	g := Geometry{Width: width, Height: height, Scale: scale}

	step := 0.0
	if len(sorted) > 1 {
		step = width / float64(len(sorted)-1)
	}
	g.Points = make([]Point, len(sorted))
	for i, r := range sorted {
		g.Points[i] = Point{
			X:         float64(i) * step,
			Y:         scale.Y(r.CO2Level, height, cfg),
			Timestamp: r.Timestamp,
			CO2Level:  r.CO2Level,
		}
	}

	for _, v := range cfg.Thresholds {
		if !scale.Contains(v) {
			continue
		}
		sev, _ := alert.Classify(v)
		g.Thresholds = append(g.Thresholds, ThresholdLine{Value: v, Y: scale.Y(v, height, cfg), Severity: sev})
	}
	return g
}

// MapToChartSpace maps readings with DefaultConfig.
func MapToChartSpace(readings []sensor.Reading, width, height float64) []Point {
	return Map(readings, width, height, DefaultConfig()).Points
}

// Nearest returns the point whose x is closest to pointerX. Ties resolve
// to the first point encountered.
func Nearest(points []Point, pointerX float64) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	best := points[0]
	bestDiff := math.Abs(best.X - pointerX)
	for _, p := range points[1:] {
		if d := math.Abs(p.X - pointerX); d < bestDiff {
			best, bestDiff = p, d
		}
	}
	return best, true
}
