package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/stats"
	"github.com/luki/co2dash/internal/window"
)

const exportSheet = "Readings"

// Export is a generated spreadsheet.
type Export struct {
	Filename string
	Data     []byte
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportReadings writes the device's readings for the range to an xlsx
// workbook with a stats block next to the data.
func (s *Service) ExportReadings(ctx context.Context, id uuid.UUID, mode window.Mode, ref time.Time) (Export, error) {
	d, err := s.db.GetDevice(ctx, id)
	if err != nil {
		return Export{}, deviceErr(err)
	}
	readings, ref, err := s.rangeReadings(ctx, id, mode, ref)
	if err != nil {
		return Export{}, err
	}

	data, err := buildWorkbook(d.Name, window.Label(mode, ref), sensor.SortOldestFirst(readings))
	if err != nil {
		return Export{}, err
	}
	name := strings.Trim(unsafeFilename.ReplaceAllString(d.Name, "-"), "-")
	if name == "" {
		name = d.HardwareID
	}
	return Export{Filename: fmt.Sprintf("%s-%s.xlsx", name, mode), Data: data}, nil
}

func buildWorkbook(deviceName, label string, readings []sensor.Reading) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{"Timestamp", "CO2 (ppm)", "Level"}
	for col, h := range headers {
		if err := setCell(f, col+1, 1, h); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetCellStyle(exportSheet, "A1", "C1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 22); err != nil {
		f.Close()
		return nil, err
	}

	for i, r := range readings {
		row := i + 2
		level := "Normal"
		if sev, ok := alert.Classify(r.CO2Level); ok {
			level = sev.Level()
		}
		for col, v := range []any{r.Timestamp.UTC().Format("2006-01-02 15:04:05"), r.CO2Level, level} {
			if err := setCell(f, col+1, row, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	st := stats.ComputeLatest(readings)
	var warning, critical int
	for _, r := range readings {
		switch sev, _ := alert.Classify(r.CO2Level); sev {
		case alert.Warning:
			warning++
		case alert.Critical:
			critical++
		}
	}
	block := [][2]any{
		{"Device", deviceName},
		{"Range", label},
		{"Readings", len(readings)},
		{"Current", st.Current},
		{"Average", st.Average},
		{"Peak", st.Peak},
		{"Warning readings", warning},
		{"Critical readings", critical},
	}
	for i, kv := range block {
		if err := setCell(f, 5, i+1, kv[0]); err != nil {
			f.Close()
			return nil, err
		}
		if err := setCell(f, 6, i+1, kv[1]); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetCellStyle(exportSheet, "E1", fmt.Sprintf("E%d", len(block)), headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(exportSheet, cell, value)
}
