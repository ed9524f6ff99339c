// Package store keeps an append-only CSV archive of every ingested reading
// with daily file rotation. The history viewer reads it back offline.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/luki/co2dash/internal/sensor"
)

const (
	dirName    = ".co2dash-data"
	fileLayout = "2006-01-02"
)

var header = []string{"time", "device", "name", "co2", "battery"}

// DiskStore handles persistent CSV storage of readings. Files are stored as
// <dir>/YYYY-MM-DD.csv with the format:
//
//	time,device,name,co2,battery
//
// battery is empty when the gateway did not report it.
type DiskStore struct {
	dir     string
	mu      sync.Mutex
	current *os.File
	writer  *csv.Writer
	curDate string
}

// StoredReading is a single row from a CSV archive file.
type StoredReading struct {
	Time    time.Time
	Device  string // hardware id
	Name    string
	CO2     float64
	Battery *float64
}

// Reading returns the row as a sensor reading.
func (s StoredReading) Reading() sensor.Reading {
	return sensor.Reading{Timestamp: s.Time, CO2Level: s.CO2}
}

// New creates a disk store rooted at dir, creating it if needed. An empty
// dir means DataDir().
func New(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = DataDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the archive directory.
func (d *DiskStore) Dir() string {
	return d.dir
}

// Write appends rows, each to the file of its own date.
func (d *DiskStore) Write(rows ...StoredReading) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range rows {
		if err := d.open(r.Time.Format(fileLayout)); err != nil {
			return err
		}
		battery := ""
		if r.Battery != nil {
			battery = strconv.FormatFloat(*r.Battery, 'f', -1, 64)
		}
		if err := d.writer.Write([]string{
			r.Time.Format(time.RFC3339),
			r.Device,
			r.Name,
			strconv.FormatFloat(r.CO2, 'f', -1, 64),
			battery,
		}); err != nil {
			return err
		}
	}
	if d.writer == nil {
		return nil
	}
	d.writer.Flush()
	return d.writer.Error()
}

func (d *DiskStore) open(dateStr string) error {
	if d.curDate == dateStr && d.current != nil {
		return nil
	}
	d.closeLocked()
	path := filepath.Join(d.dir, dateStr+".csv")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	d.current = f
	d.writer = csv.NewWriter(f)
	d.curDate = dateStr

	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		return d.writer.Write(header)
	}
	return nil
}

// Close flushes and closes the current file.
func (d *DiskStore) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

func (d *DiskStore) closeLocked() {
	if d.writer != nil {
		d.writer.Flush()
		d.writer = nil
	}
	if d.current != nil {
		d.current.Close()
		d.current = nil
	}
	d.curDate = ""
}

// Prune removes day files dated before the cutoff's date and returns how
// many were removed. The file currently open for writing is never removed.
func (d *DiskStore) Prune(cutoff time.Time) (int, error) {
	days, err := ListDays(d.dir)
	if err != nil {
		return 0, err
	}
	limit := cutoff.Format(fileLayout)

	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for _, day := range days {
		if day >= limit || day == d.curDate {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, day+".csv")); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ListDays returns available archive dates, newest first.
func ListDays(dir string) ([]string, error) {
	if dir == "" {
		dir = DataDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".csv") {
			continue
		}
		day := strings.TrimSuffix(name, ".csv")
		if _, err := time.Parse(fileLayout, day); err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// LoadDay reads all readings from a specific day's file.
func LoadDay(dir, day string) ([]StoredReading, error) {
	if dir == "" {
		dir = DataDir()
	}
	return LoadFile(filepath.Join(dir, day+".csv"))
}

// LoadAll reads every day file in dir, oldest day first.
func LoadAll(dir string) ([]StoredReading, error) {
	days, err := ListDays(dir)
	if err != nil {
		return nil, err
	}
	var all []StoredReading
	for i := len(days) - 1; i >= 0; i-- {
		rows, err := LoadDay(dir, days[i])
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// LoadFile reads all readings from a CSV file. Rows with an unparseable
// time or level are skipped.
func LoadFile(path string) ([]StoredReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var readings []StoredReading
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == "time" {
			continue
		}
		if len(row) < 4 {
			continue
		}

		t, ok := sensor.ParseTimestamp(row[0], time.Local)
		if !ok {
			continue
		}
		co2, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			continue
		}
		r := StoredReading{Time: t, Device: row[1], Name: row[2], CO2: co2}
		if len(row) > 4 && row[4] != "" {
			if b, err := strconv.ParseFloat(row[4], 64); err == nil {
				r.Battery = &b
			}
		}
		readings = append(readings, r)
	}

	return readings, nil
}

// GroupByDevice splits rows per hardware id, keeping file order.
func GroupByDevice(rows []StoredReading) map[string][]StoredReading {
	out := make(map[string][]StoredReading)
	for _, r := range rows {
		out[r.Device] = append(out[r.Device], r)
	}
	return out
}

// DataDir returns the default archive directory.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}
