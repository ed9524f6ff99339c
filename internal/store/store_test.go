package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ds, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ds.Close()

	now := time.Date(2026, 2, 21, 14, 30, 0, 0, time.UTC)
	battery := 85.0
	rows := []StoredReading{
		{Time: now, Device: "303947013139353611000000", Name: "Kitchen", CO2: 812, Battery: &battery},
		{Time: now.Add(time.Minute), Device: "303947013139353611001111", Name: "Office", CO2: 640.5},
	}

	if err := ds.Write(rows...); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ds.Close()

	loaded, err := LoadFile(filepath.Join(dir, "2026-02-21.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(loaded))
	}
	if loaded[0].Device != "303947013139353611000000" || loaded[0].CO2 != 812 {
		t.Errorf("first reading: got %+v", loaded[0])
	}
	if loaded[0].Battery == nil || *loaded[0].Battery != 85 {
		t.Errorf("first reading battery: got %v", loaded[0].Battery)
	}
	if !loaded[0].Time.Equal(now) {
		t.Errorf("first reading time: got %v, want %v", loaded[0].Time, now)
	}
	if loaded[1].Name != "Office" || loaded[1].CO2 != 640.5 || loaded[1].Battery != nil {
		t.Errorf("second reading: got %+v", loaded[1])
	}
}

func TestDiskStoreRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	ds, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()

	base := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := ds.Write(StoredReading{Time: base.AddDate(0, 0, i), Device: "dev", CO2: float64(500 + i)}); err != nil {
			t.Fatalf("Write day %d: %v", i, err)
		}
	}

	days, err := ListDays(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-02-21", "2026-02-20", "2026-02-19", "2026-02-18"}
	if len(days) != len(want) {
		t.Fatalf("days: got %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("days[%d]: got %s, want %s", i, days[i], want[i])
		}
	}

	all, err := LoadAll(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].CO2 != 500 || all[3].CO2 != 503 {
		t.Errorf("LoadAll: got %+v", all)
	}

	removed, err := ds.Prune(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("Prune removed %d, want 2", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "2026-02-19.csv")); !os.IsNotExist(err) {
		t.Error("expected 2026-02-19.csv to be removed")
	}
}

func TestLoadFileSkipsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2026-02-21.csv")
	content := "time,device,name,co2,battery\n" +
		"2026-02-21T10:00:00Z,dev,Kitchen,700,\n" +
		"yesterday,dev,Kitchen,710,\n" +
		"2026-02-21T10:01:00Z,dev,Kitchen,abc,\n" +
		"2026-02-21T10:02:00Z,dev\n" +
		"2026-02-21T10:03:00Z,dev,Kitchen,720,90\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	groups := GroupByDevice(rows)
	if len(groups["dev"]) != 2 {
		t.Errorf("GroupByDevice: got %d", len(groups["dev"]))
	}
}
