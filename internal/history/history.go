// Package history keeps a bounded in-memory series of readings per device
// for the live monitor, so its charts can grow beyond what one poll returns.
package history

import (
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/stats"
)

// Buffer stores a ring buffer of readings for one device, oldest first.
type Buffer struct {
	Points []sensor.Reading
	Max    int // capacity
}

// NewBuffer creates a new history ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]sensor.Reading, 0, capacity),
		Max:    capacity,
	}
}

// Push appends a reading, dropping the oldest when full.
func (b *Buffer) Push(r sensor.Reading) {
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = r
	} else {
		b.Points = append(b.Points, r)
	}
}

// Merge pushes the readings that are newer than the newest one held, in
// chronological order, and returns how many were added. Polls return
// overlapping windows, so older readings are ignored.
func (b *Buffer) Merge(readings []sensor.Reading) int {
	added := 0
	for _, r := range sensor.SortOldestFirst(readings) {
		if len(b.Points) > 0 && !r.Timestamp.After(b.Points[len(b.Points)-1].Timestamp) {
			continue
		}
		b.Push(r)
		added++
	}
	return added
}

// Last returns the most recent level, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].CO2Level
}

// NewestFirst returns a copy of the buffer, newest reading first.
func (b *Buffer) NewestFirst() []sensor.Reading {
	out := make([]sensor.Reading, len(b.Points))
	for i, p := range b.Points {
		out[len(out)-1-i] = p
	}
	return out
}

// Stats summarises the whole buffer.
func (b *Buffer) Stats() stats.Stats {
	return stats.Compute(b.NewestFirst())
}

// LastN returns the last n readings, oldest first.
func (b *Buffer) LastN(n int) []sensor.Reading {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]sensor.Reading, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}

// Store manages buffers for all devices.
type Store struct {
	Data     map[string]*Buffer
	Capacity int
}

// NewStore creates a new store with the given per-device capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[string]*Buffer),
		Capacity: capacity,
	}
}

// Record merges readings for the given device id.
func (s *Store) Record(key string, readings []sensor.Reading) int {
	b, ok := s.Data[key]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[key] = b
	}
	return b.Merge(readings)
}

// Get returns the buffer for a device id, or nil.
func (s *Store) Get(key string) *Buffer {
	return s.Data[key]
}
