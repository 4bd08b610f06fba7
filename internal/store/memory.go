package store

import (
	"slices"
	"sync"
)

// MemorySink is a thread-safe in-memory log. Rows are append-only and
// in write order.
type MemorySink struct {
	mu     sync.RWMutex
	header []string
	rows   [][]any
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) SetHeader(header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.header = slices.Clone(header)
	return nil
}

func (s *MemorySink) Write(row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRow(s.header, row); err != nil {
		return err
	}
	s.rows = append(s.rows, slices.Clone(row))
	return nil
}

// LastByKey returns column's value in the most recent row.
func (s *MemorySink) LastByKey(column string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return nil, false
	}
	return lastByKey(s.header, s.rows[len(s.rows)-1], column)
}

// Header returns a copy of the header, or nil when unset.
func (s *MemorySink) Header() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.header)
}

// Rows returns a copy of all rows in write order.
func (s *MemorySink) Rows() [][]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Copy so callers cannot mutate stored rows.
	result := make([][]any, len(s.rows))
	for i, r := range s.rows {
		result[i] = slices.Clone(r)
	}
	return result
}

// Len returns the number of rows written.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows)
}
