package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
)

// CSVSink writes a log as CSV: the header line, then one line per row.
// A nil cell is written as an empty field. Every write is flushed.
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	header []string
	last   []any
}

// NewCSVSink creates a sink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

func (s *CSVSink) SetHeader(header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.header = slices.Clone(header)
	return s.writeRecord(s.header)
}

func (s *CSVSink) Write(row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRow(s.header, row); err != nil {
		return err
	}
	record := make([]string, len(row))
	for i, cell := range row {
		record[i] = formatCell(cell)
	}
	if err := s.writeRecord(record); err != nil {
		return err
	}
	s.last = slices.Clone(row)
	return nil
}

func (s *CSVSink) LastByKey(column string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lastByKey(s.header, s.last, column)
}

func (s *CSVSink) writeRecord(record []string) error {
	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

func formatCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// CSVDir is a set of CSV sinks backed by files <dir>/<name>.csv.
type CSVDir struct {
	Sinks map[string]*CSVSink
	files []*os.File
}

// OpenCSVDir creates dir if needed and one CSV file per log name.
func OpenCSVDir(dir string, names []string) (*CSVDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store.OpenCSVDir: %w", err)
	}
	d := &CSVDir{Sinks: make(map[string]*CSVSink, len(names))}
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name+".csv"))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("store.OpenCSVDir: %w", err)
		}
		d.files = append(d.files, f)
		d.Sinks[name] = NewCSVSink(f)
	}
	return d, nil
}

// Close closes every file.
func (d *CSVDir) Close() error {
	var errs []error
	for _, f := range d.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}
