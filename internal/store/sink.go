// Package store provides the log sinks a simulation writes its trade,
// order and per-period rows to.
package store

import (
	"errors"
	"fmt"
	"slices"
)

// ErrHeaderNotSet is returned when a row is written before the header.
var ErrHeaderNotSet = errors.New("log_header_not_set")

// Sink is an append-only tabular log: one header, then rows.
type Sink interface {
	SetHeader(header []string) error
	Write(row []any) error
	LastByKey(column string) (any, bool)
}

// Table is a sink whose contents can be read back.
type Table interface {
	Header() []string
	Rows() [][]any
}

// lastByKey returns the value in column of row, located through header.
func lastByKey(header []string, row []any, column string) (any, bool) {
	if row == nil {
		return nil, false
	}
	i := slices.Index(header, column)
	if i < 0 || i >= len(row) {
		return nil, false
	}
	return row[i], true
}

func checkRow(header []string, row []any) error {
	if header == nil {
		return ErrHeaderNotSet
	}
	if len(row) != len(header) {
		return fmt.Errorf("row has %d cells, header has %d", len(row), len(header))
	}
	return nil
}
