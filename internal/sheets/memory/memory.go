// Package memory provides an in-process spreadsheet stand-in used when no
// Google credentials are configured and in tests.
package memory

import (
	"context"
	"sync"

	"fuellog/internal/core"
	"fuellog/internal/sheets"
)

// Exporter records appended rows in order. Set Err to make appends fail.
type Exporter struct {
	mu   sync.Mutex
	rows [][]any
	ids  []int64
	Err  error
}

var _ sheets.EntryExporter = (*Exporter)(nil)

func NewExporter() *Exporter { return &Exporter{} }

func (e *Exporter) AppendEntries(_ context.Context, entries []core.FuelEntry) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return 0, e.Err
	}
	for _, en := range entries {
		e.rows = append(e.rows, sheets.Row(en))
		e.ids = append(e.ids, en.ID)
	}
	return len(entries), nil
}

// Rows returns a copy of every appended row.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.rows...)
}

// IDs returns the ids of the appended entries in append order.
func (e *Exporter) IDs() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int64(nil), e.ids...)
}
