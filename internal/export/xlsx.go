// Package export renders ledger entries as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fuellog/internal/core"
	"fuellog/internal/sheets"
)

const (
	SheetName   = "History"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteXLSX writes entries, in the order given, to a single-sheet workbook
// using the spreadsheet sync column layout.
func WriteXLSX(w io.Writer, entries []core.FuelEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, headerStyle)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := sheets.Row(e)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(sheets.Header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", last, 15); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename names the download for a filter.
func Filename(f core.EntryFilter) string {
	from, to, _ := f.Range()
	if from.IsZero() {
		return "fuel-history.xlsx"
	}
	if from.Equal(to.Time) {
		return fmt.Sprintf("fuel-history-%s.xlsx", from)
	}
	return fmt.Sprintf("fuel-history-%s-to-%s.xlsx", from, to)
}
