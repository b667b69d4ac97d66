package sheets

import (
	"context"
	"errors"

	"fuellog/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryExporter appends ledger entries to a spreadsheet and returns how
	// many rows were written.
	EntryExporter interface {
		AppendEntries(ctx context.Context, entries []core.FuelEntry) (int, error)
	}
)

// Header is the row layout shared by the spreadsheet sync and the XLSX export.
var Header = []string{"Date", "Slip", "Vehicle", "Driver", "Fuel", "Price/L", "Quantity", "Amount", "Meter", "Average"}

// Row renders e in Header order. A missing average is an empty cell.
func Row(e core.FuelEntry) []any {
	var avg any = ""
	if e.Average != nil {
		avg = *e.Average
	}
	return []any{
		e.Date.String(),
		e.SlipNumber,
		e.VehicleNumber,
		e.DriverName,
		string(e.FuelType),
		e.PricePerLiter,
		e.Quantity,
		e.Amount,
		e.MeterReading,
		avg,
	}
}

// Rows renders entries in order.
func Rows(entries []core.FuelEntry) [][]any {
	out := make([][]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, Row(e))
	}
	return out
}

// Disabled is used when no spreadsheet is configured.
type Disabled struct{}

var ErrNotConfigured = errors.New("spreadsheet sync is not configured")

func (Disabled) AppendEntries(context.Context, []core.FuelEntry) (int, error) {
	return 0, ErrNotConfigured
}
