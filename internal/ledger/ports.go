// Package ledger defines the storage ports for reference data and fuel entries.
package ledger

import (
	"context"
	"time"

	"fuellog/internal/core"
)

// Ports for storage adapters.
type (
	// ReferenceStore holds vehicles, drivers and the fuel price table.
	// New vehicles and drivers are listed first.
	ReferenceStore interface {
		AddVehicle(ctx context.Context, number, model string) (core.Vehicle, error)
		AddDriver(ctx context.Context, name string) (core.Driver, error)
		// UpdateFuelPrice reports false, leaving the table unchanged, when no
		// price exists for t.
		UpdateFuelPrice(ctx context.Context, t core.FuelType, price float64) (core.FuelPrice, bool, error)
		ListVehicles(ctx context.Context) ([]core.Vehicle, error)
		ListDrivers(ctx context.Context) ([]core.Driver, error)
		ListFuelPrices(ctx context.Context) ([]core.FuelPrice, error)
	}

	// EntryLedger stores computed entries newest first.
	EntryLedger interface {
		// AddEntry assigns the next id and CreatedAt.
		AddEntry(ctx context.Context, e core.FuelEntry) (core.FuelEntry, error)
		Query(ctx context.Context, f core.EntryFilter) ([]core.FuelEntry, error)
		// VehicleHistory returns the entries recorded for an exact vehicle number.
		VehicleHistory(ctx context.Context, vehicleNumber string) ([]core.FuelEntry, error)
		// Entry returns core.ErrNotFound for unknown ids.
		Entry(ctx context.Context, id int64) (core.FuelEntry, error)
	}

	// SyncTracker records which entries were exported to the spreadsheet.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]core.FuelEntry, error)
		MarkSynced(ctx context.Context, id int64, at time.Time) error
	}

	Store interface {
		ReferenceStore
		EntryLedger
		SyncTracker
	}
)
