package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuellog/internal/core"
	"fuellog/internal/ledger"
	applog "fuellog/internal/log"
	"fuellog/internal/seed"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fuellog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMigrationsSeedDefaultPrices(t *testing.T) {
	repo := newTestRepo(t)
	prices, err := repo.ListFuelPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultFuelPrices(), prices)
}

func TestUpdateFuelPrice(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, ok, err := repo.UpdateFuelPrice(ctx, core.HOBC, 340)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.FuelPrice{ID: 3, Name: core.HOBC, Price: 340}, p)

	_, ok, err = repo.UpdateFuelPrice(ctx, "Kerosene", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVehiclesAndDriversNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.AddVehicle(ctx, "ABC-123", "Toyota Corolla")
	require.NoError(t, err)
	second, err := repo.AddVehicle(ctx, "ABC-123", "Same number")
	require.NoError(t, err)

	vs, err := repo.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, second, vs[0])

	d, err := repo.AddDriver(ctx, "Jane Smith")
	require.NoError(t, err)
	ds, err := repo.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Driver{d}, ds)
}

func TestEntriesRoundTripAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	avg := 12.857142857142858
	first, err := repo.AddEntry(ctx, core.FuelEntry{
		Date: core.NewDate(2024, 7, 1), SlipNumber: "S-1", VehicleNumber: "ABC-123", DriverName: "John Doe",
		FuelType: core.Petrol, PricePerLiter: 279.79, Quantity: 30, Amount: 8393.7, MeterReading: 150000,
	})
	require.NoError(t, err)
	second, err := repo.AddEntry(ctx, core.FuelEntry{
		Date: core.NewDate(2024, 7, 8), SlipNumber: "S-2", VehicleNumber: "XYZ-789", DriverName: "Jane Smith",
		FuelType: core.Diesel, PricePerLiter: 287.33, Quantity: 35, Amount: 10056.55, MeterReading: 150450, Average: &avg,
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
	assert.Nil(t, first.Average)
	require.NotNil(t, second.Average)
	assert.InDelta(t, avg, *second.Average, 1e-12)

	got, err := repo.Entry(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Date, got.Date)
	assert.Equal(t, "S-1", got.SlipNumber)

	_, err = repo.Entry(ctx, 999)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	all, err := repo.Query(ctx, core.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	byVehicle, err := repo.Query(ctx, core.EntryFilter{Vehicle: "abc"})
	require.NoError(t, err)
	require.Len(t, byVehicle, 1)
	assert.Equal(t, first.ID, byVehicle[0].ID)

	singleDay, err := repo.Query(ctx, core.EntryFilter{From: core.NewDate(2024, 7, 8)})
	require.NoError(t, err)
	require.Len(t, singleDay, 1)
	assert.Equal(t, second.ID, singleDay[0].ID)

	inverted, err := repo.Query(ctx, core.EntryFilter{From: core.NewDate(2024, 7, 8), To: core.NewDate(2024, 7, 1)})
	require.NoError(t, err)
	assert.Empty(t, inverted)

	hist, err := repo.VehicleHistory(ctx, "ABC-123")
	require.NoError(t, err)
	require.Len(t, hist, 1)
}

func TestEntryTimeOfDayRoundTripsAndFiltersByDay(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	evening, err := core.ParseDate("2024-07-08T18:30:00Z")
	require.NoError(t, err)
	saved, err := repo.AddEntry(ctx, core.FuelEntry{
		Date: evening, SlipNumber: "S-9", VehicleNumber: "ABC-123", DriverName: "John Doe",
		FuelType: core.Petrol, PricePerLiter: 279.79, Quantity: 10, Amount: 2797.9, MeterReading: 150000,
	})
	require.NoError(t, err)

	got, err := repo.Entry(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(evening.Time), got.Date.String())

	sameDay, err := repo.Query(ctx, core.EntryFilter{From: core.NewDate(2024, 7, 8)})
	require.NoError(t, err)
	require.Len(t, sameDay, 1)

	before, err := repo.Query(ctx, core.EntryFilter{From: core.NewDate(2024, 7, 1), To: core.NewDate(2024, 7, 7)})
	require.NoError(t, err)
	assert.Empty(t, before)
}

func TestPendingSync(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for i := 0; i < 3; i++ {
		_, err := repo.AddEntry(ctx, core.FuelEntry{
			Date: core.NewDate(2024, 7, 1+i), SlipNumber: "S", VehicleNumber: "ABC-123", DriverName: "D",
			FuelType: core.Petrol, PricePerLiter: 1, Quantity: 1, Amount: 1, MeterReading: int64(100 + i),
		})
		require.NoError(t, err)
	}

	pending, err := repo.PendingSync(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)

	require.NoError(t, repo.MarkSynced(ctx, pending[0].ID, time.Now()))
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	synced, err := repo.Entry(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, synced.SyncedAt)

	assert.ErrorIs(t, repo.MarkSynced(ctx, 42, time.Now()), core.ErrNotFound)
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	data := seed.Default()
	data.Prices[0].Price = 300
	data.Vehicles = []core.Vehicle{{Number: "ABC-123", Model: "Corolla"}, {Number: "XYZ-789", Model: "Civic"}}
	data.Drivers = []core.Driver{{Name: "John Doe"}}

	require.NoError(t, repo.ApplySeed(ctx, data))
	require.NoError(t, repo.ApplySeed(ctx, data))

	vs, err := repo.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "ABC-123", vs[0].Number)

	p, _ := core.PriceFor(mustPrices(t, repo), core.Petrol)
	assert.Equal(t, 300.0, p.Price)
}

func TestApplySeedKeepsUpdatedPrices(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fuellog.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.ApplySeed(ctx, seed.Default()))
	_, ok, err := repo.UpdateFuelPrice(ctx, core.Petrol, 300)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	data := seed.Default()
	data.Prices[1].Price = 999
	require.NoError(t, repo.ApplySeed(ctx, data))

	prices := mustPrices(t, repo)
	petrol, _ := core.PriceFor(prices, core.Petrol)
	diesel, _ := core.PriceFor(prices, core.Diesel)
	assert.Equal(t, 300.0, petrol.Price)
	assert.Equal(t, 287.33, diesel.Price, "seed prices apply only to a fresh database")
}

func mustPrices(t *testing.T, repo *SQLiteRepository) []core.FuelPrice {
	t.Helper()
	prices, err := repo.ListFuelPrices(context.Background())
	require.NoError(t, err)
	return prices
}

func TestMigrationVersionAndRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuellog.db")
	require.NoError(t, RunMigrations(path))

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigrations(path, 1))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	assert.Error(t, RollbackMigrations(path, 0))
}

func TestRepositoryLogsThroughConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: applog.DefaultConfig().Level, Output: &buf, Component: applog.ComponentStorage})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fuellog.db"), WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.AddEntry(context.Background(), core.FuelEntry{
		Date: core.NewDate(2024, 7, 1), SlipNumber: "S-1", VehicleNumber: "ABC-123", DriverName: "John Doe",
		FuelType: core.Petrol, PricePerLiter: 279.79, Quantity: 1, Amount: 279.79, MeterReading: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Fuel entry saved to SQLite")
	assert.Contains(t, buf.String(), "component=storage")
}
