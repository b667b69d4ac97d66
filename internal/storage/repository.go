package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fuellog/internal/core"
	applog "fuellog/internal/log"
	"fuellog/internal/seed"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	logger  *applog.Logger
}

type Option func(*SQLiteRepository)

func WithLogger(logger *applog.Logger) Option {
	return func(r *SQLiteRepository) {
		r.logger = logger
	}
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
		logger:  applog.Default(applog.ComponentStorage),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ApplySeed writes the seed prices on the first run only, so later price
// updates survive restarts. Seed vehicles and drivers are inserted while
// their tables are still empty.
func (r *SQLiteRepository) ApplySeed(ctx context.Context, data seed.Data) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	seeded, err := q.SeedApplied(ctx)
	if err != nil {
		return fmt.Errorf("check seed marker: %w", err)
	}
	if !seeded {
		for _, p := range data.Prices {
			if _, err := q.UpdateFuelPrice(ctx, string(p.Name), p.Price); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("seed price %s: %w", p.Name, err)
			}
		}
		if err := q.MarkSeedApplied(ctx, r.now().UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("mark seed applied: %w", err)
		}
	}

	if n, err := q.CountVehicles(ctx); err != nil {
		return fmt.Errorf("count vehicles: %w", err)
	} else if n == 0 {
		// Insert in reverse so the first seed vehicle lists first.
		for i := len(data.Vehicles) - 1; i >= 0; i-- {
			if _, err := q.CreateVehicle(ctx, data.Vehicles[i].Number, data.Vehicles[i].Model); err != nil {
				return fmt.Errorf("seed vehicle %s: %w", data.Vehicles[i].Number, err)
			}
		}
	}

	if n, err := q.CountDrivers(ctx); err != nil {
		return fmt.Errorf("count drivers: %w", err)
	} else if n == 0 {
		for i := len(data.Drivers) - 1; i >= 0; i-- {
			if _, err := q.CreateDriver(ctx, data.Drivers[i].Name); err != nil {
				return fmt.Errorf("seed driver %s: %w", data.Drivers[i].Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	r.logger.InfoContext(ctx, "Reference data seeded",
		"prices_applied", !seeded,
		"vehicles", len(data.Vehicles),
		"drivers", len(data.Drivers))
	return nil
}

func (r *SQLiteRepository) AddVehicle(ctx context.Context, number, model string) (core.Vehicle, error) {
	v, err := r.queries.CreateVehicle(ctx, number, model)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}
	return core.Vehicle{ID: v.ID, Number: v.Number, Model: v.Model}, nil
}

func (r *SQLiteRepository) AddDriver(ctx context.Context, name string) (core.Driver, error) {
	d, err := r.queries.CreateDriver(ctx, name)
	if err != nil {
		return core.Driver{}, fmt.Errorf("create driver: %w", err)
	}
	return core.Driver{ID: d.ID, Name: d.Name}, nil
}

func (r *SQLiteRepository) UpdateFuelPrice(ctx context.Context, t core.FuelType, price float64) (core.FuelPrice, bool, error) {
	p, err := r.queries.UpdateFuelPrice(ctx, string(t), price)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FuelPrice{}, false, nil
	}
	if err != nil {
		return core.FuelPrice{}, false, fmt.Errorf("update fuel price: %w", err)
	}
	return core.FuelPrice{ID: p.ID, Name: core.FuelType(p.Name), Price: p.Price}, true, nil
}

func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.queries.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	out := make([]core.Vehicle, len(rows))
	for i, v := range rows {
		out[i] = core.Vehicle{ID: v.ID, Number: v.Number, Model: v.Model}
	}
	return out, nil
}

func (r *SQLiteRepository) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	rows, err := r.queries.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	out := make([]core.Driver, len(rows))
	for i, d := range rows {
		out[i] = core.Driver{ID: d.ID, Name: d.Name}
	}
	return out, nil
}

func (r *SQLiteRepository) ListFuelPrices(ctx context.Context) ([]core.FuelPrice, error) {
	rows, err := r.queries.ListFuelPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fuel prices: %w", err)
	}
	out := make([]core.FuelPrice, len(rows))
	for i, p := range rows {
		out[i] = core.FuelPrice{ID: p.ID, Name: core.FuelType(p.Name), Price: p.Price}
	}
	return out, nil
}

func (r *SQLiteRepository) AddEntry(ctx context.Context, e core.FuelEntry) (core.FuelEntry, error) {
	params := CreateFuelEntryParams{
		Date:          e.Date.String(),
		SlipNumber:    e.SlipNumber,
		VehicleNumber: e.VehicleNumber,
		DriverName:    e.DriverName,
		FuelType:      string(e.FuelType),
		PricePerLiter: e.PricePerLiter,
		Quantity:      e.Quantity,
		Amount:        e.Amount,
		MeterReading:  e.MeterReading,
		CreatedAt:     r.now().UTC().Format(timeLayout),
	}
	if e.Average != nil {
		params.Average = sql.NullFloat64{Float64: *e.Average, Valid: true}
	}

	row, err := r.queries.CreateFuelEntry(ctx, params)
	if err != nil {
		return core.FuelEntry{}, fmt.Errorf("create fuel entry: %w", err)
	}

	r.logger.InfoContext(ctx, "Fuel entry saved to SQLite",
		"id", row.ID,
		"vehicle", row.VehicleNumber,
		"amount", row.Amount)

	return row.toCore()
}

func (r *SQLiteRepository) Query(ctx context.Context, f core.EntryFilter) ([]core.FuelEntry, error) {
	from, to, ok := f.Range()
	if !ok {
		return []core.FuelEntry{}, nil
	}
	rows, err := r.queries.ListFuelEntries(ctx, ListFuelEntriesParams{
		Vehicle: f.Vehicle,
		From:    from.String(),
		To:      to.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list fuel entries: %w", err)
	}
	return toCoreEntries(rows)
}

func (r *SQLiteRepository) VehicleHistory(ctx context.Context, vehicleNumber string) ([]core.FuelEntry, error) {
	rows, err := r.queries.ListFuelEntriesByVehicle(ctx, vehicleNumber)
	if err != nil {
		return nil, fmt.Errorf("list vehicle history: %w", err)
	}
	return toCoreEntries(rows)
}

func (r *SQLiteRepository) Entry(ctx context.Context, id int64) (core.FuelEntry, error) {
	row, err := r.queries.GetFuelEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FuelEntry{}, fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.FuelEntry{}, fmt.Errorf("get fuel entry: %w", err)
	}
	return row.toCore()
}

// PendingSync returns entries that still need to be exported, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.FuelEntry, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	return toCoreEntries(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	n, err := r.queries.MarkFuelEntrySynced(ctx, id, at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Fuel entry marked as synced", "id", id)
	return nil
}

func (row FuelEntryRow) toCore() (core.FuelEntry, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.FuelEntry{}, fmt.Errorf("entry %d: %w", row.ID, err)
	}
	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return core.FuelEntry{}, fmt.Errorf("entry %d created_at: %w", row.ID, err)
	}
	e := core.FuelEntry{
		ID:            row.ID,
		Date:          date,
		SlipNumber:    row.SlipNumber,
		VehicleNumber: row.VehicleNumber,
		DriverName:    row.DriverName,
		FuelType:      core.FuelType(row.FuelType),
		PricePerLiter: row.PricePerLiter,
		Quantity:      row.Quantity,
		Amount:        row.Amount,
		MeterReading:  row.MeterReading,
		CreatedAt:     createdAt,
	}
	if row.Average.Valid {
		avg := row.Average.Float64
		e.Average = &avg
	}
	if row.SyncedAt.Valid {
		if t, err := time.Parse(timeLayout, row.SyncedAt.String); err == nil {
			e.SyncedAt = &t
		}
	}
	return e, nil
}

func toCoreEntries(rows []FuelEntryRow) ([]core.FuelEntry, error) {
	out := make([]core.FuelEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
