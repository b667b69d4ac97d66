package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns.
type (
	FuelPriceRow struct {
		ID    int64
		Name  string
		Price float64
	}

	VehicleRow struct {
		ID     int64
		Number string
		Model  string
	}

	DriverRow struct {
		ID   int64
		Name string
	}

	FuelEntryRow struct {
		ID            int64
		Date          string
		SlipNumber    string
		VehicleNumber string
		DriverName    string
		FuelType      string
		PricePerLiter float64
		Quantity      float64
		Amount        float64
		MeterReading  int64
		Average       sql.NullFloat64
		CreatedAt     string
		SyncedAt      sql.NullString
	}

	CreateFuelEntryParams struct {
		Date          string
		SlipNumber    string
		VehicleNumber string
		DriverName    string
		FuelType      string
		PricePerLiter float64
		Quantity      float64
		Amount        float64
		MeterReading  int64
		Average       sql.NullFloat64
		CreatedAt     string
	}

	ListFuelEntriesParams struct {
		Vehicle string
		From    string
		To      string
	}
)

const fuelEntryColumns = `id, date, slip_number, vehicle_number, driver_name, fuel_type,
	price_per_liter, quantity, amount, meter_reading, average, created_at, synced_at`

const createVehicle = `INSERT INTO vehicles (number, model) VALUES (?, ?) RETURNING id, number, model`

func (q *Queries) CreateVehicle(ctx context.Context, number, model string) (VehicleRow, error) {
	var v VehicleRow
	err := q.db.QueryRowContext(ctx, createVehicle, number, model).Scan(&v.ID, &v.Number, &v.Model)
	return v, err
}

const listVehicles = `SELECT id, number, model FROM vehicles ORDER BY id DESC`

func (q *Queries) ListVehicles(ctx context.Context) ([]VehicleRow, error) {
	rows, err := q.db.QueryContext(ctx, listVehicles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VehicleRow
	for rows.Next() {
		var v VehicleRow
		if err := rows.Scan(&v.ID, &v.Number, &v.Model); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const countVehicles = `SELECT COUNT(*) FROM vehicles`

func (q *Queries) CountVehicles(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countVehicles).Scan(&n)
	return n, err
}

const createDriver = `INSERT INTO drivers (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreateDriver(ctx context.Context, name string) (DriverRow, error) {
	var d DriverRow
	err := q.db.QueryRowContext(ctx, createDriver, name).Scan(&d.ID, &d.Name)
	return d, err
}

const listDrivers = `SELECT id, name FROM drivers ORDER BY id DESC`

func (q *Queries) ListDrivers(ctx context.Context) ([]DriverRow, error) {
	rows, err := q.db.QueryContext(ctx, listDrivers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DriverRow
	for rows.Next() {
		var d DriverRow
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const countDrivers = `SELECT COUNT(*) FROM drivers`

func (q *Queries) CountDrivers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countDrivers).Scan(&n)
	return n, err
}

const seedApplied = `SELECT EXISTS (SELECT 1 FROM seed_runs WHERE id = 1)`

func (q *Queries) SeedApplied(ctx context.Context) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, seedApplied).Scan(&ok)
	return ok, err
}

const markSeedApplied = `INSERT INTO seed_runs (id, applied_at) VALUES (1, ?)
ON CONFLICT (id) DO NOTHING`

func (q *Queries) MarkSeedApplied(ctx context.Context, appliedAt string) error {
	_, err := q.db.ExecContext(ctx, markSeedApplied, appliedAt)
	return err
}

const updateFuelPrice = `UPDATE fuel_prices
SET price = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE name = ?
RETURNING id, name, price`

// UpdateFuelPrice returns sql.ErrNoRows when name has no price record.
func (q *Queries) UpdateFuelPrice(ctx context.Context, name string, price float64) (FuelPriceRow, error) {
	var p FuelPriceRow
	err := q.db.QueryRowContext(ctx, updateFuelPrice, price, name).Scan(&p.ID, &p.Name, &p.Price)
	return p, err
}

const listFuelPrices = `SELECT id, name, price FROM fuel_prices ORDER BY id`

func (q *Queries) ListFuelPrices(ctx context.Context) ([]FuelPriceRow, error) {
	rows, err := q.db.QueryContext(ctx, listFuelPrices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FuelPriceRow
	for rows.Next() {
		var p FuelPriceRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createFuelEntry = `INSERT INTO fuel_entries (
	date, slip_number, vehicle_number, driver_name, fuel_type,
	price_per_liter, quantity, amount, meter_reading, average, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + fuelEntryColumns

func (q *Queries) CreateFuelEntry(ctx context.Context, arg CreateFuelEntryParams) (FuelEntryRow, error) {
	row := q.db.QueryRowContext(ctx, createFuelEntry,
		arg.Date,
		arg.SlipNumber,
		arg.VehicleNumber,
		arg.DriverName,
		arg.FuelType,
		arg.PricePerLiter,
		arg.Quantity,
		arg.Amount,
		arg.MeterReading,
		arg.Average,
		arg.CreatedAt,
	)
	return scanFuelEntry(row)
}

const getFuelEntry = `SELECT ` + fuelEntryColumns + ` FROM fuel_entries WHERE id = ?`

func (q *Queries) GetFuelEntry(ctx context.Context, id int64) (FuelEntryRow, error) {
	return scanFuelEntry(q.db.QueryRowContext(ctx, getFuelEntry, id))
}

// Empty parameters disable their condition. Dates are stored as YYYY-MM-DD
// or as a UTC RFC 3339 timestamp, so the leading ten characters compare as days.
const listFuelEntries = `SELECT ` + fuelEntryColumns + ` FROM fuel_entries
WHERE (?1 = '' OR instr(lower(vehicle_number), lower(?1)) > 0)
  AND (?2 = '' OR (substr(date, 1, 10) >= ?2 AND substr(date, 1, 10) <= ?3))
ORDER BY id DESC`

func (q *Queries) ListFuelEntries(ctx context.Context, arg ListFuelEntriesParams) ([]FuelEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listFuelEntries, arg.Vehicle, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return scanFuelEntries(rows)
}

const listFuelEntriesByVehicle = `SELECT ` + fuelEntryColumns + ` FROM fuel_entries
WHERE vehicle_number = ?
ORDER BY id DESC`

func (q *Queries) ListFuelEntriesByVehicle(ctx context.Context, vehicleNumber string) ([]FuelEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listFuelEntriesByVehicle, vehicleNumber)
	if err != nil {
		return nil, err
	}
	return scanFuelEntries(rows)
}

const getPendingSyncEntries = `SELECT ` + fuelEntryColumns + ` FROM fuel_entries
WHERE synced_at IS NULL
ORDER BY id
LIMIT ?`

func (q *Queries) GetPendingSyncEntries(ctx context.Context, limit int64) ([]FuelEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncEntries, limit)
	if err != nil {
		return nil, err
	}
	return scanFuelEntries(rows)
}

const markFuelEntrySynced = `UPDATE fuel_entries SET synced_at = ? WHERE id = ?`

func (q *Queries) MarkFuelEntrySynced(ctx context.Context, id int64, syncedAt string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markFuelEntrySynced, syncedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFuelEntry(row rowScanner) (FuelEntryRow, error) {
	var e FuelEntryRow
	err := row.Scan(
		&e.ID,
		&e.Date,
		&e.SlipNumber,
		&e.VehicleNumber,
		&e.DriverName,
		&e.FuelType,
		&e.PricePerLiter,
		&e.Quantity,
		&e.Amount,
		&e.MeterReading,
		&e.Average,
		&e.CreatedAt,
		&e.SyncedAt,
	)
	return e, err
}

func scanFuelEntries(rows *sql.Rows) ([]FuelEntryRow, error) {
	defer rows.Close()
	var items []FuelEntryRow
	for rows.Next() {
		e, err := scanFuelEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
