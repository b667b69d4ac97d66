package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fuellog/internal/core"
	"fuellog/internal/seed"
)

// Store keeps all state in process memory. Ids come from per-collection
// counters and are never reused.
type Store struct {
	mu       sync.Mutex
	prices   []core.FuelPrice
	vehicles []core.Vehicle
	drivers  []core.Driver
	entries  []core.FuelEntry

	lastVehicle int64
	lastDriver  int64
	lastEntry   int64

	now func() time.Time
}

func New(data seed.Data) *Store {
	s := &Store{
		prices:   append([]core.FuelPrice(nil), data.Prices...),
		vehicles: append([]core.Vehicle(nil), data.Vehicles...),
		drivers:  append([]core.Driver(nil), data.Drivers...),
		now:      time.Now,
	}
	for _, v := range s.vehicles {
		s.lastVehicle = max(s.lastVehicle, v.ID)
	}
	for _, d := range s.drivers {
		s.lastDriver = max(s.lastDriver, d.ID)
	}
	return s
}

// NewFromFile seeds the store from a TOML file, or the defaults when path is empty.
func NewFromFile(path string) (*Store, error) {
	data, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	return New(data), nil
}

func (s *Store) AddVehicle(_ context.Context, number, model string) (core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVehicle++
	v := core.Vehicle{ID: s.lastVehicle, Number: number, Model: model}
	s.vehicles = append([]core.Vehicle{v}, s.vehicles...)
	return v, nil
}

func (s *Store) AddDriver(_ context.Context, name string) (core.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDriver++
	d := core.Driver{ID: s.lastDriver, Name: name}
	s.drivers = append([]core.Driver{d}, s.drivers...)
	return d, nil
}

func (s *Store) UpdateFuelPrice(_ context.Context, t core.FuelType, price float64) (core.FuelPrice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prices {
		if s.prices[i].Name == t {
			s.prices[i].Price = price
			return s.prices[i], true, nil
		}
	}
	return core.FuelPrice{}, false, nil
}

func (s *Store) ListVehicles(_ context.Context) ([]core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Vehicle(nil), s.vehicles...), nil
}

func (s *Store) ListDrivers(_ context.Context) ([]core.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Driver(nil), s.drivers...), nil
}

func (s *Store) ListFuelPrices(_ context.Context) ([]core.FuelPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FuelPrice(nil), s.prices...), nil
}

func (s *Store) AddEntry(_ context.Context, e core.FuelEntry) (core.FuelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEntry++
	e.ID = s.lastEntry
	e.CreatedAt = s.now().UTC()
	e.SyncedAt = nil
	s.entries = append([]core.FuelEntry{e}, s.entries...)
	return e, nil
}

func (s *Store) Query(_ context.Context, f core.EntryFilter) ([]core.FuelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.FilterEntries(s.entries, f), nil
}

func (s *Store) VehicleHistory(_ context.Context, vehicleNumber string) ([]core.FuelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.FuelEntry
	for _, e := range s.entries {
		if e.VehicleNumber == vehicleNumber {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Entry(_ context.Context, id int64) (core.FuelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.FuelEntry{}, fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
}

// PendingSync returns unsynced entries oldest first.
func (s *Store) PendingSync(_ context.Context, limit int) ([]core.FuelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.FuelEntry
	for _, e := range s.entries {
		if e.SyncedAt == nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			t := at.UTC()
			s.entries[i].SyncedAt = &t
			return nil
		}
	}
	return fmt.Errorf("entry %d: %w", id, core.ErrNotFound)
}
