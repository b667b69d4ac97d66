package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fuellog/internal/core"
	"fuellog/internal/ledger"
	applog "fuellog/internal/log"
	"fuellog/internal/metrics"
)

// ReferenceService manages vehicles, drivers and the fuel price table.
type ReferenceService struct {
	store   ledger.ReferenceStore
	metrics *metrics.Metrics
	logger  *applog.Logger
	log     *applog.StructuredLogger
}

func NewReferenceService(store ledger.ReferenceStore, m *metrics.Metrics, logger *applog.Logger) *ReferenceService {
	if logger == nil {
		logger = applog.Default(applog.ComponentReference)
	}
	logger = logger.WithComponent(applog.ComponentReference)
	return &ReferenceService{
		store:   store,
		metrics: m,
		logger:  logger,
		log:     applog.NewStructuredLogger(logger),
	}
}

// AddVehicle registers a vehicle. Numbers are not unique; registering a
// number twice is logged and accepted.
func (s *ReferenceService) AddVehicle(ctx context.Context, number, model string) (core.Vehicle, error) {
	number, model = strings.TrimSpace(number), strings.TrimSpace(model)
	if number == "" {
		return core.Vehicle{}, core.NewValidationError("number", "is required")
	}

	existing, err := s.store.ListVehicles(ctx)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("list vehicles: %w", err)
	}
	for _, v := range existing {
		if v.Number == number {
			s.logger.WarnContext(ctx, "Vehicle number already registered",
				applog.FieldVehicle, number,
				"existing_id", v.ID)
			break
		}
	}

	v, err := s.store.AddVehicle(ctx, number, model)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("add vehicle: %w", err)
	}
	s.logger.InfoContext(ctx, "Vehicle added", "id", v.ID, applog.FieldVehicle, v.Number, "model", v.Model)
	return v, nil
}

func (s *ReferenceService) AddDriver(ctx context.Context, name string) (core.Driver, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Driver{}, core.NewValidationError("name", "is required")
	}
	d, err := s.store.AddDriver(ctx, name)
	if err != nil {
		return core.Driver{}, fmt.Errorf("add driver: %w", err)
	}
	s.logger.InfoContext(ctx, "Driver added", "id", d.ID, applog.FieldDriver, d.Name)
	return d, nil
}

// UpdateFuelPrice overwrites the price for fuelType. A fuel type with no
// price record, including one outside the known set, reports found=false
// and changes nothing.
func (s *ReferenceService) UpdateFuelPrice(ctx context.Context, fuelType string, price float64) (core.FuelPrice, bool, error) {
	if err := core.ValidatePrice(price); err != nil {
		return core.FuelPrice{}, false, err
	}

	t, err := core.ParseFuelType(fuelType)
	if err != nil {
		if errors.Is(err, core.ErrUnknownFuelType) {
			s.metrics.PriceUpdated(metrics.UnknownFuelType, false)
			return core.FuelPrice{}, false, nil
		}
		return core.FuelPrice{}, false, err
	}

	p, found, err := s.store.UpdateFuelPrice(ctx, t, price)
	if err != nil {
		return core.FuelPrice{}, false, fmt.Errorf("update fuel price: %w", err)
	}
	s.metrics.PriceUpdated(string(t), found)
	if found {
		s.log.LogPriceUpdated(ctx, string(p.Name), p.Price)
	}
	return p, found, nil
}

// FuelPrice returns the current price record for t.
func (s *ReferenceService) FuelPrice(ctx context.Context, t core.FuelType) (core.FuelPrice, bool, error) {
	prices, err := s.store.ListFuelPrices(ctx)
	if err != nil {
		return core.FuelPrice{}, false, fmt.Errorf("list fuel prices: %w", err)
	}
	p, ok := core.PriceFor(prices, t)
	return p, ok, nil
}

func (s *ReferenceService) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	vs, err := s.store.ListVehicles(ctx)
	if vs == nil && err == nil {
		vs = []core.Vehicle{}
	}
	return vs, err
}

func (s *ReferenceService) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	ds, err := s.store.ListDrivers(ctx)
	if ds == nil && err == nil {
		ds = []core.Driver{}
	}
	return ds, err
}

func (s *ReferenceService) ListFuelPrices(ctx context.Context) ([]core.FuelPrice, error) {
	return s.store.ListFuelPrices(ctx)
}
