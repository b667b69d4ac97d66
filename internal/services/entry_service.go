package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fuellog/internal/cache"
	"fuellog/internal/core"
	"fuellog/internal/ledger"
	applog "fuellog/internal/log"
	"fuellog/internal/metrics"
	"fuellog/internal/sheets"
)

const summaryKey = "dashboard"

// Publisher announces committed entries to the sync worker.
type Publisher interface {
	PublishEntrySync(ctx context.Context, id int64) error
}

// Preview is the live computation shown while an entry is being filled in.
// Errors lists the derivation inputs that would fail validation.
type Preview struct {
	core.Derived
	Errors map[string]string `json:"errors,omitempty"`
}

// EntryService validates, derives and records fuel entries.
type EntryService struct {
	store     ledger.Store
	publisher Publisher
	exporter  sheets.EntryExporter
	summaries *cache.LRUCache[core.Summary]
	metrics   *metrics.Metrics
	log       *applog.StructuredLogger
	now       func() time.Time
}

type EntryOption func(*EntryService)

func WithPublisher(p Publisher) EntryOption {
	return func(s *EntryService) { s.publisher = p }
}

func WithExporter(e sheets.EntryExporter) EntryOption {
	return func(s *EntryService) { s.exporter = e }
}

// WithSummaryCache caches the dashboard summary until the next entry is created.
func WithSummaryCache(c *cache.LRUCache[core.Summary]) EntryOption {
	return func(s *EntryService) { s.summaries = c }
}

func WithMetrics(m *metrics.Metrics) EntryOption {
	return func(s *EntryService) { s.metrics = m }
}

func WithLogger(l *applog.Logger) EntryOption {
	return func(s *EntryService) { s.log = applog.NewStructuredLogger(l) }
}

func NewEntryService(store ledger.Store, opts ...EntryOption) *EntryService {
	s := &EntryService{
		store:    store,
		exporter: sheets.Disabled{},
		log:      applog.NewStructuredLogger(applog.Default(applog.ComponentEntry)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview derives the computed fields for a partially filled input. It never
// fails on invalid input; problems are reported in Preview.Errors.
func (s *EntryService) Preview(ctx context.Context, in core.EntryInput) (Preview, error) {
	in = in.Normalize()
	d, err := s.derive(ctx, in)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Derived: d, Errors: core.ValidateDerivation(in)}, nil
}

// Create validates in, derives the computed fields against the current
// price table and vehicle history, and appends the entry to the ledger.
// A failed sync publication is logged and does not fail the call.
func (s *EntryService) Create(ctx context.Context, in core.EntryInput) (core.FuelEntry, error) {
	in = in.Normalize()
	if err := core.ValidateEntry(in); err != nil {
		return core.FuelEntry{}, err
	}

	d, err := s.derive(ctx, in)
	if err != nil {
		return core.FuelEntry{}, err
	}

	entry, err := s.store.AddEntry(ctx, in.Entry(d))
	if err != nil {
		return core.FuelEntry{}, fmt.Errorf("add entry: %w", err)
	}
	if s.summaries != nil {
		s.summaries.Purge()
	}
	s.metrics.EntryCreated(entry.Quantity, entry.Amount)
	s.log.LogEntryCreated(ctx, entry.ID, entry.SlipNumber, entry.VehicleNumber, entry.DriverName,
		string(entry.FuelType), entry.Quantity, entry.Amount, entry.MeterReading, entry.Average)

	if s.publisher != nil {
		if err := s.publisher.PublishEntrySync(ctx, entry.ID); err != nil {
			s.metrics.PublishFailed()
			s.log.LogError(ctx, "Failed to publish entry sync message", err,
				applog.ComponentAMQP, applog.OpSync, applog.LogFields{applog.FieldEntryID: entry.ID})
		}
	}
	return entry, nil
}

func (s *EntryService) derive(ctx context.Context, in core.EntryInput) (core.Derived, error) {
	prices, err := s.store.ListFuelPrices(ctx)
	if err != nil {
		return core.Derived{}, fmt.Errorf("list fuel prices: %w", err)
	}
	var history []core.FuelEntry
	if in.VehicleNumber != "" {
		history, err = s.store.VehicleHistory(ctx, in.VehicleNumber)
		if err != nil {
			return core.Derived{}, fmt.Errorf("vehicle history: %w", err)
		}
	}
	return core.Derive(in, prices, history), nil
}

func (s *EntryService) Query(ctx context.Context, f core.EntryFilter) ([]core.FuelEntry, error) {
	entries, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	if entries == nil {
		entries = []core.FuelEntry{}
	}
	return entries, nil
}

func (s *EntryService) Entry(ctx context.Context, id int64) (core.FuelEntry, error) {
	return s.store.Entry(ctx, id)
}

// Summary aggregates the whole ledger for the dashboard.
func (s *EntryService) Summary(ctx context.Context) (core.Summary, error) {
	load := func(ctx context.Context) (core.Summary, error) {
		entries, err := s.store.Query(ctx, core.EntryFilter{})
		if err != nil {
			return core.Summary{}, fmt.Errorf("load entries: %w", err)
		}
		return core.Summarize(entries), nil
	}
	if s.summaries == nil {
		return load(ctx)
	}
	return s.summaries.GetOrLoad(ctx, summaryKey, load)
}

// SyncToSheets appends the entries matching f to the spreadsheet and marks
// them synced. It returns the number of rows written.
func (s *EntryService) SyncToSheets(ctx context.Context, f core.EntryFilter) (int, error) {
	entries, err := s.Query(ctx, f)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return ExportEntries(ctx, s.exporter, s.store, entries, s.now, s.metrics)
}

// ExportEntries appends entries to exporter and records the sync time for
// each. Entries already appended are not rolled back when marking fails.
func ExportEntries(ctx context.Context, exporter sheets.EntryExporter, tracker ledger.SyncTracker, entries []core.FuelEntry, now func() time.Time, m *metrics.Metrics) (int, error) {
	n, err := exporter.AppendEntries(ctx, entries)
	if err != nil {
		m.SyncFailed()
		return 0, fmt.Errorf("append entries: %w", err)
	}
	at := now().UTC()
	var errs []error
	for _, e := range entries {
		if err := tracker.MarkSynced(ctx, e.ID, at); err != nil {
			errs = append(errs, fmt.Errorf("mark entry %d synced: %w", e.ID, err))
		}
	}
	m.Synced(n)
	return n, errors.Join(errs...)
}
