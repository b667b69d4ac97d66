package core

import (
	"math"
	"testing"
)

func entry(id int64, vehicle string, d Date, reading int64) FuelEntry {
	return FuelEntry{ID: id, VehicleNumber: vehicle, Date: d, MeterReading: reading}
}

func TestDeriveAmount(t *testing.T) {
	prices := DefaultFuelPrices()
	cases := []struct {
		fuel FuelType
		qty  float64
	}{
		{Petrol, 30},
		{Diesel, 0.333},
		{HOBC, 12.75},
		{Petrol, 1e-3},
	}
	for i, tc := range cases {
		d := Derive(EntryInput{FuelType: tc.fuel, Quantity: tc.qty, MeterReading: 10}, prices, nil)
		p, _ := PriceFor(prices, tc.fuel)
		if math.Abs(d.Amount-tc.qty*p.Price) > 1e-9 {
			t.Fatalf("case %d: amount %v want %v", i, d.Amount, tc.qty*p.Price)
		}
		if d.PricePerLiter != p.Price {
			t.Fatalf("case %d: price %v want %v", i, d.PricePerLiter, p.Price)
		}
	}
}

func TestDeriveUnknownFuelTypeIsZeroPrice(t *testing.T) {
	d := Derive(EntryInput{FuelType: "Kerosene", Quantity: 10, MeterReading: 5}, DefaultFuelPrices(), nil)
	if d.PricePerLiter != 0 || d.Amount != 0 {
		t.Fatalf("expected zero price and amount, got %+v", d)
	}
}

func TestDeriveNoPriorEntries(t *testing.T) {
	ledger := []FuelEntry{entry(1, "XYZ-789", NewDate(2024, 7, 1), 20000)}
	d := Derive(EntryInput{VehicleNumber: "ABC-123", FuelType: Petrol, Quantity: 30, MeterReading: 150000}, DefaultFuelPrices(), ledger)
	if d.Average != nil {
		t.Fatalf("expected no average, got %v", *d.Average)
	}
	if d.PreviousReading != 0 {
		t.Fatalf("expected previous reading 0, got %d", d.PreviousReading)
	}
	if math.Abs(d.Amount-8393.70) > 1e-9 {
		t.Fatalf("amount %v want 8393.70", d.Amount)
	}
}

func TestDeriveAverage(t *testing.T) {
	ledger := []FuelEntry{entry(1, "ABC-123", NewDate(2024, 7, 1), 150000)}
	d := Derive(EntryInput{VehicleNumber: "ABC-123", FuelType: Petrol, Quantity: 35, MeterReading: 150450}, DefaultFuelPrices(), ledger)
	if d.Average == nil {
		t.Fatal("expected average")
	}
	if want := 450.0 / 35.0; math.Abs(*d.Average-want) > 1e-9 {
		t.Fatalf("average %v want %v", *d.Average, want)
	}
	if d.PreviousReading != 150000 {
		t.Fatalf("previous reading %d", d.PreviousReading)
	}
}

func TestDeriveNonIncreasingReadingHasNoAverage(t *testing.T) {
	ledger := []FuelEntry{entry(1, "ABC-123", NewDate(2024, 7, 1), 150000)}
	for _, reading := range []int64{150000, 149999} {
		d := Derive(EntryInput{VehicleNumber: "ABC-123", FuelType: Petrol, Quantity: 35, MeterReading: reading}, DefaultFuelPrices(), ledger)
		if d.Average != nil {
			t.Fatalf("reading %d: expected no average, got %v", reading, *d.Average)
		}
	}
}

func TestPreviousEntryUsesLatestDate(t *testing.T) {
	// Newest-first ledger whose most recent insertion carries an older date.
	ledger := []FuelEntry{
		entry(3, "ABC-123", NewDate(2024, 6, 1), 140000),
		entry(2, "ABC-123", NewDate(2024, 7, 10), 150450),
		entry(1, "ABC-123", NewDate(2024, 7, 1), 150000),
	}
	prev, ok := PreviousEntry(ledger, "ABC-123")
	if !ok || prev.ID != 2 {
		t.Fatalf("expected entry 2, got %+v ok=%v", prev, ok)
	}
}

func TestPreviousEntryTieGoesToNewestInsert(t *testing.T) {
	day := NewDate(2024, 7, 1)
	ledger := []FuelEntry{
		entry(2, "ABC-123", day, 150450),
		entry(1, "ABC-123", day, 150000),
	}
	prev, _ := PreviousEntry(ledger, "ABC-123")
	if prev.ID != 2 {
		t.Fatalf("expected entry 2, got %d", prev.ID)
	}
}

func TestPreviousEntryComparesTimeOfDay(t *testing.T) {
	morning, _ := ParseDate("2024-07-01T08:00:00Z")
	evening, _ := ParseDate("2024-07-01T18:30:00Z")
	// The evening fill was recorded first, the morning one afterwards.
	ledger := []FuelEntry{
		entry(2, "ABC-123", morning, 150200),
		entry(1, "ABC-123", evening, 150450),
	}
	prev, _ := PreviousEntry(ledger, "ABC-123")
	if prev.ID != 1 {
		t.Fatalf("expected the evening entry, got %d", prev.ID)
	}
}

func TestPreviousEntryMatchesVehicleExactly(t *testing.T) {
	ledger := []FuelEntry{entry(1, "abc-123", NewDate(2024, 7, 1), 150000)}
	if _, ok := PreviousEntry(ledger, "ABC-123"); ok {
		t.Fatal("vehicle lookup must be exact")
	}
}
