package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseFuelType(t *testing.T) {
	cases := []struct {
		in   string
		want FuelType
		ok   bool
	}{
		{"Petrol", Petrol, true},
		{"diesel", Diesel, true},
		{" hobc ", HOBC, true},
		{"Kerosene", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseFuelType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q, %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrUnknownFuelType) {
			t.Fatalf("%q: expected ErrUnknownFuelType, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-07-15"`), &d); err != nil {
		t.Fatal(err)
	}
	if d != NewDate(2024, 7, 15) {
		t.Fatalf("got %v", d)
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2024-07-15"` {
		t.Fatalf("marshal: %s", b)
	}
	if err := json.Unmarshal([]byte(`"2024-07-15T22:10:00+02:00"`), &d); err != nil {
		t.Fatal(err)
	}
	if !d.Equal(time.Date(2024, 7, 15, 20, 10, 0, 0, time.UTC)) {
		t.Fatalf("timestamp lost its time of day: %v", d)
	}
	if d.Day() != NewDate(2024, 7, 15) {
		t.Fatalf("day: %v", d.Day())
	}
	b, _ = json.Marshal(d)
	if string(b) != `"2024-07-15T20:10:00Z"` {
		t.Fatalf("marshal: %s", b)
	}
	if err := json.Unmarshal([]byte(`"15/07/2024"`), &d); err == nil {
		t.Fatal("expected error for bad layout")
	}
}

func TestFuelEntryJSONNames(t *testing.T) {
	avg := 12.5
	b, err := json.Marshal(FuelEntry{ID: 1, Date: NewDate(2024, 7, 1), VehicleNumber: "ABC-123", Average: &avg})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	for _, k := range []string{"id", "date", "slipNumber", "vehicleNumber", "driverName", "fuelType", "pricePerLiter", "quantity", "amount", "meterReading", "average"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}

	b, _ = json.Marshal(FuelEntry{})
	_ = json.Unmarshal(b, &m)
	if m["average"] != nil {
		t.Fatalf("absent average must encode as null, got %v", m["average"])
	}
}

func TestSummarize(t *testing.T) {
	a1, a2, zero := 12.0, 10.0, 0.0
	entries := []FuelEntry{
		{Date: NewDate(2024, 7, 3), Quantity: 10, Amount: 100, Average: &a1},
		{Date: NewDate(2024, 7, 1), Quantity: 20, Amount: 200, Average: &zero},
		{Date: NewDate(2024, 7, 2), Quantity: 5, Amount: 50, Average: &a2},
		{Date: NewDate(2024, 6, 30), Quantity: 1, Amount: 10},
	}
	s := Summarize(entries)
	if s.TotalCost != 360 || s.TotalLiters != 36 {
		t.Fatalf("totals: %+v", s)
	}
	if math.Abs(s.OverallAverage-11) > 1e-9 {
		t.Fatalf("overall average %v", s.OverallAverage)
	}
	if len(s.Recent) != 4 || s.Recent[0].Date != NewDate(2024, 6, 30) || s.Recent[3].Date != NewDate(2024, 7, 3) {
		t.Fatalf("recent not sorted by date: %+v", s.Recent)
	}
}

func TestSummarizeKeepsLastSeven(t *testing.T) {
	var entries []FuelEntry
	for d := 1; d <= 10; d++ {
		entries = append(entries, FuelEntry{Date: NewDate(2024, 7, d), Quantity: float64(d)})
	}
	s := Summarize(entries)
	if len(s.Recent) != RecentEntries || s.Recent[0].Liters != 4 {
		t.Fatalf("recent: %+v", s.Recent)
	}
	if empty := Summarize(nil); empty.OverallAverage != 0 || len(empty.Recent) != 0 {
		t.Fatalf("empty summary: %+v", empty)
	}
}
