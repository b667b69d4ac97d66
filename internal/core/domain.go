package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	Petrol FuelType = "Petrol"
	Diesel FuelType = "Diesel"
	HOBC   FuelType = "HOBC"
)

// MinQuantity is the exclusive lower bound for an entry's quantity in liters.
const MinQuantity = 0.1

const dateLayout = "2006-01-02"

type (
	FuelType string

	// Date is an entry date in UTC. It is midnight for a bare YYYY-MM-DD and
	// keeps the time of day of a full timestamp. Filters compare whole days;
	// PreviousEntry compares full timestamps.
	Date struct {
		time.Time
	}

	FuelPrice struct {
		ID    int64    `json:"id"`
		Name  FuelType `json:"name"`
		Price float64  `json:"price"`
	}

	// Vehicle numbers are a logical key only; duplicates are accepted.
	Vehicle struct {
		ID     int64  `json:"id"`
		Number string `json:"number"`
		Model  string `json:"model"`
	}

	Driver struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// FuelEntry references its vehicle and driver by number and name.
	// Neither relation is enforced.
	FuelEntry struct {
		ID            int64      `json:"id"`
		Date          Date       `json:"date"`
		SlipNumber    string     `json:"slipNumber"`
		VehicleNumber string     `json:"vehicleNumber"`
		DriverName    string     `json:"driverName"`
		FuelType      FuelType   `json:"fuelType"`
		PricePerLiter float64    `json:"pricePerLiter"`
		Quantity      float64    `json:"quantity"`
		Amount        float64    `json:"amount"`
		MeterReading  int64      `json:"meterReading"`
		Average       *float64   `json:"average"`
		CreatedAt     time.Time  `json:"createdAt"`
		SyncedAt      *time.Time `json:"syncedAt,omitempty"`
	}

	// EntryInput carries the user-supplied fields of a new entry.
	EntryInput struct {
		Date          Date     `json:"date"`
		SlipNumber    string   `json:"slipNumber" validate:"required"`
		VehicleNumber string   `json:"vehicleNumber" validate:"required"`
		DriverName    string   `json:"driverName" validate:"required"`
		FuelType      FuelType `json:"fuelType" validate:"required,fueltype"`
		Quantity      float64  `json:"quantity" validate:"gt=0.1"`
		MeterReading  int64    `json:"meterReading" validate:"gt=0"`
	}
)

// FuelTypes lists the closed set of supported fuels.
func FuelTypes() []FuelType {
	return []FuelType{Petrol, Diesel, HOBC}
}

func (t FuelType) Valid() bool {
	switch t {
	case Petrol, Diesel, HOBC:
		return true
	}
	return false
}

// ParseFuelType matches s against the known fuel types ignoring case.
func ParseFuelType(s string) (FuelType, error) {
	s = strings.TrimSpace(s)
	for _, t := range FuelTypes() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFuelType, s)
}

// DefaultFuelPrices returns the initial price table.
func DefaultFuelPrices() []FuelPrice {
	return []FuelPrice{
		{ID: 1, Name: Petrol, Price: 279.79},
		{ID: 2, Name: Diesel, Price: 287.33},
		{ID: 3, Name: HOBC, Price: 330.12},
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, which keeps its
// time of day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t.UTC()}, nil
}

// Day drops the time of day.
func (d Date) Day() Date {
	return DateOf(d.Time)
}

// String formats midnight as YYYY-MM-DD and any other time as RFC 3339.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	if d.Time.Equal(d.Day().Time) {
		return d.Format(dateLayout)
	}
	return d.UTC().Format(time.RFC3339Nano)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) == "null" {
			*d = Date{}
			return nil
		}
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize trims whitespace from the text fields.
func (in EntryInput) Normalize() EntryInput {
	in.SlipNumber = strings.TrimSpace(in.SlipNumber)
	in.VehicleNumber = strings.TrimSpace(in.VehicleNumber)
	in.DriverName = strings.TrimSpace(in.DriverName)
	in.FuelType = FuelType(strings.TrimSpace(string(in.FuelType)))
	if !in.Date.IsZero() {
		in.Date = Date{Time: in.Date.UTC()}
	}
	return in
}

// Entry combines the input with its derived fields. ID and CreatedAt are set by the ledger.
func (in EntryInput) Entry(d Derived) FuelEntry {
	return FuelEntry{
		Date:          in.Date,
		SlipNumber:    in.SlipNumber,
		VehicleNumber: in.VehicleNumber,
		DriverName:    in.DriverName,
		FuelType:      in.FuelType,
		PricePerLiter: d.PricePerLiter,
		Quantity:      in.Quantity,
		Amount:        d.Amount,
		MeterReading:  in.MeterReading,
		Average:       d.Average,
	}
}
