package core

// Derived holds the computed fields of a candidate entry.
type Derived struct {
	PricePerLiter   float64  `json:"pricePerLiter"`
	Amount          float64  `json:"amount"`
	PreviousReading int64    `json:"previousMeterReading"`
	Average         *float64 `json:"average"`
}

// PriceFor returns the price record for t.
func PriceFor(prices []FuelPrice, t FuelType) (FuelPrice, bool) {
	for _, p := range prices {
		if p.Name == t {
			return p, true
		}
	}
	return FuelPrice{}, false
}

// PreviousEntry returns the vehicle's entry with the latest date, comparing
// time of day when entries carry one. ledger is newest-first, so on equal
// timestamps the most recently inserted entry wins.
func PreviousEntry(ledger []FuelEntry, vehicleNumber string) (FuelEntry, bool) {
	var (
		prev  FuelEntry
		found bool
	)
	for _, e := range ledger {
		if e.VehicleNumber != vehicleNumber {
			continue
		}
		if !found || e.Date.After(prev.Date.Time) {
			prev, found = e, true
		}
	}
	return prev, found
}

// Derive computes price, amount and efficiency for in against snapshots of
// the price table and the ledger. An unknown fuel type yields a zero price.
func Derive(in EntryInput, prices []FuelPrice, ledger []FuelEntry) Derived {
	var d Derived
	if p, ok := PriceFor(prices, in.FuelType); ok {
		d.PricePerLiter = p.Price
	}
	d.Amount = in.Quantity * d.PricePerLiter

	if prev, ok := PreviousEntry(ledger, in.VehicleNumber); ok {
		d.PreviousReading = prev.MeterReading
	}
	if d.PreviousReading > 0 && in.MeterReading > d.PreviousReading && in.Quantity > 0 {
		avg := float64(in.MeterReading-d.PreviousReading) / in.Quantity
		d.Average = &avg
	}
	return d
}
