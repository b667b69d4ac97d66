package core

import "strings"

// EntryFilter selects ledger entries. Zero values match everything.
type EntryFilter struct {
	Vehicle string
	From    Date
	To      Date
}

// Range resolves the inclusive day range. A set From with no To is a single day.
// ok is false when the range can match nothing.
func (f EntryFilter) Range() (from, to Date, ok bool) {
	if f.From.IsZero() {
		return Date{}, Date{}, true
	}
	from, to = f.From.Day(), f.To.Day()
	if to.IsZero() {
		to = from
	}
	return from, to, !to.Before(from.Time)
}

func (f EntryFilter) Matches(e FuelEntry) bool {
	if v := strings.TrimSpace(f.Vehicle); v != "" {
		if !strings.Contains(strings.ToLower(e.VehicleNumber), strings.ToLower(v)) {
			return false
		}
	}
	from, to, ok := f.Range()
	if !ok {
		return false
	}
	if from.IsZero() {
		return true
	}
	day := e.Date.Day()
	return !day.Before(from.Time) && !day.After(to.Time)
}

// FilterEntries keeps the order of entries.
func FilterEntries(entries []FuelEntry, f EntryFilter) []FuelEntry {
	out := make([]FuelEntry, 0, len(entries))
	if _, _, ok := f.Range(); !ok {
		return out
	}
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
