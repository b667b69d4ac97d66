package core

import "sort"

// RecentEntries is the number of entries shown in the consumption chart.
const RecentEntries = 7

// DailyLiters is one point of the consumption chart.
type DailyLiters struct {
	Date   Date    `json:"date"`
	Liters float64 `json:"liters"`
}

// Summary is the dashboard overview.
type Summary struct {
	TotalCost      float64       `json:"totalCost"`
	TotalLiters    float64       `json:"totalLiters"`
	OverallAverage float64       `json:"overallAverage"`
	EntryCount     int           `json:"entryCount"`
	Recent         []DailyLiters `json:"recent"`
}

// Summarize aggregates the ledger. OverallAverage is the mean of the
// positive averages, 0 when none exist.
func Summarize(entries []FuelEntry) Summary {
	s := Summary{EntryCount: len(entries), Recent: []DailyLiters{}}

	var sum float64
	var n int
	for _, e := range entries {
		s.TotalCost += e.Amount
		s.TotalLiters += e.Quantity
		if e.Average != nil && *e.Average > 0 {
			sum += *e.Average
			n++
		}
	}
	if n > 0 {
		s.OverallAverage = sum / float64(n)
	}

	byDate := make([]FuelEntry, len(entries))
	copy(byDate, entries)
	sort.SliceStable(byDate, func(i, j int) bool {
		return byDate[i].Date.Before(byDate[j].Date.Time)
	})
	if len(byDate) > RecentEntries {
		byDate = byDate[len(byDate)-RecentEntries:]
	}
	for _, e := range byDate {
		s.Recent = append(s.Recent, DailyLiters{Date: e.Date.Day(), Liters: e.Quantity})
	}
	return s
}
