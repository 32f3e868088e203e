// Package view derives display representations from the locally mirrored
// collections. Every function here is a pure transform of its inputs; nothing
// reads or mutates shared state.
package view

import (
	"html/template"
	"sort"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/core"
)

type (
	// Row is one rendered line of the entry list. EditAmount and EditDate
	// carry the raw form values so the client can prefill the edit form.
	Row struct {
		ID         string
		Name       string // HTML-escaped
		Category   string
		Date       string
		Amount     string // formatted magnitude, sign carried by Positive
		Positive   bool
		EditAmount string // signed decimal, e.g. "-120.50"
		EditDate   string // YYYY-MM-DD
	}

	// CategorySlice is one slice of the category spending chart.
	CategorySlice struct {
		Category string
		Amount   core.Money // absolute magnitude
	}

	// TrendPoint is one day of the 7-day trend line.
	TrendPoint struct {
		Date  core.Date
		Label string
		Total core.Money
	}

	// MonthlyStats are the quick stats for the current calendar month.
	MonthlyStats struct {
		Income           core.Money
		Spending         core.Money // positive magnitude
		Balance          core.Money
		CategoriesUsed   int
		AvgDailySpending core.Money
		Transactions     int
	}
)

// Balance is the sign-inclusive sum of all entry amounts.
func Balance(entries []core.Entry) core.Money {
	var total core.Money
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Rows renders the entry list sorted by date descending. Names are escaped
// here so templates can print them as-is.
func Rows(entries []core.Entry, f Formatter) []Row {
	sorted := make([]core.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date.Time)
		}
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	rows := make([]Row, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, Row{
			ID:         e.ID,
			Name:       template.HTMLEscapeString(e.Name),
			Category:   e.Category,
			Date:       FormatDate(e.Date),
			Amount:     f.Format(e.Amount),
			Positive:   e.Amount.Cents >= 0,
			EditAmount: e.Amount.String(),
			EditDate:   e.Date.String(),
		})
	}
	return rows
}

// CategoryBreakdown aggregates spending (amount < 0) by category, summing
// absolute magnitudes. Entries with amount >= 0 are excluded. The result is
// ordered largest-first for stable chart rendering; an empty result means the
// chart shows a placeholder instead.
func CategoryBreakdown(entries []core.Entry) []CategorySlice {
	sums := make(map[string]int64)
	for _, e := range entries {
		if !e.Amount.Negative() {
			continue
		}
		sums[e.Category] += e.Amount.Abs().Cents
	}

	slices := make([]CategorySlice, 0, len(sums))
	for cat, cents := range sums {
		slices = append(slices, CategorySlice{Category: cat, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Amount.Cents != slices[j].Amount.Cents {
			return slices[i].Amount.Cents > slices[j].Amount.Cents
		}
		return slices[i].Category < slices[j].Category
	})
	return slices
}

// SevenDayTrend sums each of the last 7 calendar days, oldest to newest and
// inclusive of today. Days without entries contribute zero, so the result
// always has exactly 7 points.
func SevenDayTrend(entries []core.Entry, today time.Time) []TrendPoint {
	points := make([]TrendPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		day := core.DateOf(today.AddDate(0, 0, -i))
		var total core.Money
		for _, e := range entries {
			if e.Date.Equal(day) {
				total = total.Add(e.Amount)
			}
		}
		points = append(points, TrendPoint{
			Date:  day,
			Label: FormatDateShort(day),
			Total: total,
		})
	}
	return points
}

// StatsForMonth restricts entries to now's calendar month and derives the
// quick stats. Average daily spending divides the monthly spending magnitude
// by the current day of the month.
func StatsForMonth(entries []core.Entry, now time.Time) MonthlyStats {
	year, month := now.Year(), now.Month()

	var stats MonthlyStats
	categories := make(map[string]struct{})
	for _, e := range entries {
		if !e.Date.InMonth(year, month) {
			continue
		}
		stats.Transactions++
		categories[e.Category] = struct{}{}
		if e.Amount.Negative() {
			stats.Spending = stats.Spending.Add(e.Amount.Abs())
		} else {
			stats.Income = stats.Income.Add(e.Amount)
		}
	}
	stats.Balance = core.Money{Cents: stats.Income.Cents - stats.Spending.Cents}
	stats.CategoriesUsed = len(categories)
	stats.AvgDailySpending = core.Money{Cents: stats.Spending.Cents / int64(now.Day())}
	return stats
}
