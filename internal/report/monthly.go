// Package report derives dashboard figures from a ledger snapshot. Every
// function is pure: same snapshot and clock, same result.
package report

import (
	"time"

	"caisse/internal/core"
)

// IncomeForMonth sums payment parts and other income dated in month ym
// (YYYY-MM).
func IncomeForMonth(s core.Snapshot, ym string) int64 {
	var total int64
	for _, p := range s.PaymentParts {
		if core.InMonth(p.Date, ym) {
			total += p.Amount
		}
	}
	for _, i := range s.OtherIncome {
		if core.InMonth(i.Date, ym) {
			total += i.Amount
		}
	}
	return total
}

// ExpensesForMonth sums expenses dated in month ym (YYYY-MM).
func ExpensesForMonth(s core.Snapshot, ym string) int64 {
	var total int64
	for _, e := range s.Expenses {
		if core.InMonth(e.Date, ym) {
			total += e.Amount
		}
	}
	return total
}

// MonthlyIncome is the income of now's month. When that is zero but any
// income exists, the all-time total is returned instead.
func MonthlyIncome(s core.Snapshot, now time.Time) int64 {
	total := IncomeForMonth(s, core.MonthKey(now))
	if total != 0 || (len(s.PaymentParts) == 0 && len(s.OtherIncome) == 0) {
		return total
	}
	for _, p := range s.PaymentParts {
		total += p.Amount
	}
	for _, i := range s.OtherIncome {
		total += i.Amount
	}
	return total
}

// MonthlyExpenses is the spending of now's month, with the same all-time
// fallback as MonthlyIncome.
func MonthlyExpenses(s core.Snapshot, now time.Time) int64 {
	total := ExpensesForMonth(s, core.MonthKey(now))
	if total != 0 || len(s.Expenses) == 0 {
		return total
	}
	for _, e := range s.Expenses {
		total += e.Amount
	}
	return total
}

// ProjectedIncome adds the full amount of every target not yet paid to the
// monthly income.
func ProjectedIncome(s core.Snapshot, now time.Time) int64 {
	total := MonthlyIncome(s, now)
	for _, t := range s.PaymentTargets {
		if t.Status != core.Paid {
			total += t.TotalAmount
		}
	}
	return total
}

// MonthPoint is one month of the income/expense series.
type MonthPoint struct {
	Month    string `json:"month"` // YYYY-MM
	Label    string `json:"label"` // MM/YY
	Income   int64  `json:"income"`
	Expenses int64  `json:"expenses"`
}

// Series covers the six months ending with the current one, oldest first.
// Max is the largest value in it, at least 1, for chart scaling.
type Series struct {
	Months []MonthPoint `json:"months"`
	Max    int64        `json:"max"`
}

// SixMonthSeries returns per-month totals without the all-time fallback.
func SixMonthSeries(s core.Snapshot, now time.Time) Series {
	series := Series{Months: make([]MonthPoint, 0, 6), Max: 1}
	for i := 5; i >= 0; i-- {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		ym := core.MonthKey(first)
		p := MonthPoint{
			Month:    ym,
			Label:    first.Format("01/06"),
			Income:   IncomeForMonth(s, ym),
			Expenses: ExpensesForMonth(s, ym),
		}
		series.Max = max(series.Max, p.Income, p.Expenses)
		series.Months = append(series.Months, p)
	}
	return series
}
