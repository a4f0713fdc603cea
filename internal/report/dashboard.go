package report

import (
	"time"

	"caisse/internal/core"
)

// Dashboard gathers every figure the overview screen shows.
type Dashboard struct {
	Currency          string             `json:"currency"`
	Month             string             `json:"month"`
	MonthlyIncome     int64              `json:"monthly_income"`
	MonthlyExpenses   int64              `json:"monthly_expenses"`
	Balance           int64              `json:"balance"`
	ProjectedIncome   int64              `json:"projected_income"`
	Buckets           Buckets            `json:"buckets"`
	Categories        []CategoryTotal    `json:"categories"`
	Statuses          []StatusCount      `json:"statuses"`
	Comparison        Comparison         `json:"comparison"`
	Series            Series             `json:"series"`
	RecentActivity    []Activity         `json:"recent_activity"`
	RecentOtherIncome []core.OtherIncome `json:"recent_other_income"`
	Suggestions       []Suggestion       `json:"suggestions"`
}

// Build computes the dashboard for snapshot s as of now.
func Build(s core.Snapshot, now time.Time) Dashboard {
	income := MonthlyIncome(s, now)
	expenses := MonthlyExpenses(s, now)
	return Dashboard{
		Currency:          s.Settings.Currency,
		Month:             core.MonthKey(now),
		MonthlyIncome:     income,
		MonthlyExpenses:   expenses,
		Balance:           income - expenses,
		ProjectedIncome:   ProjectedIncome(s, now),
		Buckets:           BucketShares(s),
		Categories:        ExpensesByCategory(s),
		Statuses:          StatusCounts(s),
		Comparison:        Compare(income, expenses),
		Series:            SixMonthSeries(s, now),
		RecentActivity:    RecentActivity(s),
		RecentOtherIncome: RecentOtherIncome(s),
		Suggestions:       Suggestions(s, now),
	}
}
